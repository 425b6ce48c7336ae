package metrics

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"dockwatch.cycleshare.org/internal/docks"
	"dockwatch.cycleshare.org/internal/models"
	"dockwatch.cycleshare.org/internal/prefs"
	"dockwatch.cycleshare.org/internal/refresh"
)

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := g.Write(m); err != nil {
		t.Fatalf("failed to read gauge: %v", err)
	}
	return m.GetGauge().GetValue()
}

func gaugeVecValue(t *testing.T, vec *prometheus.GaugeVec, labels ...string) float64 {
	t.Helper()
	g, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("failed to resolve gauge: %v", err)
	}
	return gaugeValue(t, g)
}

func newTestService(t *testing.T) (*MetricsService, *docks.Store, prefs.Store) {
	t.Helper()

	dockStore := docks.NewStore()
	prefsStore := prefs.NewMemStore()
	policy := refresh.NewPolicy(refresh.Options{
		Staleness:        time.Minute,
		FailureThreshold: 3,
		FailureWindow:    2 * time.Minute,
		Debounce:         20 * time.Second,
	}, refresh.RealClock())
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	return NewMetricsService(dockStore, prefsStore, policy, logger), dockStore, prefsStore
}

func TestRecordFeedStatus(t *testing.T) {
	ms, _, _ := newTestService(t)

	ms.RecordFeedStatus("https://feed.example.com/docks.xml", true)
	if got := gaugeVecValue(t, FeedStatus, "https://feed.example.com/docks.xml"); got != 1 {
		t.Errorf("expected feed status 1, got %f", got)
	}

	ms.RecordFeedStatus("https://feed.example.com/docks.xml", false)
	if got := gaugeVecValue(t, FeedStatus, "https://feed.example.com/docks.xml"); got != 0 {
		t.Errorf("expected feed status 0, got %f", got)
	}
}

func TestRecordSnapshot(t *testing.T) {
	ms, dockStore, prefsStore := newTestService(t)

	now := time.Now()
	dockStore.Set(&models.DockFeed{
		Docks: []models.Dock{
			{ID: "1", Name: "Waterloo", Lat: 51.5031, Lon: -0.1132, Installed: true,
				NbStandardBikes: 4, NbEBikes: 2, NbEmptyDocks: 10, NbDocks: 18},
			{ID: "2", Name: "Bank", Lat: 51.5133, Lon: -0.0886, Installed: true},
		},
	}, now.Add(-30*time.Second))
	prefsStore.AddFavourite("1")

	ms.RecordSnapshot(now)

	if got := gaugeValue(t, DocksTracked); got != 2 {
		t.Errorf("expected 2 docks tracked, got %f", got)
	}
	if got := gaugeValue(t, FeedAgeSeconds); got < 29 || got > 31 {
		t.Errorf("expected ~30s feed age, got %f", got)
	}
	if got := gaugeVecValue(t, FavouriteStandardBikes, "1"); got != 4 {
		t.Errorf("expected 4 standard bikes, got %f", got)
	}
	if got := gaugeVecValue(t, FavouriteEBikes, "1"); got != 2 {
		t.Errorf("expected 2 ebikes, got %f", got)
	}
	if got := gaugeVecValue(t, FavouriteBrokenDocks, "1"); got != 2 {
		t.Errorf("expected 2 broken docks, got %f", got)
	}
}
