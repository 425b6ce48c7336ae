package feed

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/dnaeon/go-vcr.v4/pkg/recorder"
)

const feedDocument = `<?xml version="1.0" encoding="utf-8"?>
<stations lastUpdate="1721900000000" version="2.0">
  <station>
    <id>001023</id>
    <name>River Street, Clerkenwell</name>
    <lat>51.5292</lat>
    <long>-0.1100</long>
    <installed>true</installed>
    <locked>false</locked>
    <nbStandardBikes>5</nbStandardBikes>
    <nbEBikes>3</nbEBikes>
    <nbEmptyDocks>12</nbEmptyDocks>
    <nbDocks>20</nbDocks>
  </station>
  <station>
    <id>001024</id>
    <name>Phillimore Gardens, Kensington</name>
    <lat>51.4996</lat>
    <long>-0.1975</long>
    <installed>true</installed>
    <locked>true</locked>
    <nbStandardBikes>0</nbStandardBikes>
    <nbEBikes>0</nbEBikes>
    <nbEmptyDocks>0</nbEmptyDocks>
    <nbDocks>18</nbDocks>
  </station>
</stations>`

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func TestFetchAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml")
		w.Write([]byte(feedDocument))
	}))
	defer srv.Close()

	client := NewClient(srv.Client(), newTestLogger())

	parsed, err := client.FetchAll(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(parsed.Docks) != 2 {
		t.Fatalf("expected 2 docks, got %d", len(parsed.Docks))
	}

	first := parsed.Docks[0]
	if first.ID != "001023" {
		t.Errorf("unexpected dock id: %q", first.ID)
	}
	if first.NbStandardBikes != 5 || first.NbEBikes != 3 || first.NbEmptyDocks != 12 {
		t.Errorf("unexpected counts: %+v", first)
	}
	if !first.IsAvailable() {
		t.Error("expected installed unlocked dock to be available")
	}

	second := parsed.Docks[1]
	if second.IsAvailable() {
		t.Error("expected locked dock to be unavailable")
	}
	if second.BrokenDocks() != 18 {
		t.Errorf("expected 18 broken docks, got %d", second.BrokenDocks())
	}
}

func TestFetchAllWithVCR(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml")
		w.Write([]byte(feedDocument))
	}))
	defer srv.Close()

	rec, err := recorder.New(filepath.Join(t.TempDir(), "dock_feed_successful_request"))
	if err != nil {
		t.Fatalf("Failed to create recorder: %v", err)
	}
	defer rec.Stop()

	client := NewClient(&http.Client{Transport: rec, Timeout: 10 * time.Second}, newTestLogger())

	parsed, err := client.FetchAll(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed.LastUpdate != 1721900000000 {
		t.Errorf("unexpected lastUpdate: %d", parsed.LastUpdate)
	}
}

func TestFetchAllErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		check   func(t *testing.T, err error)
	}{
		{
			name: "empty feed is ErrNoData",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`<stations lastUpdate="0" version="2.0"></stations>`))
			},
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrNoData) {
					t.Errorf("expected ErrNoData, got %v", err)
				}
			},
		},
		{
			name: "malformed document is DecodeError",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`<stations><station><id>1`))
			},
			check: func(t *testing.T, err error) {
				var decodeErr *DecodeError
				if !errors.As(err, &decodeErr) {
					t.Errorf("expected DecodeError, got %v", err)
				}
			},
		},
		{
			name: "server error surfaces status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			check: func(t *testing.T, err error) {
				if err == nil {
					t.Error("expected error for 502 response")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			client := NewClient(srv.Client(), newTestLogger())
			_, err := client.FetchAll(context.Background(), srv.URL)
			if err == nil {
				t.Fatal("expected error")
			}
			tt.check(t, err)
		})
	}
}
