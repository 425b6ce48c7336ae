package feed

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"dockwatch.cycleshare.org/internal/config"
	"dockwatch.cycleshare.org/internal/models"
)

// ErrNoData indicates the upstream responded successfully but the document
// contained no docks. The refresh policy treats this the same as a
// transport failure, but callers can distinguish it when logging.
var ErrNoData = errors.New("feed contains no docks")

// DecodeError wraps an XML parsing failure so callers can tell a malformed
// document apart from a transport problem.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode feed: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Client fetches the operator's dock feed. The feed is a single XML
// document listing every dock; by-id and by-radius lookups are resolved
// against the cached snapshot in the docks store, not here. The URL is
// passed per call because remote settings can retarget the feed at
// runtime.
type Client struct {
	Client     *http.Client
	Logger     *slog.Logger
	MaxRetries int
}

// NewClient creates a feed client using the provided pooled HTTP client.
func NewClient(httpClient *http.Client, logger *slog.Logger) *Client {
	return &Client{
		Client:     httpClient,
		Logger:     logger,
		MaxRetries: 2,
	}
}

// FetchAll retrieves and decodes the full dock feed. Transport failures are
// retried with backoff; a well-formed document with zero docks returns
// ErrNoData.
func (c *Client) FetchAll(ctx context.Context, feedURL string) (*models.DockFeed, error) {
	req, err := http.NewRequest("GET", feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create feed request: %v", err)
	}

	resp, err := config.DoWithBackoff(ctx, c.Client, req, c.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch dock feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dock feed returned status: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read dock feed: %w", err)
	}

	var parsed models.DockFeed
	if err := xml.Unmarshal(data, &parsed); err != nil {
		return nil, &DecodeError{Err: err}
	}

	if len(parsed.Docks) == 0 {
		return nil, ErrNoData
	}

	return &parsed, nil
}
