package seismic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/couchcryptid/quake-felt-service/internal/domain"
	"github.com/couchcryptid/quake-felt-service/internal/observability"
)

// Client queries an FDSN event web service for events inside a region.
type Client struct {
	fetcher *Fetcher
	baseURL string
	region  domain.Region
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewClient creates an event client for the given provider endpoint and region.
func NewClient(fetcher *Fetcher, baseURL string, region domain.Region, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		fetcher: fetcher,
		baseURL: baseURL,
		region:  region,
		metrics: metrics,
		logger:  logger,
	}
}

// QueryEvents fetches and normalizes events matching q. A 204 from the
// provider yields domain.ErrNoData; a malformed feature fails the whole call.
func (c *Client) QueryEvents(ctx context.Context, q domain.EventQuery) ([]domain.EarthquakeEvent, error) {
	u := c.queryURL(q.WithDefaults())

	payload, err := c.fetcher.Fetch(ctx, u)
	if errors.Is(err, ErrNoContent) {
		c.logger.Info("event provider returned no content", "start", q.StartDate, "end", q.EndDate)
		return nil, domain.ErrNoData
	}
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}

	events, err := Normalize(payload)
	if err != nil {
		c.metrics.NormalizeErrors.Inc()
		return nil, fmt.Errorf("query events: %w", err)
	}

	c.metrics.EventsReturned.Observe(float64(len(events)))
	c.logger.Debug("events fetched", "count", len(events), "region", c.region.Name)
	return events, nil
}

// queryURL builds the provider URL with the region bounding box.
func (c *Client) queryURL(q domain.EventQuery) string {
	b := c.region.Bound
	params := url.Values{
		"format":       {"json"},
		"minlatitude":  {formatFloat(b.Min.Lat())},
		"maxlatitude":  {formatFloat(b.Max.Lat())},
		"minlongitude": {formatFloat(b.Min.Lon())},
		"maxlongitude": {formatFloat(b.Max.Lon())},
		"starttime":    {q.StartDate},
		"endtime":      {q.EndDate},
		"minmagnitude": {formatFloat(q.MinMagnitude)},
	}
	return c.baseURL + "?" + params.Encode()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
