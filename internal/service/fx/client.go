// Package fx fetches currency rates from Open Exchange Rates.
package fx

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"

	"EthTicker/internal/domain/models"
	"EthTicker/internal/domain/repository"
	xhttp "EthTicker/pkg/http"
	"EthTicker/pkg/logger"
)

const source = "fx"

// Client implements repository.RateSource.
type Client struct {
	http    *xhttp.Client
	url     string
	appID   string
	log     *logger.Logger
	metrics repository.Metrics
}

func New(httpClient *xhttp.Client, url, appID string, log *logger.Logger, metrics repository.Metrics) *Client {
	return &Client{http: httpClient, url: url, appID: appID, log: log, metrics: metrics}
}

// Fetch returns the latest rates keyed by currency code, in units per USD.
func (c *Client) Fetch(ctx context.Context) (models.RateRecord, error) {
	status, body, err := c.http.Fetch(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         c.url,
		QueryParams: map[string][]string{"app_id": {c.appID}},
		Headers:     map[string]string{"Accept": "application/json"},
	})
	if err != nil {
		return nil, c.fail(status, err.Error())
	}
	if status != http.StatusOK {
		return nil, c.fail(status, "unexpected status")
	}

	rates := gjson.GetBytes(body, "rates")
	if !rates.IsObject() {
		return nil, c.fail(status, "payload has no rates object")
	}

	rec := make(models.RateRecord)
	rates.ForEach(func(k, v gjson.Result) bool {
		if v.Type == gjson.Number {
			rec[k.String()] = v.Float()
		}
		return true
	})
	c.metrics.RecordFetch(source, true)
	return rec, nil
}

func (c *Client) fail(status int, reason string) error {
	c.metrics.RecordFetch(source, false)
	c.log.Warn("upstream fetch failed",
		logger.String("source", source),
		logger.Int("status", status),
		logger.String("reason", reason),
	)
	return fmt.Errorf("%s: %s (status %d): %w", source, reason, status, models.ErrUpstreamUnavailable)
}
