// Package listings fetches token listings from CoinMarketCap.
package listings

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/tidwall/gjson"

	"EthTicker/internal/domain/models"
	"EthTicker/internal/domain/repository"
	xhttp "EthTicker/pkg/http"
	"EthTicker/pkg/logger"
)

const source = "listings"

// Client implements repository.ListingSource.
type Client struct {
	http    *xhttp.Client
	url     string
	apiKey  string
	limit   int
	log     *logger.Logger
	metrics repository.Metrics
}

func New(httpClient *xhttp.Client, url, apiKey string, limit int, log *logger.Logger, metrics repository.Metrics) *Client {
	return &Client{http: httpClient, url: url, apiKey: apiKey, limit: limit, log: log, metrics: metrics}
}

// Fetch returns the top listings keyed by symbol. When a symbol appears twice the higher ranked entry wins.
func (c *Client) Fetch(ctx context.Context) (models.ListingRecord, error) {
	status, body, err := c.http.Fetch(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.url,
		QueryParams: map[string][]string{
			"limit":   {strconv.Itoa(c.limit)},
			"convert": {"USD"},
		},
		Headers: map[string]string{
			"Accept":            "application/json",
			"X-CMC_PRO_API_KEY": c.apiKey,
		},
	})
	if err != nil {
		return nil, c.fail(status, err.Error())
	}
	if status != http.StatusOK {
		return nil, c.fail(status, "unexpected status")
	}
	if code := gjson.GetBytes(body, "status.error_code"); code.Exists() && code.Int() != 0 {
		return nil, c.fail(status, gjson.GetBytes(body, "status.error_message").String())
	}

	data := gjson.GetBytes(body, "data")
	if !data.IsArray() {
		return nil, c.fail(status, "payload has no data array")
	}

	rec := make(models.ListingRecord)
	data.ForEach(func(_, item gjson.Result) bool {
		sym := item.Get("symbol").String()
		if sym == "" {
			return true
		}
		if _, dup := rec[sym]; dup {
			return true
		}
		usd := item.Get("quote.USD")
		price := usd.Get("price")
		if price.Type != gjson.Number {
			c.log.Debug("listing without usd price skipped", logger.String("symbol", sym))
			return true
		}
		rec[sym] = models.Listing{
			Symbol:            sym,
			PriceUSD:          price.Float(),
			Volume24hUSD:      usd.Get("volume_24h").Float(),
			CirculatingSupply: item.Get("circulating_supply").Float(),
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
