package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EthTicker/internal/domain/models"
)

func TestParseDefaults(t *testing.T) {
	c, err := Parse(nil)
	require.NoError(t, err)

	assert.Equal(t, "development", c.Environment)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, 3597*time.Second, c.Sources.FX.TTL)
	assert.Equal(t, 297*time.Second, c.Sources.Listings.TTL)
	assert.Equal(t, 300, c.Sources.Listings.Limit)
	assert.Equal(t, "ETH", c.Aggregation.Anchor)
	assert.Equal(t, []string{"USD", "EUR", "GBP"}, c.Aggregation.Fiat)
	assert.Equal(t, 240*time.Second, c.Publish.Retry.MaxElapsed)
	assert.Equal(t, 8081, c.Publish.StatusPort)
	assert.Equal(t, DefaultGroups(), c.Publish.Groups)
	assert.Equal(t, "reddit", c.Remote.Type)
}

func TestParseOverridesAndKindDefault(t *testing.T) {
	c, err := Parse([]byte(`
environment: test
aggregation:
  anchor: eth
  fiat: [CHF]
publish:
  watch_root: /srv/data/
  groups:
    - name: pair
      finalize: true
      reason: refresh
      artifacts:
        - { name: a, file: a.png }
        - { name: b, file: b.png, kind: banner }
`))
	require.NoError(t, err)

	assert.Equal(t, "ETH", c.Aggregation.Anchor)
	assert.Equal(t, []string{"CHF"}, c.Aggregation.Fiat)
	assert.Equal(t, "/srv/data", c.Publish.WatchRoot)
	require.Len(t, c.Publish.Groups, 1)
	assert.Equal(t, models.KindImage, c.Publish.Groups[0].Artifacts[0].Kind)
	assert.Equal(t, models.KindBanner, c.Publish.Groups[0].Artifacts[1].Kind)
}

func TestValidateRejects(t *testing.T) {
	tests := map[string]string{
		"bad fiat code":      "aggregation:\n  fiat: [EURO]\n",
		"bad remote type":    "remote:\n  type: ftp\n",
		"s3 without bucket":  "remote:\n  type: s3\n",
		"finalize no reason": "publish:\n  groups:\n    - name: g\n      finalize: true\n      artifacts: [{name: a, file: a.png}]\n",
		"duplicate groups":   "publish:\n  groups:\n    - name: g\n      artifacts: [{name: a, file: a.png}]\n    - name: g\n      artifacts: [{name: b, file: b.png}]\n",
		"empty group":        "publish:\n  groups:\n    - name: g\n",
		"bad log level":      "log:\n  level: loud\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	c, err := Parse(nil)
	require.NoError(t, err)

	env := map[string]string{
		"OER_APP_ID":    "oer",
		"CMC_API_KEY":   "cmc",
		"FIAT":          "EUR, JPY",
		"ERC20":         "MKR",
		"SUBREDDIT":     "ethtrader",
		"REDIS_ADDR":    "redis:6379",
		"KAFKA_BROKERS": "k1:9092,k2:9092",
	}
	c.applyEnv(func(k string) string { return env[k] })

	assert.Equal(t, "oer", c.Sources.FX.APIKey)
	assert.Equal(t, "cmc", c.Sources.Listings.APIKey)
	assert.Equal(t, []string{"EUR", "JPY"}, c.Aggregation.Fiat)
	assert.Equal(t, []string{"MKR"}, c.Aggregation.ERC20)
	assert.Equal(t, "ethtrader", c.Remote.Reddit.Subreddit)
	assert.True(t, c.Redis.Enabled)
	assert.True(t, c.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	require.NoError(t, c.ValidateServe())
	assert.Error(t, c.ValidatePublish())
}

func TestLoadSampleConfig(t *testing.T) {
	path := filepath.Join("..", "..", "config", "config.yaml")
	if _, err := os.Stat(path); err != nil {
		t.Skip("sample config not present")
	}
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "production", c.Environment)
	assert.Len(t, c.Publish.Groups, 2)
	assert.Equal(t, []string{"upper-ticker.png", "lower-ticker.png"}, c.Publish.Groups[0].Files())
}
