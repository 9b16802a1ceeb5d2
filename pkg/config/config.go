package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"EthTicker/internal/domain/models"
)

type Config struct {
	Environment string      `yaml:"environment" default:"development" validate:"required"`
	Log         Log         `yaml:"log"`
	Server      Server      `yaml:"server"`
	Metrics     Metrics     `yaml:"metrics"`
	Sources     Sources     `yaml:"sources"`
	Aggregation Aggregation `yaml:"aggregation"`
	Publish     Publish     `yaml:"publish"`
	Remote      Remote      `yaml:"remote"`
	Redis       Redis       `yaml:"redis"`
	Kafka       Kafka       `yaml:"kafka"`
	ClickHouse  ClickHouse  `yaml:"clickhouse"`
}

type Log struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" default:"json" validate:"oneof=json console"`
	Output string `yaml:"output" default:"stdout"`
}

type Server struct {
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	SlowThreshold   time.Duration `yaml:"slow_threshold" default:"2s"`
	CORSOrigins     []string      `yaml:"cors_origins"`
}

type Metrics struct {
	Path string `yaml:"path" default:"/metrics"`
}

type Source struct {
	URL        string        `yaml:"url" validate:"required,url"`
	APIKey     string        `yaml:"api_key"`
	TTL        time.Duration `yaml:"ttl" validate:"gt=0"`
	FailureTTL time.Duration `yaml:"failure_ttl" validate:"gt=0"`
	Timeout    time.Duration `yaml:"timeout" default:"10s"`
}

type Listings struct {
	Source `yaml:",inline"`
	Limit  int `yaml:"limit" default:"300" validate:"gte=1,lte=5000"`
}

type Sources struct {
	FX       Source   `yaml:"fx"`
	Listings Listings `yaml:"listings"`
}

// SetDefaults fills per-source defaults that differ between sources.
func (s *Sources) SetDefaults() {
	if s.FX.URL == "" {
		s.FX.URL = "https://openexchangerates.org/api/latest.json"
	}
	if s.FX.TTL == 0 {
		s.FX.TTL = 3597 * time.Second
	}
	if s.FX.FailureTTL == 0 {
		s.FX.FailureTTL = 30 * time.Second
	}
	if s.Listings.URL == "" {
		s.Listings.URL = "https://pro-api.coinmarketcap.com/v1/cryptocurrency/listings/latest"
	}
	if s.Listings.TTL == 0 {
		s.Listings.TTL = 297 * time.Second
	}
	if s.Listings.FailureTTL == 0 {
		s.Listings.FailureTTL = 15 * time.Second
	}
}

type Aggregation struct {
	Anchor  string        `yaml:"anchor" default:"ETH" validate:"required"`
	Fiat    []string      `yaml:"fiat" default:"[\"USD\",\"EUR\",\"GBP\"]" validate:"dive,len=3"`
	ERC20   []string      `yaml:"erc20" default:"[\"MKR\",\"OMG\",\"ZRX\"]"`
	Timeout time.Duration `yaml:"timeout" default:"15s"`
}

type Retry struct {
	BaseDelay  time.Duration `yaml:"base_delay" default:"1s" validate:"gt=0"`
	MaxDelay   time.Duration `yaml:"max_delay" default:"60s"`
	MaxElapsed time.Duration `yaml:"max_elapsed" default:"240s" validate:"gt=0"`
}

type Publish struct {
	WatchRoot string        `yaml:"watch_root" default:"/data" validate:"required"`
	Debounce  time.Duration `yaml:"debounce" default:"500ms"`
	Cooldown  time.Duration `yaml:"cooldown" default:"10m"`
	// StatusPort serves /publish/status and /metrics from the publish process.
	StatusPort int                    `yaml:"status_port" default:"8081" validate:"gte=1,lte=65535"`
	Groups     []models.ArtifactGroup `yaml:"groups" validate:"dive"`
	Retry      Retry                  `yaml:"retry"`
}

// DefaultGroups are the ticker image pair, finalized together, and the redesign banner.
func DefaultGroups() []models.ArtifactGroup {
	return []models.ArtifactGroup{
		{
			Name: "ticker",
			Artifacts: []models.Artifact{
				{Name: "upper-ticker", File: "upper-ticker.png", Kind: models.KindImage},
				{Name: "lower-ticker", File: "lower-ticker.png", Kind: models.KindImage},
			},
			Finalize: true,
			Reason:   "ticker3",
		},
		{
			Name: "banner",
			Artifacts: []models.Artifact{
				{Name: "banner", File: "banner.png", Kind: models.KindBanner},
			},
		},
	}
}

// SetDefaults installs DefaultGroups when none are configured.
func (p *Publish) SetDefaults() {
	if len(p.Groups) == 0 {
		p.Groups = DefaultGroups()
	}
}

type Reddit struct {
	BaseURL     string        `yaml:"base_url" default:"https://oauth.reddit.com"`
	AccessToken string        `yaml:"access_token"`
	Subreddit   string        `yaml:"subreddit"`
	UserAgent   string        `yaml:"user_agent" default:"ethticker/1.0"`
	Timeout     time.Duration `yaml:"timeout" default:"30s"`
	// RatePerMinute caps mutating calls; reddit allows 60 per minute for OAuth clients.
	RatePerMinute int `yaml:"rate_per_minute" default:"60" validate:"gte=1"`
}

type S3 struct {
	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix" default:"ticker"`
	Region   string `yaml:"region" default:"us-east-1"`
	Endpoint string `yaml:"endpoint"`
	Profile  string `yaml:"profile"`
}

type Remote struct {
	Type   string `yaml:"type" default:"reddit" validate:"oneof=reddit s3"`
	Reddit Reddit `yaml:"reddit"`
	S3     S3     `yaml:"s3"`
}

type Redis struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr" default:"localhost:6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix" default:"ethticker"`

	PoolSize     int           `yaml:"pool_size" default:"10"`
	MinIdleConns int           `yaml:"min_idle_conns" default:"2"`
	Timeout      time.Duration `yaml:"timeout" default:"3s"`
}

type Kafka struct {
	Enabled      bool     `yaml:"enabled"`
	Brokers      []string `yaml:"brokers"`
	Topic        string   `yaml:"topic" default:"ethticker.publish.outcomes"`
	RequiredAcks int      `yaml:"required_acks" default:"1"`
	Compression  string   `yaml:"compression" default:"snappy" validate:"oneof=none gzip snappy lz4 zstd"`
	Producer     struct {
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		Linger       time.Duration `yaml:"linger" default:"50ms"`
		BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
		BatchSize    int           `yaml:"batch_size" default:"100"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		Async        bool          `yaml:"async"`
	} `yaml:"producer"`
}

type ClickHouse struct {
	Enabled          bool          `yaml:"enabled"`
	Host             string        `yaml:"host" default:"localhost"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"ethticker"`
	Table            string        `yaml:"table" default:"ticker_snapshots"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	AsyncInsert      bool          `yaml:"async_insert"`
	WaitForAsync     bool          `yaml:"wait_for_async_insert"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	Interval         time.Duration `yaml:"interval" default:"1m"`
}

var validate = validator.New()

// Load reads and parses a YAML configuration file. Missing fields take their defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes into a validated Config.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	// defaults installed DefaultGroups; a configured list replaces them
	c.Publish.Groups = nil

	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.normalize()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
// An empty path means defaults plus environment.
func LoadWithEnv(path string) (*Config, error) {
	var (
		c   *Config
		err error
	)
	if path == "" {
		c, err = Parse(nil)
	} else {
		c, err = Load(path)
	}
	if err != nil {
		return nil, err
	}

	c.applyEnv(os.Getenv)
	c.normalize()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("OER_APP_ID"); v != "" {
		c.Sources.FX.APIKey = v
	}
	if v := getenv("CMC_API_KEY"); v != "" {
		c.Sources.Listings.APIKey = v
	}
	if v := getenv("FIAT"); v != "" {
		c.Aggregation.Fiat = splitList(v)
	}
	if v := getenv("ERC20"); v != "" {
		c.Aggregation.ERC20 = splitList(v)
	}
	if v := getenv("REDDIT_ACCESS_TOKEN"); v != "" {
		c.Remote.Reddit.AccessToken = v
	}
	if v := getenv("SUBREDDIT"); v != "" {
		c.Remote.Reddit.Subreddit = v
	}
	if v := getenv("REDDIT_USER_AGENT"); v != "" {
		c.Remote.Reddit.UserAgent = v
	}
	if v := getenv("WATCH_ROOT"); v != "" {
		c.Publish.WatchRoot = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
		c.Kafka.Enabled = true
	}
}

func (c *Config) normalize() {
	c.Sources.SetDefaults()
	c.Publish.SetDefaults()
	for i := range c.Publish.Groups {
		for j := range c.Publish.Groups[i].Artifacts {
			a := &c.Publish.Groups[i].Artifacts[j]
			if a.Kind == "" {
				a.Kind = models.KindImage
			}
		}
	}
	c.Publish.WatchRoot = filepath.Clean(c.Publish.WatchRoot)
	c.Aggregation.Anchor = strings.ToUpper(c.Aggregation.Anchor)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	seen := make(map[string]bool)
	for _, g := range c.Publish.Groups {
		if seen[g.Name] {
			return fmt.Errorf("publish.groups: duplicate group %q", g.Name)
		}
		seen[g.Name] = true
		if g.Finalize && g.Reason == "" {
			return fmt.Errorf("publish.groups[%s]: finalize requires a reason", g.Name)
		}
	}
	if c.Remote.Type == "s3" && c.Remote.S3.Bucket == "" {
		return fmt.Errorf("remote.s3.bucket is required")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}

// ValidateServe checks settings only the serve process needs.
func (c *Config) ValidateServe() error {
	if c.Sources.FX.APIKey == "" {
		return fmt.Errorf("sources.fx.api_key is required (OER_APP_ID)")
	}
	if c.Sources.Listings.APIKey == "" {
		return fmt.Errorf("sources.listings.api_key is required (CMC_API_KEY)")
	}
	return nil
}

// ValidatePublish checks settings only the publish process needs.
func (c *Config) ValidatePublish() error {
	if c.Remote.Type == "reddit" {
		if c.Remote.Reddit.AccessToken == "" {
			return fmt.Errorf("remote.reddit.access_token is required (REDDIT_ACCESS_TOKEN)")
		}
		if c.Remote.Reddit.Subreddit == "" {
			return fmt.Errorf("remote.reddit.subreddit is required (SUBREDDIT)")
		}
	}
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
