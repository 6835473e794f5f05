// Package config loads adapter settings from YAML, .env files and environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/coinflex-exchange/api-connectors/internal/buffer"
	"github.com/coinflex-exchange/api-connectors/internal/observability"
	"github.com/coinflex-exchange/api-connectors/internal/schema"
	"github.com/coinflex-exchange/api-connectors/internal/telemetry"
	"github.com/coinflex-exchange/api-connectors/internal/transport"
)

// Environment selects the venue deployment.
type Environment string

const (
	// EnvStaging is the venue test environment.
	EnvStaging Environment = "staging"
	// EnvLive is the production venue.
	EnvLive Environment = "live"
)

// Default websocket endpoints per environment.
const (
	StagingURL = "wss://v2stgapi.coinflex.com/v2/websocket"
	LiveURL    = "wss://v2api.coinflex.com/v2/websocket"
)

// CredentialSettings holds the api key pair. Both halves are set or neither is.
type CredentialSettings struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
}

// KeepaliveSettings configures websocket pings.
type KeepaliveSettings struct {
	PingInterval time.Duration `yaml:"ping_interval"`
	PongTimeout  time.Duration `yaml:"pong_timeout"`
}

// BufferSettings bounds the per-channel event buffers.
type BufferSettings struct {
	Capacity int `yaml:"capacity"`
}

// CommandSettings configures outbound writes.
type CommandSettings struct {
	WriteTimeout time.Duration      `yaml:"write_timeout"`
	Throttle     transport.Throttle `yaml:"throttle"`
}

// FeedSettings drives the feed command.
type FeedSettings struct {
	Channels     []string      `yaml:"channels"`
	DepthLevel   int           `yaml:"depth_level"`
	Interval     string        `yaml:"interval"`
	BalanceCoin  string        `yaml:"balance_coin"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// Settings is the adapter configuration tree.
type Settings struct {
	Environment Environment             `yaml:"environment"`
	URL         string                  `yaml:"url"`
	Market      string                  `yaml:"market"`
	Credentials CredentialSettings      `yaml:"credentials"`
	Connect     transport.ConnectPolicy `yaml:"connect"`
	Keepalive   KeepaliveSettings       `yaml:"keepalive"`
	Buffer      BufferSettings          `yaml:"buffer"`
	Commands    CommandSettings         `yaml:"commands"`
	Logging     observability.LogConfig `yaml:"logging"`
	Telemetry   telemetry.Config        `yaml:"telemetry"`
	Feed        FeedSettings            `yaml:"feed"`
}

// Default returns the staging configuration with the transport defaults.
func Default() Settings {
	tdef := transport.DefaultOptions()
	tel := telemetry.DefaultConfig()
	tel.Environment = string(EnvStaging)
	return Settings{
		Environment: EnvStaging,
		Market:      "BTC-USD-SWAP-LIN",
		Connect:     tdef.Connect,
		Keepalive: KeepaliveSettings{
			PingInterval: tdef.PingInterval,
			PongTimeout:  tdef.PongTimeout,
		},
		Buffer:   BufferSettings{Capacity: buffer.DefaultCapacity},
		Commands: CommandSettings{WriteTimeout: tdef.WriteTimeout},
		Logging:  observability.LogConfig{Level: "info", Format: "json", Output: "stdout"},
		Telemetry: tel,
		Feed: FeedSettings{
			Channels:     []string{"depth", "trade", "ticker"},
			Interval:     string(schema.Interval60s),
			BalanceCoin:  schema.DefaultBalanceCoin,
			PollInterval: 250 * time.Millisecond,
		},
	}
}

// Load reads path over the defaults, applies environment overrides and validates the result.
// An empty path skips the file.
func Load(ctx context.Context, path string) (Settings, error) {
	_ = ctx

	cfg := Default()
	if candidate := strings.TrimSpace(path); candidate != "" {
		file, err := os.Open(filepath.Clean(candidate)) // #nosec G304 -- path is operator controlled.
		if err != nil {
			return Settings{}, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return Settings{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Settings{}, fmt.Errorf("unmarshal config: %w", err)
		}
	}

	cfg.ApplyEnv()
	cfg.normalise()
	if err := cfg.Validate(); err != nil {
		return Settings{}, err
	}
	return cfg, nil
}

// LoadDotEnv seeds the process environment from .env files. Missing files are skipped and
// variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides settings from COINFLEX_* variables and LOG_LEVEL.
func (s *Settings) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv("COINFLEX_ENV")); v != "" {
		s.Environment = Environment(strings.ToLower(v))
	}
	if v := strings.TrimSpace(os.Getenv("COINFLEX_WS_URL")); v != "" {
		s.URL = v
	}
	if v := strings.TrimSpace(os.Getenv("COINFLEX_MARKET")); v != "" {
		s.Market = v
	}
	if v := strings.TrimSpace(os.Getenv("COINFLEX_API_KEY")); v != "" {
		s.Credentials.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("COINFLEX_API_SECRET")); v != "" {
		s.Credentials.APISecret = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		s.Logging.Level = v
	}
}

func (s *Settings) normalise() {
	s.Environment = Environment(strings.ToLower(strings.TrimSpace(string(s.Environment))))
	s.URL = strings.TrimSpace(s.URL)
	s.Market = strings.TrimSpace(s.Market)
	s.Credentials.APIKey = strings.TrimSpace(s.Credentials.APIKey)
	s.Credentials.APISecret = strings.TrimSpace(s.Credentials.APISecret)
	s.Telemetry.Environment = string(s.Environment)
	for i, ch := range s.Feed.Channels {
		s.Feed.Channels[i] = strings.ToLower(strings.TrimSpace(ch))
	}
	if s.Feed.BalanceCoin == "" {
		s.Feed.BalanceCoin = schema.DefaultBalanceCoin
	}
}

// Validate performs semantic validation on the configuration.
func (s Settings) Validate() error {
	switch s.Environment {
	case EnvStaging, EnvLive:
	default:
		return fmt.Errorf("environment must be one of staging, live")
	}
	if s.Market == "" {
		return fmt.Errorf("market required")
	}
	if err := s.CredentialPair().Validate(); err != nil {
		return err
	}
	if s.Connect.Attempts <= 0 {
		return fmt.Errorf("connect attempts must be > 0")
	}
	if s.Connect.Interval <= 0 || s.Connect.DialTimeout <= 0 {
		return fmt.Errorf("connect interval and dial_timeout must be > 0")
	}
	if s.Keepalive.PingInterval <= 0 || s.Keepalive.PongTimeout <= 0 {
		return fmt.Errorf("keepalive ping_interval and pong_timeout must be > 0")
	}
	if s.Buffer.Capacity < 2 {
		return fmt.Errorf("buffer capacity must be >= 2")
	}
	if s.Commands.WriteTimeout <= 0 {
		return fmt.Errorf("commands write_timeout must be > 0")
	}
	if s.Commands.Throttle.Rate < 0 || s.Commands.Throttle.Burst < 0 {
		return fmt.Errorf("commands throttle rate and burst must be >= 0")
	}
	if s.Feed.PollInterval <= 0 {
		return fmt.Errorf("feed poll_interval must be > 0")
	}
	return nil
}

// WebsocketURL returns the configured url or the environment default.
func (s Settings) WebsocketURL() string {
	if s.URL != "" {
		return s.URL
	}
	if s.Environment == EnvLive {
		return LiveURL
	}
	return StagingURL
}

// CredentialPair returns the api key pair.
func (s Settings) CredentialPair() schema.Credentials {
	return schema.Credentials{APIKey: s.Credentials.APIKey, APISecret: s.Credentials.APISecret}
}
