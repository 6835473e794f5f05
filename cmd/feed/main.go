// Command feed connects to the venue, subscribes to the configured channels and logs every
// polled event until interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coinflex-exchange/api-connectors/config"
	"github.com/coinflex-exchange/api-connectors/internal/observability"
	"github.com/coinflex-exchange/api-connectors/internal/schema"
	"github.com/coinflex-exchange/api-connectors/internal/telemetry"
	"github.com/coinflex-exchange/api-connectors/pkg/coinflex"
)

const (
	meterName        = "github.com/coinflex-exchange/api-connectors"
	loginWaitTimeout = 10 * time.Second
)

func main() {
	os.Exit(run())
}

func run() int {
	cfgPath := flag.String("config", "", "Path to the YAML configuration file")
	envFile := flag.String("env-file", ".env", "Optional .env file seeding COINFLEX_* variables")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := config.LoadDotEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "feed: %v\n", err)
		return 1
	}
	cfg, err := config.Load(ctx, *cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "feed: load config: %v\n", err)
		return 1
	}

	logger, err := observability.NewLogrusLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "feed: init logger: %v\n", err)
		return 1
	}
	observability.SetLogger(logger)

	provider, err := telemetry.NewProvider(ctx, cfg.Telemetry)
	if err != nil {
		logger.Error("initialize telemetry", observability.Field{Key: "error", Value: err})
		_ = logger.Close()
		return 1
	}
	if cfg.Telemetry.Enabled {
		logger.Info("telemetry initialized",
			observability.Field{Key: "endpoint", Value: cfg.Telemetry.OTLPEndpoint},
			observability.Field{Key: "service", Value: cfg.Telemetry.ServiceName})
	}

	feeds, err := resolveFeeds(cfg.Feed)
	if err != nil {
		logger.Error("invalid feed configuration", observability.Field{Key: "error", Value: err})
		_ = provider.Shutdown(context.Background())
		_ = logger.Close()
		return 1
	}

	code := stream(ctx, cfg, logger, provider, feeds)

	shutdown := observability.CloseAll(logger, "feed shutdown",
		observability.Closer{Name: "telemetry", Close: func() error { return provider.Shutdown(context.Background()) }},
	)
	if shutdown != nil && code == 0 {
		code = 1
	}
	_ = logger.Close()
	return code
}

func stream(ctx context.Context, cfg config.Settings, logger observability.Logger, provider *telemetry.Provider, feeds []feed) int {
	opts := coinflex.OptionsFromSettings(cfg)
	opts.Logger = logger
	opts.Meter = provider.Meter(meterName)

	client, err := coinflex.New(ctx, opts)
	if err != nil {
		logger.Error("connect", observability.Field{Key: "error", Value: err})
		return 1
	}
	defer client.Exit()
	logger.Info("connected",
		observability.Field{Key: "environment", Value: string(cfg.Environment)},
		observability.Field{Key: "url", Value: cfg.WebsocketURL()},
		observability.Field{Key: "market", Value: client.Market()})

	if opts.Credentials.Present() {
		waitCtx, cancel := context.WithTimeout(ctx, loginWaitTimeout)
		err := client.WaitAuthenticated(waitCtx)
		cancel()
		if err != nil {
			logger.Warn("login not confirmed; private channels may stay empty", observability.Field{Key: "error", Value: err})
		} else {
			logger.Info("authenticated")
		}
	}

	for _, f := range feeds {
		if f.channel.Private() && !opts.Credentials.Present() {
			logger.Warn("skipping private channel without credentials", observability.Field{Key: "channel", Value: f.name})
			continue
		}
		if err := f.subscribe(ctx, client); err != nil {
			logger.Error("subscribe", observability.Field{Key: "channel", Value: f.name}, observability.Field{Key: "error", Value: err})
			return 1
		}
		logger.Info("subscribed", observability.Field{Key: "channel", Value: f.name})
	}

	ticker := time.NewTicker(cfg.Feed.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("shutdown signal received")
			return 0
		case err := <-client.Errors():
			logger.Error("session failed", observability.Field{Key: "error", Value: err})
			return 1
		case <-ticker.C:
			for _, f := range feeds {
				drain(client, f, logger)
			}
		}
	}
}

func drain(client *coinflex.Client, f feed, logger observability.Logger) {
	for {
		ev, ok := client.Get(f.channel)
		if !ok {
			return
		}
		fields := []observability.Field{
			{Key: "channel", Value: ev.Channel.String()},
			{Key: "received_at", Value: ev.ReceivedAt.Format(time.RFC3339Nano)},
			{Key: "payload", Value: string(ev.Payload)},
		}
		if ev.Kind != "" {
			fields = append(fields, observability.Field{Key: "kind", Value: ev.Kind})
		}
		logger.Info("event", fields...)
	}
}

type feed struct {
	name      string
	channel   schema.Channel
	subscribe func(ctx context.Context, c *coinflex.Client) error
}

// resolveFeeds maps configured channel names onto subscriptions. Depth and kline take their
// selector from the feed settings.
func resolveFeeds(cfg config.FeedSettings) ([]feed, error) {
	seen := make(map[schema.Channel]bool, len(cfg.Channels))
	out := make([]feed, 0, len(cfg.Channels))
	for _, name := range cfg.Channels {
		f, err := resolveFeed(name, cfg)
		if err != nil {
			return nil, err
		}
		if seen[f.channel] {
			continue
		}
		seen[f.channel] = true
		out = append(out, f)
	}
	if len(out) == 0 {
		return nil, errors.New("no feed channels configured")
	}
	return out, nil
}

func resolveFeed(name string, cfg config.FeedSettings) (feed, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "depth":
		level := schema.DepthLevel(cfg.DepthLevel)
		ch, err := schema.DepthChannel(level)
		if err != nil {
			return feed{}, err
		}
		return feed{name: name, channel: ch, subscribe: func(ctx context.Context, c *coinflex.Client) error {
			return c.SubscribeDepth(ctx, level)
		}}, nil
	case "kline", "candles":
		interval := schema.Interval(cfg.Interval)
		ch, err := schema.CandleChannel(interval)
		if err != nil {
			return feed{}, err
		}
		return feed{name: name, channel: ch, subscribe: func(ctx context.Context, c *coinflex.Client) error {
			return c.SubscribeKline(ctx, interval)
		}}, nil
	case "balance":
		coin := cfg.BalanceCoin
		return feed{name: name, channel: schema.ChannelBalance, subscribe: func(ctx context.Context, c *coinflex.Client) error {
			return c.SubscribeBalance(ctx, coin)
		}}, nil
	case "trade", "ticker", "market", "position", "order":
		return simpleFeed(name, schema.Channel(name)), nil
	case "liquidation", "liquidationrfq":
		return simpleFeed(name, schema.ChannelLiquidation), nil
	}
	return feed{}, fmt.Errorf("unknown feed channel %q", name)
}

func simpleFeed(name string, ch schema.Channel) feed {
	return feed{name: name, channel: ch, subscribe: func(ctx context.Context, c *coinflex.Client) error {
		return c.Subscribe(ctx, ch)
	}}
}
