package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jpalmerr/storewatch"
)

// BuildOptions converts parsed configuration into SDK options.
//
// The returned options carry the probe, the notifiers and every timing
// setting. Callers append their own (logger overrides, port flags) before
// passing them to [storewatch.New].
func BuildOptions(ctx context.Context, cfg *Config, logger *slog.Logger) ([]storewatch.Option, error) {
	probe, err := BuildProbe(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	notifiers, err := BuildNotifiers(cfg.Notifiers, logger)
	if err != nil {
		if c, ok := probe.(io.Closer); ok {
			_ = c.Close()
		}
		return nil, err
	}

	opts := []storewatch.Option{
		storewatch.WithProbe(probe),
		storewatch.WithPort(cfg.Port),
		storewatch.WithPollInterval(cfg.PollInterval.Duration()),
		storewatch.WithDebounceWindow(cfg.DebounceWindow.Duration()),
		storewatch.WithProbeTimeout(cfg.ProbeTimeout.Duration()),
		storewatch.WithStartupCheck(cfg.StartupCheckEnabled()),
		storewatch.WithNotifiers(notifiers...),
	}

	if cfg.Title != "" {
		opts = append(opts, storewatch.WithTitle(cfg.Title))
	}

	return opts, nil
}

// BuildProbe creates the connectivity probe for the configured store.
func BuildProbe(ctx context.Context, sc StoreConfig) (storewatch.Probe, error) {
	switch sc.Driver {
	case DriverPostgres:
		p, err := storewatch.PostgresProbe(ctx, sc.DSN)
		if err != nil {
			return nil, fmt.Errorf("store (postgres): %w", err)
		}
		return p, nil

	case DriverRedis:
		p, err := storewatch.RedisProbe(sc.URL)
		if err != nil {
			return nil, fmt.Errorf("store (redis): %w", err)
		}
		return p, nil

	case DriverHTTP:
		var opts []storewatch.HTTPProbeOption
		if sc.Method != "" {
			opts = append(opts, storewatch.WithProbeMethod(sc.Method))
		}
		if len(sc.Headers) > 0 {
			opts = append(opts, storewatch.WithProbeHeaders(sc.Headers))
		}
		opts = append(opts, storewatch.WithProbeClassifier(buildClassifier(sc.Classifier)))
		return storewatch.HTTPProbe(sc.URL, opts...), nil

	default:
		return nil, fmt.Errorf("store: unknown driver %q", sc.Driver)
	}
}

// BuildNotifiers creates one notifier per configured sink.
func BuildNotifiers(ncs []NotifierConfig, logger *slog.Logger) ([]storewatch.Notifier, error) {
	if logger == nil {
		logger = slog.Default()
	}

	notifiers := make([]storewatch.Notifier, 0, len(ncs))
	for i, nc := range ncs {
		switch nc.Type {
		case NotifierLog:
			notifiers = append(notifiers, storewatch.LogNotifier(logger))

		case NotifierWebhook:
			notifiers = append(notifiers, storewatch.NewWebhookNotifier(nc.URL, nc.Headers))

		case NotifierTelegram:
			tn, err := storewatch.NewTelegramNotifier(nc.Token, nc.ChatID)
			if err != nil {
				return nil, fmt.Errorf("notifiers[%d] (telegram): %w", i, err)
			}
			notifiers = append(notifiers, tn)

		default:
			return nil, fmt.Errorf("notifiers[%d]: unknown type %q", i, nc.Type)
		}
	}

	return notifiers, nil
}

// buildClassifier converts a ClassifierConfig to a storewatch.Classifier.
func buildClassifier(cc ClassifierConfig) storewatch.Classifier {
	switch cc.Type {
	case "json":
		return storewatch.JSONFieldClassifier(cc.Path)
	case "contains":
		return storewatch.ContainsClassifier(cc.Text)
	default:
		return storewatch.StatusCodeClassifier
	}
}
