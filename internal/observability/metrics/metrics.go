package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	ordersPlaced     metric.Int64Counter
	orderTransitions metric.Int64Counter
	walletEntries    metric.Int64Counter
	referralRewards  metric.Int64Counter
	liveFeedDropped  metric.Int64Counter
	rateLimitDenied  metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "plateful"
	}
	meter := provider.Meter(name)

	ordersPlaced, err := meter.Int64Counter("plateful_orders_placed_total")
	if err != nil {
		return nil, err
	}
	orderTransitions, err := meter.Int64Counter("plateful_order_transitions_total")
	if err != nil {
		return nil, err
	}
	walletEntries, err := meter.Int64Counter("plateful_wallet_entries_total")
	if err != nil {
		return nil, err
	}
	referralRewards, err := meter.Int64Counter("plateful_referral_rewards_total")
	if err != nil {
		return nil, err
	}
	liveFeedDropped, err := meter.Int64Counter("plateful_live_feed_dropped_total")
	if err != nil {
		return nil, err
	}
	rateLimitDenied, err := meter.Int64Counter("plateful_rate_limit_denied_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		ordersPlaced:     ordersPlaced,
		orderTransitions: orderTransitions,
		walletEntries:    walletEntries,
		referralRewards:  referralRewards,
		liveFeedDropped:  liveFeedDropped,
		rateLimitDenied:  rateLimitDenied,
	}, nil
}

// RecordOrderPlaced increments placed order counts.
func (m *Metrics) RecordOrderPlaced(ctx context.Context, channel string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("channel", strings.TrimSpace(channel)))
	m.ordersPlaced.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordOrderTransition increments order status transition counts.
func (m *Metrics) RecordOrderTransition(ctx context.Context, from, to string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("from_status", strings.TrimSpace(from)),
		attribute.String("to_status", strings.TrimSpace(to)),
	)
	m.orderTransitions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordWalletEntry increments wallet ledger entry counts.
func (m *Metrics) RecordWalletEntry(ctx context.Context, entryType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("entry_type", strings.TrimSpace(entryType)))
	m.walletEntries.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordReferralReward increments granted referral reward counts.
func (m *Metrics) RecordReferralReward(ctx context.Context, side string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("side", strings.TrimSpace(side)))
	m.referralRewards.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordLiveFeedDropped increments dropped live feed event counts.
func (m *Metrics) RecordLiveFeedDropped(ctx context.Context, topic string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("topic", strings.TrimSpace(topic)))
	m.liveFeedDropped.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRateLimitDenied increments rate limit deny counts.
func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("endpoint", strings.TrimSpace(endpoint)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"channel":     {},
	"endpoint":    {},
	"entry_type":  {},
	"from_status": {},
	"to_status":   {},
	"reason":      {},
	"side":        {},
	"status_code": {},
	"topic":       {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
