package telemetry

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/infra/config"
)

// Provider holds the process-wide telemetry handles.
type Provider struct {
	tracing *TracerProvider
}

// Attach configures telemetry exporters and returns a provider handle.
// Tracing is optional; without an OTLP endpoint only metrics are active.
func Attach(ctx context.Context, cfg *config.AppConfig, log *zap.Logger) (*Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	p := &Provider{}

	if cfg.Telemetry.OTLPEndpoint != "" {
		tp, err := NewTracerProvider(ctx, cfg.Telemetry, log)
		if err != nil {
			return nil, fmt.Errorf("init tracer provider: %w", err)
		}
		p.tracing = tp
	}

	return p, nil
}

// Shutdown flushes and stops the configured exporters.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.tracing == nil {
		return nil
	}
	return p.tracing.Shutdown(ctx)
}
