package keepalive

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Guard is the platform hook that requests and drops elevated execution
// priority (a foreground-service equivalent) for the process.
type Guard interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// PermissionRequester asks the platform for the permission a Guard needs to
// show its user-visible indicator.
type PermissionRequester interface {
	EnsurePermission(ctx context.Context) (bool, error)
}

type NoopGuard struct{}

func (NoopGuard) Start(context.Context) error { return nil }
func (NoopGuard) Stop(context.Context) error  { return nil }

// FuncGuard adapts host callbacks; nil funcs are no-ops.
type FuncGuard struct {
	StartFunc func(ctx context.Context) error
	StopFunc  func(ctx context.Context) error
}

func (g FuncGuard) Start(ctx context.Context) error {
	if g.StartFunc == nil {
		return nil
	}
	return g.StartFunc(ctx)
}

func (g FuncGuard) Stop(ctx context.Context) error {
	if g.StopFunc == nil {
		return nil
	}
	return g.StopFunc(ctx)
}

// IndicatorGuard is the headless guard: it logs a low-priority notice while
// entries are being analysed and mirrors the state into a gauge.
type IndicatorGuard struct {
	logger *slog.Logger
	active prometheus.Gauge
}

func NewIndicatorGuard(logger *slog.Logger, reg prometheus.Registerer) *IndicatorGuard {
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "wellnesswingman",
		Subsystem: "keepalive",
		Name:      "active",
		Help:      "1 while the keep-alive indicator is held",
	})
	if reg != nil {
		reg.MustRegister(gauge)
	}
	return &IndicatorGuard{logger: logger, active: gauge}
}

func (g *IndicatorGuard) Start(ctx context.Context) error {
	g.active.Set(1)
	g.logger.InfoContext(ctx, "processing entries in background", "indicator", "on")
	return nil
}

func (g *IndicatorGuard) Stop(ctx context.Context) error {
	g.active.Set(0)
	g.logger.InfoContext(ctx, "background processing finished", "indicator", "off")
	return nil
}

type StaticPermission bool

func (p StaticPermission) EnsurePermission(context.Context) (bool, error) {
	return bool(p), nil
}

type PermissionFunc func(ctx context.Context) (bool, error)

func (f PermissionFunc) EnsurePermission(ctx context.Context) (bool, error) {
	return f(ctx)
}
