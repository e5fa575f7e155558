package telemetry

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/grafana/pyroscope-go"
	"go.uber.org/zap"
)

// ProfilerConfig holds the pyroscope settings
type ProfilerConfig struct {
	Enabled         bool
	ServerAddress   string
	ApplicationName string
}

// Profiler streams CPU and heap profiles to pyroscope
type Profiler struct {
	profiler *pyroscope.Profiler
	logger   *zap.Logger
	mu       sync.Mutex
}

var defaultProfileTypes = []pyroscope.ProfileType{
	pyroscope.ProfileCPU,
	pyroscope.ProfileAllocSpace,
	pyroscope.ProfileInuseSpace,
	pyroscope.ProfileGoroutines,
}

// NewProfiler starts continuous profiling, or returns an idle profiler when disabled
func NewProfiler(cfg ProfilerConfig, logger *zap.Logger) (*Profiler, error) {
	p := &Profiler{logger: logger}
	if !cfg.Enabled {
		return p, nil
	}
	if cfg.ServerAddress == "" || cfg.ApplicationName == "" {
		return nil, fmt.Errorf("profiler requires a server address and an application name")
	}

	tags := map[string]string{}
	if hostname, err := os.Hostname(); err == nil {
		tags["hostname"] = hostname
	}

	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: cfg.ApplicationName,
		ServerAddress:   cfg.ServerAddress,
		Logger:          pyroscopeLogger{logger.Sugar().Named("pyroscope")},
		Tags:            tags,
		ProfileTypes:    defaultProfileTypes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start pyroscope profiler: %w", err)
	}
	p.profiler = profiler
	logger.Info("Pyroscope profiler started", zap.String("server_address", cfg.ServerAddress))
	return p, nil
}

// IsRunning reports whether profiles are being sent
func (p *Profiler) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.profiler != nil
}

// Stop flushes and stops the profiler; later calls do nothing
func (p *Profiler) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.profiler == nil {
		return nil
	}
	err := p.profiler.Stop()
	p.profiler = nil
	return err
}

// Shutdown lets the profiler sit next to the OTel providers in shutdown lists
func (p *Profiler) Shutdown(context.Context) error {
	return p.Stop()
}

// WithProfilingLabels runs fn with pprof labels attached so samples taken
// inside it can be filtered in pyroscope
func WithProfilingLabels(ctx context.Context, fn func(context.Context), keyValues ...string) {
	pyroscope.TagWrapper(ctx, pyroscope.Labels(keyValues...), fn)
}

type pyroscopeLogger struct {
	*zap.SugaredLogger
}

func (l pyroscopeLogger) Infof(format string, args ...any)  { l.SugaredLogger.Debugf(format, args...) }
func (l pyroscopeLogger) Debugf(format string, args ...any) { l.SugaredLogger.Debugf(format, args...) }
func (l pyroscopeLogger) Errorf(format string, args ...any) { l.SugaredLogger.Errorf(format, args...) }
