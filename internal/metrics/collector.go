// Package metrics exposes simulator and renderer activity as prometheus
// collectors and accumulates per-run field statistics.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/san-kum/fieldsim/internal/queue"
)

// Collector implements solver.Observer and counts scene messages.
type Collector struct {
	registry *prometheus.Registry
	fps      *FPSMeter

	Frames   prometheus.Counter
	Passes   *prometheus.CounterVec
	StepTime prometheus.Histogram
	FPS      prometheus.Gauge
	Messages *prometheus.CounterVec
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		fps:      NewFPSMeter(DefaultFPSWindow, nil),
		Frames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fieldsim_frames_total",
			Help: "Simulation steps completed",
		}),
		Passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fieldsim_passes_total",
			Help: "Full-screen passes executed per program",
		}, []string{"program"}),
		StepTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fieldsim_step_seconds",
			Help:    "Wall time of one simulation step",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		FPS: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fieldsim_fps",
			Help: "Steps per second over the last window",
		}),
		Messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fieldsim_queue_messages_total",
			Help: "Scene messages dispatched per kind",
		}, []string{"kind"}),
	}
	c.registry.MustRegister(c.Frames, c.Passes, c.StepTime, c.FPS, c.Messages)
	return c
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func (c *Collector) OnPass(program string, _ int) {
	c.Passes.WithLabelValues(program).Inc()
}

func (c *Collector) OnStep(_ int, elapsed time.Duration) {
	c.Frames.Inc()
	c.StepTime.Observe(elapsed.Seconds())
	c.FPS.Set(c.fps.Tick())
}

// ObserveMessage counts a dispatched scene message.
func (c *Collector) ObserveMessage(m queue.Message) {
	c.Messages.WithLabelValues(m.Kind()).Inc()
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string, h http.Handler, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errc := make(chan error, 1)
	go func() {
		logger.Info("metrics server listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdown)
	}
}
