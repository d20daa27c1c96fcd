// Package metrics exposes prometheus collectors for command processing and
// content stream writes.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/zjrosen/contentgraph/internal/cachemanager"
	"github.com/zjrosen/contentgraph/internal/command"
	"github.com/zjrosen/contentgraph/internal/contentstream"
	"github.com/zjrosen/contentgraph/internal/processor"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "contentgraph"

// Metrics holds the collectors of one content repository.
type Metrics struct {
	registry  *prometheus.Registry
	namespace string

	commandsHandled      *prometheus.CounterVec
	commandsFailed       *prometheus.CounterVec
	commandDuration      *prometheus.HistogramVec
	eventsAppended       prometheus.Counter
	concurrencyConflicts prometheus.Counter
	rebaseConflicts      prometheus.Counter
}

// New creates the collectors and registers them on a fresh registry.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	m := &Metrics{
		registry:  prometheus.NewRegistry(),
		namespace: namespace,
		commandsHandled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_handled_total",
			Help:      "Commands processed successfully, by command type.",
		}, []string{"type"}),
		commandsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_failed_total",
			Help:      "Commands rejected or failed, by command type.",
		}, []string{"type"}),
		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Time spent handling a command.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"type"}),
		eventsAppended: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_appended_total",
			Help:      "Events appended to content streams.",
		}),
		concurrencyConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "concurrency_conflicts_total",
			Help:      "Appends rejected because the stream moved past the expected version.",
		}),
		rebaseConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rebase_conflicts_total",
			Help:      "Commands that failed to replay during rebase or partial publish/discard.",
		}),
	}
	m.registry.MustRegister(
		m.commandsHandled,
		m.commandsFailed,
		m.commandDuration,
		m.eventsAppended,
		m.concurrencyConflicts,
		m.rebaseConflicts,
	)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveCache exports the counters of a read-through cache, labelled with
// its name. The counters are read at collection time.
func (m *Metrics) ObserveCache(name string, stats func() cachemanager.Stats) error {
	counter := func(metric, help string, value func(cachemanager.Stats) int64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   m.namespace,
			Name:        metric,
			Help:        help,
			ConstLabels: prometheus.Labels{"cache": name},
		}, func() float64 { return float64(value(stats())) })
	}
	collectors := []prometheus.Collector{
		counter("cache_hits_total", "Lookups answered from the cache.", func(s cachemanager.Stats) int64 { return s.Hits }),
		counter("cache_misses_total", "Lookups that had to load the value.", func(s cachemanager.Stats) int64 { return s.Misses }),
		counter("cache_load_errors_total", "Loads that failed and were not cached.", func(s cachemanager.Stats) int64 { return s.LoadErrors }),
	}
	for _, c := range collectors {
		if err := m.registry.Register(c); err != nil {
			return fmt.Errorf("registering %s cache metrics: %w", name, err)
		}
	}
	return nil
}

// ObserveRebaseConflicts counts commands dropped or rejected during replay.
func (m *Metrics) ObserveRebaseConflicts(n int) {
	m.rebaseConflicts.Add(float64(n))
}

// Middleware counts and times every processed command.
func (m *Metrics) Middleware() processor.Middleware {
	return func(next processor.CommandHandler) processor.CommandHandler {
		return processor.HandlerFunc(func(ctx context.Context, cmd command.Command) (*command.CommandResult, error) {
			timer := prometheus.NewTimer(m.commandDuration.WithLabelValues(cmd.Type().String()))
			result, err := next.Handle(ctx, cmd)
			timer.ObserveDuration()

			if err != nil || (result != nil && !result.Success) {
				m.commandsFailed.WithLabelValues(cmd.Type().String()).Inc()
			} else {
				m.commandsHandled.WithLabelValues(cmd.Type().String()).Inc()
			}
			return result, err
		})
	}
}

// Store counts appended events and concurrency conflicts of the wrapped store.
type Store struct {
	contentstream.Store
	m *Metrics
}

// WrapStore wraps store so that its appends are counted.
func (m *Metrics) WrapStore(store contentstream.Store) *Store {
	return &Store{Store: store, m: m}
}

func (s *Store) Append(ctx context.Context, id contentstream.ID, expectedVersion int64, events []contentstream.Event) (int64, error) {
	v, err := s.Store.Append(ctx, id, expectedVersion, events)
	switch {
	case err == nil:
		s.m.eventsAppended.Add(float64(len(events)))
	case errors.Is(err, contentstream.ErrConcurrencyConflict):
		s.m.concurrencyConflicts.Inc()
	}
	return v, err
}

// Sample is one metric value in a Snapshot.
type Sample struct {
	Name   string
	Labels map[string]string
	// Value is the counter value, or the observation count for histograms.
	Value float64
	// Sum is the sum of observations for histograms.
	Sum time.Duration
}

// Snapshot returns the current values ordered by name and labels.
func (m *Metrics) Snapshot() ([]Sample, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return nil, err
	}
	var samples []Sample
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			samples = append(samples, sampleOf(family.GetName(), metric))
		}
	}
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].Name < samples[j].Name
	})
	return samples, nil
}

func sampleOf(name string, metric *dto.Metric) Sample {
	s := Sample{Name: name, Labels: make(map[string]string, len(metric.GetLabel()))}
	for _, l := range metric.GetLabel() {
		s.Labels[l.GetName()] = l.GetValue()
	}
	switch {
	case metric.GetCounter() != nil:
		s.Value = metric.GetCounter().GetValue()
	case metric.GetHistogram() != nil:
		h := metric.GetHistogram()
		s.Value = float64(h.GetSampleCount())
		s.Sum = time.Duration(h.GetSampleSum() * float64(time.Second))
	case metric.GetGauge() != nil:
		s.Value = metric.GetGauge().GetValue()
	}
	return s
}
