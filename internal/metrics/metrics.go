// Package metrics counts and times the migrations a runner performs.
package metrics

import (
	"time"

	"github.com/denismitr/shale/migration"
	"github.com/prometheus/client_golang/prometheus"
)

const DefaultNamespace = "shale"

const (
	DirectionUp   = "up"
	DirectionDown = "down"

	statusPerformed = "performed"
	statusSkipped   = "skipped"
	statusFailed    = "failed"
)

// Collector owns its registry unless one is handed in, so that several runners
// in one process do not clash on registration.
type Collector struct {
	registry prometheus.Registerer

	Migrations        *prometheus.CounterVec
	MigrationDuration *prometheus.HistogramVec
}

func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	c := &Collector{
		registry: reg,
		Migrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "migrations_total",
			Help:      "Total number of migrations handled by direction, repository and status",
		}, []string{"direction", "repository", "status"}),
		MigrationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "migration_duration_seconds",
			Help:      "Duration of performed migrations in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"direction", "repository"}),
	}

	reg.MustRegister(c.Migrations, c.MigrationDuration)

	return c
}

func (c *Collector) Registry() prometheus.Registerer {
	return c.registry
}

// Observe records the outcome of one PerformUp or PerformDown call. It is safe on a nil Collector.
func (c *Collector) Observe(direction, repository string, res migration.Result, took time.Duration, err error) {
	if c == nil {
		return
	}

	status := statusSkipped
	switch {
	case err != nil:
		status = statusFailed
	case res == migration.Performed:
		status = statusPerformed
		c.MigrationDuration.WithLabelValues(direction, repository).Observe(took.Seconds())
	}

	c.Migrations.WithLabelValues(direction, repository, status).Inc()
}
