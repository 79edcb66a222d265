package monitoring

import (
	"context"
	"log/slog"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	purchaseAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_purchase_attempts_total",
			Help: "Purchase attempts by category and outcome",
		},
		[]string{"category", "outcome"},
	)

	verificationChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_verification_checks_total",
			Help: "Public verification checks by result",
		},
		[]string{"result"},
	)

	ticketsSold = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tickets_sold",
			Help: "Quantity sold (pending + verified) per category",
		},
		[]string{"category"},
	)

	ticketsRemaining = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tickets_remaining",
			Help: "Remaining capacity per category",
		},
		[]string{"category"},
	)
)

// TrackPurchase records one purchase attempt outcome.
func TrackPurchase(category, outcome string) {
	purchaseAttempts.WithLabelValues(category, outcome).Inc()
}

// TrackVerificationCheck records one public verification check.
func TrackVerificationCheck(result string) {
	verificationChecks.WithLabelValues(result).Inc()
}

type dbProvider interface {
	DB() dbx.Builder
}

// Monitor periodically recomputes per-category sold/remaining gauges
// from the document store.
type Monitor struct {
	db       dbProvider
	limits   func(ctx context.Context) (map[string]int, error)
	interval time.Duration
	logger   *slog.Logger
}

func NewMonitor(db dbProvider, limits func(ctx context.Context) (map[string]int, error), interval time.Duration, logger *slog.Logger) *Monitor {
	return &Monitor{
		db:       db,
		limits:   limits,
		interval: interval,
		logger:   logger,
	}
}

// Start runs the collection loop until ctx is cancelled.
func (m *Monitor) Start(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.collect(ctx)
		}
	}
}

func (m *Monitor) collect(ctx context.Context) {
	var rows []struct {
		Category string `db:"category"`
		Sold     int    `db:"sold"`
	}

	err := m.db.DB().
		Select("category", "COALESCE(SUM(quantity), 0) AS sold").
		From("tickets").
		Where(dbx.In("status", "pending", "verified")).
		GroupBy("category").
		All(&rows)
	if err != nil {
		m.logger.Warn("sold-count collection failed", "error", err)
		return
	}

	soldByCategory := make(map[string]int, len(rows))
	for _, row := range rows {
		soldByCategory[row.Category] = row.Sold
	}

	limits, err := m.limits(ctx)
	if err != nil {
		m.logger.Warn("category limits unavailable", "error", err)
		return
	}

	for category, limit := range limits {
		sold := soldByCategory[category]
		remaining := limit - sold
		if remaining < 0 {
			remaining = 0
		}
		ticketsSold.WithLabelValues(category).Set(float64(sold))
		ticketsRemaining.WithLabelValues(category).Set(float64(remaining))
	}
}
