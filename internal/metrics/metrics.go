package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Circulation counters. Promotions are counted separately from direct
// borrows even though both write a CHECKOUT activity.
var (
	BorrowsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "openshelf_borrows_total",
		Help: "Books borrowed directly by a user.",
	})
	ReturnsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "openshelf_returns_total",
		Help: "Books returned.",
	})
	PromotionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "openshelf_promotions_total",
		Help: "Returned books handed straight to the next queued reservation.",
	})
	ReservationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "openshelf_reservations_total",
		Help: "Reservations placed.",
	})
)

// Handler exposes the default registry.
func Handler() http.Handler { return promhttp.Handler() }
