package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Register attaches the Prometheus metrics endpoint to the router.
func Register(router *gin.Engine, path string) {
	router.GET(path, gin.WrapH(promhttp.Handler()))
}

var (
	// UploadsTotal counts asset uploads by outcome.
	UploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blog",
		Subsystem: "assets",
		Name:      "uploads_total",
		Help:      "Asset uploads by outcome.",
	}, []string{"outcome"})

	// CompressionSeconds observes how long quality searches take.
	CompressionSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "blog",
		Subsystem: "assets",
		Name:      "compression_seconds",
		Help:      "Duration of image compression quality searches.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	})

	// CompensatingDeletesTotal counts best-effort object cleanups after a
	// failed metadata write, by result.
	CompensatingDeletesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blog",
		Subsystem: "assets",
		Name:      "compensating_deletes_total",
		Help:      "Compensating object deletions after metadata failures.",
	}, []string{"result"})
)
