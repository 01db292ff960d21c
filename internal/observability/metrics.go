package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StoreMutations counts store mutations by store, operation and outcome.
	StoreMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "revayat_store_mutations_total",
		Help: "Total number of social store mutations",
	}, []string{"store", "operation", "outcome"})

	// SyncOperations counts remote sync calls by collection, direction and outcome.
	SyncOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "revayat_sync_operations_total",
		Help: "Total number of remote synchronization calls",
	}, []string{"collection", "direction", "outcome"})

	// SyncLatency records remote sync latency by collection and direction.
	SyncLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "revayat_sync_latency_seconds",
		Help:    "Remote synchronization latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"collection", "direction"})

	// ImageUploads counts inline image materializations by outcome.
	ImageUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "revayat_image_uploads_total",
		Help: "Total number of inline image uploads",
	}, []string{"collection", "outcome"})

	// DocumentWrites counts collection documents stored by the remote server.
	DocumentWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "revayat_document_writes_total",
		Help: "Total number of collection documents written",
	}, []string{"collection"})

	// ProxyRequests counts reverse proxy requests by outcome.
	ProxyRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "revayat_proxy_requests_total",
		Help: "Total number of reverse proxy requests",
	}, []string{"outcome"})
)
