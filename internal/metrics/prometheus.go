package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AnarQorp/qnet-scheduler/internal/logger"
)

var (
	decisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qnet_scheduler_decisions_total",
			Help: "Total load balancing decisions by strategy",
		},
		[]string{"strategy"},
	)

	scalingActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qnet_scheduler_scaling_actions_total",
			Help: "Total scaling actions by type and result",
		},
		[]string{"type", "result"},
	)

	triggerFiringsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qnet_scheduler_trigger_firings_total",
			Help: "Total scaling trigger firings by action",
		},
		[]string{"action"},
	)

	nodeCompositeLoad = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "qnet_scheduler_node_composite_load",
			Help: "Composite load (0-100) per node",
		},
		[]string{"node"},
	)

	poolSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "qnet_scheduler_pool_current_size",
			Help: "Current size per node pool",
		},
		[]string{"pool"},
	)

	profileOverall = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "qnet_scheduler_node_profile_overall",
			Help: "Overall performance score (0-100) per node",
		},
		[]string{"node"},
	)

	metricsIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qnet_scheduler_performance_metrics_total",
			Help: "Total performance metric samples ingested",
		},
	)

	modelAccuracy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "qnet_scheduler_model_accuracy",
			Help: "Current prediction model accuracy",
		},
	)
)

func RecordDecision(strategy string) {
	decisionsTotal.WithLabelValues(strategy).Inc()
}

func RecordScalingAction(actionType, result string) {
	scalingActionsTotal.WithLabelValues(actionType, result).Inc()
}

func RecordTriggerFiring(action string) {
	triggerFiringsTotal.WithLabelValues(action).Inc()
}

func SetNodeCompositeLoad(nodeID string, load float64) {
	nodeCompositeLoad.WithLabelValues(nodeID).Set(load)
}

func DeleteNodeCompositeLoad(nodeID string) {
	nodeCompositeLoad.DeleteLabelValues(nodeID)
}

func SetPoolSize(poolID string, size int) {
	poolSize.WithLabelValues(poolID).Set(float64(size))
}

func SetProfileOverall(nodeID string, score float64) {
	profileOverall.WithLabelValues(nodeID).Set(score)
}

func RecordMetricIngested() {
	metricsIngested.Inc()
}

func SetModelAccuracy(accuracy float64) {
	modelAccuracy.Set(accuracy)
}

// Handler exposes the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// StartServer serves /metrics on its own port when the embedded API server
// is not wanted in front of it.
func StartServer(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	addr := ":" + strconv.Itoa(port)
	logger.Infof("Prometheus metrics server listening on %s", addr)

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Errorf("Prometheus server error: %v", err)
		}
	}()
}
