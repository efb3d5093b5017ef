package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	messagesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gunther_messages_received_total",
		Help: "Total number of messages received",
	})

	commandsExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gunther_commands_executed_total",
		Help: "Total number of commands executed",
	}, []string{"command"})

	translationsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gunther_translations_resolved_total",
		Help: "Total number of resolved translations by origin tier",
	}, []string{"origin"})

	translationsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gunther_translations_rejected_total",
		Help: "Total number of rejected translation requests",
	}, []string{"reason"})

	providerRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gunther_provider_request_duration_seconds",
		Help:    "Duration of remote translation provider requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider", "status"})

	quotaDenied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gunther_quota_denied_total",
		Help: "Total number of denied provider calls",
	}, []string{"reason"})

	quizOffers = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gunther_quiz_offers_total",
		Help: "Total number of quiz offers sent",
	})

	quizAnswers = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gunther_quiz_answers_total",
		Help: "Total number of quiz answers by result",
	}, []string{"result"})
)

// Metrics provides methods to record metrics
type Metrics struct{}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordMessageReceived records a received message
func (m *Metrics) RecordMessageReceived() {
	messagesReceived.Inc()
}

// RecordCommandExecuted records an executed command
func (m *Metrics) RecordCommandExecuted(command string) {
	commandsExecuted.WithLabelValues(command).Inc()
}

// RecordResolution records a resolved translation and its origin tier
func (m *Metrics) RecordResolution(origin string) {
	translationsResolved.WithLabelValues(origin).Inc()
}

// RecordRejection records a rejected translation request
func (m *Metrics) RecordRejection(reason string) {
	translationsRejected.WithLabelValues(reason).Inc()
}

// RecordProviderRequest records a remote provider call
func (m *Metrics) RecordProviderRequest(provider, status string, duration time.Duration) {
	providerRequestDuration.WithLabelValues(provider, status).Observe(duration.Seconds())
}

// RecordQuotaDenied records a denied provider call
func (m *Metrics) RecordQuotaDenied(reason string) {
	quotaDenied.WithLabelValues(reason).Inc()
}

// RecordQuizOffer records a quiz offer sent to a user
func (m *Metrics) RecordQuizOffer() {
	quizOffers.Inc()
}

// RecordQuizAnswer records a quiz answer result ("correct" or "mistake")
func (m *Metrics) RecordQuizAnswer(result string) {
	quizAnswers.WithLabelValues(result).Inc()
}

// StartMetricsServer starts the metrics HTTP server
func StartMetricsServer(port int, path string) error {
	router := mux.NewRouter()
	router.Handle(path, promhttp.Handler())

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	addr := fmt.Sprintf(":%d", port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return server.ListenAndServe()
}
