package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the application.
// It covers inbound command traffic, work-message parse outcomes,
// the duplicate confirmation protocol, and the latency of the
// database and the Bitrix24 webhooks.
type Metrics struct {
	CommandReceived    *prometheus.CounterVec   // Counter for received commands
	MessagesParsed     *prometheus.CounterVec   // Counter for work-message parse outcomes
	RecordsSaved       *prometheus.CounterVec   // Counter for persisted work records
	DuplicatePrompts   prometheus.Counter       // Counter for duplicate confirmation prompts
	DBQueryDuration    *prometheus.HistogramVec // Histogram for database query durations
	CRMRequestDuration *prometheus.HistogramVec // Histogram for Bitrix24 webhook call durations
}

// NewMetrics creates a new Metrics instance with the provided Prometheus
// Registerer and registers every instrument on it.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		CommandReceived: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "telegram_commands_received_total",
			Help: "Total number of used commands",
		}, []string{"command"}), // command: /info, /team_stats, /export
		MessagesParsed: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "telegram_messages_parsed_total",
			Help: "Work-message parse attempts by outcome",
		}, []string{"outcome"}), // outcome: ok, no_match, error
		RecordsSaved: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "records_saved_total",
			Help: "Total number of persisted work records",
		}, []string{"department"}), // department: support, pre_trial
		DuplicatePrompts: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "duplicate_confirmation_prompts_total",
			Help: "Total number of duplicate confirmation prompts shown",
		}),
		DBQueryDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "telegram_db_query_duration_seconds",
			Help:    "Duration of database queries.",
			Buckets: prometheus.DefBuckets,
		}, []string{"query_type"}), // query_type: 'add_record', 'team_stats'
		CRMRequestDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bitrix_request_duration_seconds",
			Help:    "Duration of Bitrix24 webhook calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}), // method: submit, contact_find
	}
}
