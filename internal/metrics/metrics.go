package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mealtrack_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mealtrack_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	AdmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mealtrack_admissions_total",
			Help: "Total admission-control decisions.",
		},
		[]string{"decision"},
	)

	AdmissionDenialsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mealtrack_admission_denials_total",
			Help: "Admission denials by the gate that tripped.",
		},
		[]string{"gate"},
	)

	AnalysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mealtrack_analyses_total",
			Help: "Total meal image analyses by outcome.",
		},
		[]string{"status"},
	)

	TranscriptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mealtrack_transcriptions_total",
			Help: "Total audio transcription attempts by outcome.",
		},
		[]string{"status"},
	)

	MealUpsertConflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mealtrack_meal_upsert_conflicts_total",
			Help: "Meal upserts rejected because the id belongs to another user.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		AdmissionsTotal,
		AdmissionDenialsTotal,
		AnalysesTotal,
		TranscriptionsTotal,
		MealUpsertConflictsTotal,
	)
}
