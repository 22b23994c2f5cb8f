// Package metrics регистрирует prometheus-метрики сервиса.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics содержит коллекторы геймификации и HTTP
type Metrics struct {
	XPAwarded            *prometheus.CounterVec
	LevelUps             prometheus.Counter
	AchievementsUnlocked *prometheus.CounterVec
	QuizSubmissions      *prometheus.CounterVec
	QuizzesGenerated     *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
}

// New создает коллекторы и регистрирует их в reg.
// nil reg означает отдельный реестр (удобно для тестов).
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		XPAwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studyquest",
			Name:      "xp_awarded_total",
			Help:      "XP awarded to users, by reason.",
		}, []string{"reason"}),
		LevelUps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "studyquest",
			Name:      "level_ups_total",
			Help:      "Events that raised a user's level.",
		}),
		AchievementsUnlocked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studyquest",
			Name:      "achievements_unlocked_total",
			Help:      "Achievements unlocked, by rarity.",
		}, []string{"rarity"}),
		QuizSubmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studyquest",
			Name:      "quiz_submissions_total",
			Help:      "Scored quiz attempts, by result.",
		}, []string{"result"}),
		QuizzesGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studyquest",
			Name:      "quizzes_generated_total",
			Help:      "Quiz generation requests, by outcome.",
		}, []string{"outcome"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "studyquest",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(
		m.XPAwarded,
		m.LevelUps,
		m.AchievementsUnlocked,
		m.QuizSubmissions,
		m.QuizzesGenerated,
		m.HTTPRequestDuration,
	)
	return m
}

// ObserveXP учитывает начисление XP
func (m *Metrics) ObserveXP(reason string, amount int, leveledUp bool) {
	if m == nil {
		return
	}
	if amount > 0 {
		m.XPAwarded.WithLabelValues(reason).Add(float64(amount))
	}
	if leveledUp {
		m.LevelUps.Inc()
	}
}

// ObserveAchievement учитывает разблокировку достижения
func (m *Metrics) ObserveAchievement(rarity string) {
	if m == nil {
		return
	}
	m.AchievementsUnlocked.WithLabelValues(rarity).Inc()
}

// ObserveQuizSubmission учитывает оцененную попытку
func (m *Metrics) ObserveQuizSubmission(passed bool) {
	if m == nil {
		return
	}
	result := "failed"
	if passed {
		result = "passed"
	}
	m.QuizSubmissions.WithLabelValues(result).Inc()
}

// ObserveQuizGeneration учитывает исход генерации квиза
func (m *Metrics) ObserveQuizGeneration(outcome string) {
	if m == nil {
		return
	}
	m.QuizzesGenerated.WithLabelValues(outcome).Inc()
}

// GinMiddleware измеряет длительность HTTP-запросов по шаблону маршрута
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
