// Package metrics expone contadores Prometheus del nucleo de autenticacion.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "veinwise"

// AuthMetrics agrupa los contadores de auth. Un *AuthMetrics nil es valido y no registra nada.
type AuthMetrics struct {
	logins         *prometheus.CounterVec
	registrations  *prometheus.CounterVec
	gateDecisions  *prometheus.CounterVec
	tokenRejected  *prometheus.CounterVec
	sessionExpired prometheus.Counter
}

// NewAuthMetrics registra los contadores en reg.
func NewAuthMetrics(reg prometheus.Registerer) *AuthMetrics {
	factory := promauto.With(reg)
	return &AuthMetrics{
		logins: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "logins_total",
			Help:      "Login attempts by outcome",
		}, []string{"outcome"}),
		registrations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "registrations_total",
			Help:      "Registration attempts by outcome",
		}, []string{"outcome"}),
		gateDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gate",
			Name:      "decisions_total",
			Help:      "Edge gate decisions by action",
		}, []string{"action"}),
		tokenRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "token_rejections_total",
			Help:      "Bearer tokens rejected by reason",
		}, []string{"reason"}),
		sessionExpired: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "expired_total",
			Help:      "Sessions found expired on read",
		}),
	}
}

func (m *AuthMetrics) ObserveLogin(outcome string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(outcome).Inc()
}

func (m *AuthMetrics) ObserveRegistration(outcome string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(outcome).Inc()
}

func (m *AuthMetrics) ObserveGate(action string) {
	if m == nil {
		return
	}
	m.gateDecisions.WithLabelValues(action).Inc()
}

func (m *AuthMetrics) ObserveTokenRejected(reason string) {
	if m == nil {
		return
	}
	m.tokenRejected.WithLabelValues(reason).Inc()
}

func (m *AuthMetrics) ObserveSessionExpired() {
	if m == nil {
		return
	}
	m.sessionExpired.Inc()
}
