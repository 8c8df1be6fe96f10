package lit

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultSuccess = "success"
	resultFailure = "failure"
)

type metrics struct {
	authAttempts *prometheus.CounterVec
	signRequests *prometheus.CounterVec
}

// newMetrics registers on registry when it is not nil. Signers sharing a
// registry share its counters.
func newMetrics(registry prometheus.Registerer) (*metrics, error) {
	authAttempts, err := registerCounterVec(registry, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lit_signer_auth_attempts_total",
			Help: "Authentication attempts by auth context and result",
		},
		[]string{"context", "result"},
	))
	if err != nil {
		return nil, err
	}
	signRequests, err := registerCounterVec(registry, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lit_signer_sign_requests_total",
			Help: "Signing requests by kind and result",
		},
		[]string{"kind", "result"},
	))
	if err != nil {
		return nil, err
	}

	return &metrics{
		authAttempts: authAttempts,
		signRequests: signRequests,
	}, nil
}

func registerCounterVec(registry prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if registry == nil {
		return c, nil
	}
	err := registry.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
			return existing, nil
		}
	}
	return nil, fmt.Errorf("register lit signer metrics: %w", err)
}

func (m *metrics) observeAuth(context string, err error) {
	m.authAttempts.WithLabelValues(context, result(err)).Inc()
}

func (m *metrics) observeSign(kind string, err error) {
	m.signRequests.WithLabelValues(kind, result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return resultFailure
	}
	return resultSuccess
}
