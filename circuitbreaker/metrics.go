package circuitbreaker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var fastFailCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ottoai_breaker_fast_fail_total",
	Help: "Calls rejected by an open circuit breaker without reaching the downstream service",
}, []string{"tenant", "service"})
