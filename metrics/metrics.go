package metrics

import (
	"context"
	"net/http"

	"github.com/farca/storefront/auth"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records the storefront counters
type Collector struct {
	signInSuccess prometheus.Counter
	signInDenied  *prometheus.CounterVec
	signInFailure prometheus.Counter
	signOut       prometheus.Counter
	provisioned   *prometheus.CounterVec
	statusChanged *prometheus.CounterVec
	ordersCreated prometheus.Counter
	httpStatus    *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		signInSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_signin_success_total",
			Help: "Successful, guard-approved sign-ins.",
		}),
		signInDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_signin_denied_total",
			Help: "Sign-ins with valid credentials refused by the status guard.",
		}, []string{"reason"}),
		signInFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_signin_failure_total",
			Help: "Sign-ins rejected at the credential check.",
		}),
		signOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_signout_total",
			Help: "Completed sign-outs.",
		}),
		provisioned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_profiles_provisioned_total",
			Help: "Profiles created or reactivated during registration.",
		}, []string{"outcome"}),
		statusChanged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_profile_status_changes_total",
			Help: "Admin-driven profile status transitions.",
		}, []string{"to"}),
		ordersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_orders_created_total",
			Help: "Orders placed by clients.",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_http_status_total",
			Help: "Responses by HTTP status code.",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.signInSuccess,
		c.signInDenied,
		c.signInFailure,
		c.signOut,
		c.provisioned,
		c.statusChanged,
		c.ordersCreated,
		c.httpStatus,
	)

	return c
}

// RecordOrderCreated counts a placed order.
func (c *Collector) RecordOrderCreated() {
	c.ordersCreated.Inc()
}

// RecordHTTPStatus counts a response status code.
func (c *Collector) RecordHTTPStatus(statusCode string) {
	c.httpStatus.WithLabelValues(statusCode).Inc()
}

// ActivitySink adapts the collector to the auth activity stream so auth
// events count themselves without the core knowing about prometheus.
func (c *Collector) ActivitySink() auth.ActivitySink {
	return auth.ActivitySinkFunc(func(_ context.Context, event auth.ActivityEvent) error {
		switch event.EventType {
		case auth.ActivityEventSignInSuccess:
			c.signInSuccess.Inc()
		case auth.ActivityEventSignInDenied, auth.ActivityEventRestoreDenied:
			reason, _ := event.Metadata["reason"].(string)
			if reason == "" {
				reason = "unknown"
			}
			c.signInDenied.WithLabelValues(reason).Inc()
		case auth.ActivityEventSignInFailure:
			c.signInFailure.Inc()
		case auth.ActivityEventSignOut:
			c.signOut.Inc()
		case auth.ActivityEventProfileProvisioned:
			c.provisioned.WithLabelValues("created").Inc()
		case auth.ActivityEventProfileReactivated:
			c.provisioned.WithLabelValues("reactivated").Inc()
		case auth.ActivityEventProfileStatusChanged:
			to := event.ToStatus
			if to == "" {
				to = "unknown"
			}
			c.statusChanged.WithLabelValues(to).Inc()
		}
		return nil
	})
}

// Handler returns the scrape endpoint handler.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
