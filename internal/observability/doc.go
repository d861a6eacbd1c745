// Package observability wires logging and metrics for the API server:
// a logrus logger built from configuration, a chi request logger on top of
// it, and the Prometheus collectors exposed on /metrics.
package observability
