// Package prometheus exports coursegate metrics through prometheus/client_golang.
//
// [NewPrometheusExporter] registers a [Collector] on a private registry and exposes it with
// promhttp. Counter names are prefixed coursegate_ and end in _total; the single histogram
// is coursegate_backend_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry. Callers mount the Handler.
//   - Mutate engine state.
package prometheus
