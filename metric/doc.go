// Package metric provides Prometheus-based metrics collection and an HTTP server
// for ringkit tools.
//
// The package offers a registry holding both core process metrics (lines read and
// emitted, truncations, classified errors) and component-specific metrics such as the
// ones pkg/buffer registers through WithMetrics.
//
// # Basic Usage
//
//	registry := metric.NewMetricsRegistry()
//	server := metric.NewServer(9090, "/metrics", registry)
//
//	errc := make(chan error, 1)
//	if err := server.Start(errc); err != nil {
//	    return err
//	}
//	defer server.Stop(context.Background())
//
//	registry.CoreMetrics().RecordLineRead("app.log")
//
// Metrics are served at http://localhost:9090/metrics with a health check at /health.
//
// # Component Metrics
//
// Components register their own collectors under a component name. Keys are
// "component.metric". Collectors sharing a Prometheus name must differ in their const
// label values, which is why components attach a "component" label.
//
//	err := registry.RegisterCounter("udp_input", "buffer_writes", counter)
//
// Registering the same key twice returns an Invalid classified error.
package metric
