// Package health tracks the health of the long-running parts of a pipeline and
// serves it over HTTP.
//
// A Status carries one of three states. Aggregation takes the worst state of
// its children:
//
//	healthy    working normally
//	degraded   working, but recovering from a transient failure or losing data
//	unhealthy  stopped by an invalid or fatal failure
//
// Components report into a shared Monitor:
//
//	monitor := health.NewMonitor()
//	monitor.UpdateHealthy("follower", "following app.log")
//	monitor.Update("follower", health.FromError("follower", err))
//
// Monitor.Handler serves the aggregate as JSON and answers 503 while any
// component is unhealthy:
//
//	server := metric.NewServer(9090, "/metrics", registry,
//	    metric.WithHealthHandler(monitor.Handler("ringtail")))
//
// Messages built by FromError are sanitized: URLs, file paths, IP addresses,
// ports and credential assignments are replaced with placeholders such as
// [PATH] and [REDACTED].
package health
