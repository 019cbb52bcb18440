/*
Package observability turns runner lifecycle events into structured logs and
Prometheus metrics.

Both are plain domain.LifecycleHooks, so they compose with each other and with
caller hooks through LifecycleHooks.Merge:

	metrics, _ := observability.NewMetrics(prometheus.DefaultRegisterer)
	hooks := observability.LoggingHooks(logger).Merge(metrics.Hooks())
	r := runner.NewRecursive(f, runner.WithLifecycleHooks(hooks))
*/
package observability
