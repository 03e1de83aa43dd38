/*
Package observability provides tools for monitoring command logs.

Everything here plugs into a log through domain.LifecycleHooks:

  - Metrics: Prometheus counters, a per-log depth gauge and a steps histogram.
  - JournalHooks: appends every event to a ports.Journal (memory or Redis Streams).

Combine several with domain.CombineHooks.
*/
package observability
