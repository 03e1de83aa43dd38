/*
Package ports defines the driven ports (interfaces) used around the undolog engine.

These interfaces decouple the engine and its adapters from concrete backends.

# Key Interfaces

  - Journal: an append-only audit trail of log events (memory or Redis Streams).
  - DistributedLocker: serializes one session across replicas (Redis).

RunJournalContract is a reusable test suite every Journal adapter runs.
*/
package ports
