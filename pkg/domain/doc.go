/*
Package domain contains the core types shared by the undolog engine and its adapters.

It is kept free of I/O and persistence concerns so that adapters (HTTP, MCP, Redis)
can depend on it without pulling in the engine itself.

# Key Entities

  - Action: an opaque reversal or finalization step (Invoke() error).
  - TxID: the stable identity of a sealed transaction inside one log.
  - TxInfo: a read-only view of a transaction used for introspection.
  - TxEvent / LifecycleHooks: notifications emitted after every change to a log.
  - UsageError and the sentinel errors: misuse versus "nothing happened" outcomes.
*/
package domain
