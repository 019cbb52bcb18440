/*
Package ports defines the driven ports (interfaces) of the Tessera engine.

These interfaces decouple the runner from storage and coordination backends,
so the same flow can checkpoint to memory, files, SQLite or Redis.

# Key Interfaces

  - StateManager: the durable (item, pipe, state) position of a run plus the chunk idempotency guard.
  - CheckpointStore: raw checkpoint persistence implemented by adapters.
  - Locker: cross-process serialization of runs sharing a run key.
*/
package ports
