/*
Package domain contains the core value types of the Tessera engine.

It defines the versioned argument model that pipes exchange through a flow
context, the typed slot registry used to address those arguments, the
checkpoint model persisted by state managers, and the error taxonomy shared
by every layer. The package has no I/O and no dependency on the runner.

# Key Entities

  - Argument: a named, versioned (new, old, alt, copy) value slot.
  - Arguments: the normalized, ordered argument list carried by a context.
  - Key / Slot: typed access to well-known arguments without string lookups.
  - Checkpoint: the durable (item, pipe, state) position of a run.
  - FlowError / ArgumentError: domain failures raised by pipes.
*/
package domain
