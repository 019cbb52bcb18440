package domain

// Metadata keys shared by contexts, runners and state managers.
const (
	// MetaPreventSink marks the current step output as not to be sunk.
	MetaPreventSink = "prevent_sink"

	// MetaPreventStateUpdate marks the current step as not advancing the checkpoint.
	MetaPreventStateUpdate = "prevent_state_update"

	// MetaRunID identifies a run. State managers key checkpoints by it.
	MetaRunID = "run_id"

	// MetaFlow is the optional flow name, used as a run key namespace.
	MetaFlow = "flow"

	// MetaProcessedChunks holds the hashes of chunks already completed by a batch run.
	MetaProcessedChunks = "processed_chunks"

	// MetaChunkHash holds the hash of the chunk currently processed by a batch run.
	MetaChunkHash = "chunk_hash"
)

// DefaultRunID is used when metadata carries no run identity.
const DefaultRunID = "default"
