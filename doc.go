/*
Package tessera is a checkpointed, resumable pipeline engine.

A flow declares ordered states, each a sequence of pipes applied to every item of a
source. Pipes exchange data through an immutable, versioned argument context; after
each pipe the position (state, item, pipe) is checkpointed, so an interrupted run
resumes exactly where it stopped instead of starting over.

# Concept

  - Flow: states, steps and hooks, built with flow.New.
  - Context: the arguments an item carries between pipes. Setting a value keeps the
    previous one as an "old" version, which later pipes can replay as history.
  - Checkpoint: the durable position of a run, keyed by its run key and persisted by a
    ports.CheckpointStore (memory, file, redis or sqlite).
  - Error strategy: FailFast, IgnoreErrors or RetryAfterDelay decide what a failed
    item does to the run.

# Usage

	f, err := flow.New(chapters).
		RunID("novel-42").
		StateManager(checkpoint.NewManager(file.New(".tessera/checkpoints"))).
		State("CLEAN").NamedPipe("clean", clean).
		State("TRANSLATE").NamedPipe("translate", translate).
		Build()
	if err != nil {
		log.Fatal(err)
	}

	engine, err := tessera.New(f, tessera.WithChunkSize(10))
	if err != nil {
		log.Fatal(err)
	}
	if err := engine.Run(ctx); err != nil {
		log.Fatal(err)
	}

Running the same engine again after a crash continues from the stored checkpoint.
With a chunk size, completed chunks are remembered by content hash and skipped.
*/
package tessera
