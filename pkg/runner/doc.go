/*
Package runner executes flows with durable, resumable checkpoints.

A Runner processes one state of a flow over every item of its source, writing
the (item, pipe, state) position to the flow's StateManager after each
successful pipe. A crash therefore re-executes at most the pipe that was in
flight. RecursiveRunner chains the runner across the flow's declared states
and resumes wherever a previous invocation stopped. BatchRunner splits the
source into chunks and skips chunks already completed, keyed by a content hash.

# Key Components

  - Runner: checkpointed execution of one state.
  - RecursiveRunner: runs every state from a starting point to the end of the declared order.
  - BatchRunner: chunked execution with an idempotency guard per chunk.

# Usage

	f, err := flow.New(chapters).
		RunID("book-1").
		StateManager(checkpoint.NewManager(file.New(".tessera/checkpoints"))).
		State("clean").Pipe(clean).
		State("translate").Pipe(translate).WaitFor(time.Second).
		Build()
	if err != nil {
		log.Fatal(err)
	}

	if err := runner.NewRecursive(f, runner.WithLogger(logger)).Resume(ctx); err != nil {
		log.Fatal(err)
	}
*/
package runner
