package tessera_test

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/aretw0/tessera"
	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/flow"
)

// ExampleEngine_Run runs a one-state flow over an in-memory source and inspects
// the checkpoint it leaves behind.
func ExampleEngine_Run() {
	f, err := flow.New([]string{"tessera", "pipeline"}).
		RunID("example").
		Sink(func(_ context.Context, fc flow.Context[string]) error {
			text, _ := flow.Value(fc, domain.Text)
			fmt.Println(text)
			return nil
		}).
		State("UPPER").
		NamedPipe("upper", func(_ context.Context, fc flow.Context[string]) (flow.Context[string], error) {
			return flow.Set(fc, domain.Text, strings.ToUpper(fc.Item())), nil
		}).
		Build()
	if err != nil {
		log.Fatal(err)
	}

	engine, err := tessera.New(f)
	if err != nil {
		log.Fatal(err)
	}
	ctx := context.Background()
	if err := engine.Run(ctx); err != nil {
		log.Fatal(err)
	}

	cp, err := engine.Checkpoint(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(cp.State, cp.Item)
	// Output:
	// TESSERA
	// PIPELINE
	// UPPER 2
}
