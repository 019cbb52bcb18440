package chapters

import (
	"context"
	"fmt"

	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/flow"
)

// CommandRunner runs a named external command over input.
type CommandRunner interface {
	Run(ctx context.Context, name string, input string, args map[string]any) (string, error)
}

// SummarizeWith pipes the chapter text through tool and keeps its output as the chapter context.
// A failing or silent command fails the item, not the run.
func SummarizeWith(r CommandRunner, tool string) flow.Pipe[Chapter] {
	return func(ctx context.Context, fc flow.Context[Chapter]) (flow.Context[Chapter], error) {
		text, err := requireText(fc)
		if err != nil {
			return fc, err
		}
		out, err := r.Run(ctx, tool, text, map[string]any{
			"chapter": fc.Item().Number,
			"title":   fc.Item().Title,
		})
		if err != nil {
			return fc, domain.NewFlowError(fmt.Sprintf("summarizing chapter %d", fc.Item().Number), err)
		}
		if out == "" {
			return fc, domain.NewFlowError(fmt.Sprintf("%s returned no summary for chapter %d", tool, fc.Item().Number), nil)
		}
		return flow.Set(fc, domain.Context, out), nil
	}
}
