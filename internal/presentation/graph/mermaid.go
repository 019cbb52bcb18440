package graph

import (
	"fmt"
	"slices"
	"strings"

	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/flow"
)

// Stage is a declared state and the names of its steps, in order.
type Stage struct {
	State domain.State
	Steps []Step
}

// Step is one pipe or window of a stage.
type Step struct {
	Name     string
	Windowed bool
}

// Overlay marks run progress on the graph.
type Overlay struct {
	// Current is the checkpointed state.
	Current domain.State
	// Item is the checkpointed item index within Current.
	Item int
}

// FromFlow lists the stages of f in declaration order.
func FromFlow[T any](f *flow.Flow[T]) []Stage {
	var stages []Stage
	for _, state := range f.States() {
		steps, _ := f.Steps(state)
		stage := Stage{State: state}
		for _, s := range steps {
			stage.Steps = append(stage.Steps, Step{Name: s.Name, Windowed: s.Windowed()})
		}
		stages = append(stages, stage)
	}
	return stages
}

// GenerateMermaid renders stages as a Mermaid flowchart: one subgraph per state,
// steps chained inside it and states chained in order.
// Windowed steps use the subroutine shape [[...]].
// With an overlay, states before Current are styled visited and Current is styled current.
func GenerateMermaid(stages []Stage, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, stage := range stages {
		id := sanitizeMermaidID(string(stage.State))
		label := string(stage.State)
		if overlay != nil && overlay.Current == stage.State {
			label = fmt.Sprintf("%s <br/> item %d", label, overlay.Item)
		}
		fmt.Fprintf(&sb, "    subgraph %s[\"%s\"]\n", id, label)
		prev := ""
		for i, step := range stage.Steps {
			stepID := fmt.Sprintf("%s_%d", id, i)
			opener, closer := "[", "]"
			if step.Windowed {
				opener, closer = "[[", "]]"
			}
			fmt.Fprintf(&sb, "        %s%s\"%s\"%s\n", stepID, opener, strings.ReplaceAll(step.Name, "\"", "'"), closer)
			if prev != "" {
				fmt.Fprintf(&sb, "        %s --> %s\n", prev, stepID)
			}
			prev = stepID
		}
		sb.WriteString("    end\n")
	}

	for i := 1; i < len(stages); i++ {
		fmt.Fprintf(&sb, "    %s --> %s\n",
			sanitizeMermaidID(string(stages[i-1].State)),
			sanitizeMermaidID(string(stages[i].State)))
	}

	if overlay != nil {
		idx := slices.IndexFunc(stages, func(s Stage) bool { return s.State == overlay.Current })
		if idx >= 0 {
			sb.WriteString("\n    %% Overlay Styles\n")
			sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
			sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
			for _, stage := range stages[:idx] {
				fmt.Fprintf(&sb, "    class %s visited;\n", sanitizeMermaidID(string(stage.State)))
			}
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(string(overlay.Current)))
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	return strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_").Replace(id)
}
