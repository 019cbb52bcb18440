package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	httpadapter "github.com/aretw0/tessera/pkg/adapters/http"
	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/ports"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// PrintStatus renders one row per stored run.
func PrintStatus(ctx context.Context, w io.Writer, store ports.CheckpointStore) error {
	keys, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Run", "State", "Item", "Pipe", "Chunks", "Updated"})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})

	rows := 0
	for _, key := range keys {
		cp, err := store.Load(ctx, key)
		if errors.Is(err, domain.ErrCheckpointNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to load run %q: %w", key, err)
		}
		s := httpadapter.Summarize(cp)
		tw.AppendRow(table.Row{s.RunKey, s.State, s.Item, s.Pipe, s.Chunks, s.UpdatedAt.Local().Format(time.DateTime)})
		rows++
	}

	if rows == 0 {
		_, err := fmt.Fprintln(w, "No runs found.")
		return err
	}
	tw.Render()
	return nil
}
