package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"log/slog"
	"slices"
	"strings"

	"github.com/aretw0/tessera/internal/logging"
	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/flow"
)

// Hasher lets items choose the values their chunk hash is computed from.
// Items without it are hashed through their JSON encoding.
type Hasher interface {
	HashValues() []string
}

// BatchRunner processes the source chunk by chunk. Chunks whose content hash the
// StateManager already marked as processed are skipped.
type BatchRunner[T any] struct {
	flow      *flow.Flow[T]
	chunkSize int
	opts      []Option
	logger    *slog.Logger
}

// NewBatch creates a BatchRunner splitting the source of f into chunks of chunkSize items.
func NewBatch[T any](f *flow.Flow[T], chunkSize int, opts ...Option) *BatchRunner[T] {
	s := settings{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&s)
	}
	return &BatchRunner[T]{
		flow:      f,
		chunkSize: max(chunkSize, 1),
		opts:      opts,
		logger:    s.logger,
	}
}

// Run processes every chunk not yet completed.
// Each chunk runs all states; the position is then reset to the first state
// before the chunk is marked, so a crash in between repeats the chunk rather than losing the next one.
func (b *BatchRunner[T]) Run(ctx context.Context) error {
	sm := b.flow.StateManager()
	metadata := b.flow.Metadata()
	chunks := Chunks(b.flow.Source(), b.chunkSize)

	var processed []string
	for idx, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}

		hash, err := HashChunk(chunk)
		if err != nil {
			return fmt.Errorf("chunk %d: %w", idx, err)
		}
		logger := b.logger.With("chunk", idx, "hash", hash)

		done, err := sm.IsChunkProcessed(ctx, metadata, hash)
		if err != nil {
			return fmt.Errorf("chunk %d: failed to check chunk: %w", idx, err)
		}
		if done {
			logger.Info("Chunk already processed, skipping")
			processed = append(processed, hash)
			continue
		}

		sub := b.flow.With(chunk, map[string]any{
			domain.MetaProcessedChunks: slices.Clone(processed),
			domain.MetaChunkHash:       hash,
		})
		logger.Info("Chunk started", "items", len(chunk))
		if err := NewRecursive(sub, b.opts...).Resume(ctx); err != nil {
			return fmt.Errorf("chunk %d (%s): %w", idx, hash, err)
		}

		if err := sm.SaveState(ctx, metadata, 0, 0, b.flow.FirstState()); err != nil {
			return fmt.Errorf("chunk %d: failed to reset position: %w", idx, err)
		}
		if err := sm.SetChunkIsProcessed(ctx, metadata, hash); err != nil {
			return fmt.Errorf("chunk %d: failed to mark chunk: %w", idx, err)
		}
		processed = append(processed, hash)
	}
	return nil
}

// Chunks splits items into consecutive slices of at most size elements.
func Chunks[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = 1
	}
	var out [][]T
	for c := range slices.Chunk(items, size) {
		out = append(out, c)
	}
	return out
}

// HashChunk returns the CRC32 of a chunk's content as 8 hex digits.
func HashChunk[T any](chunk []T) (string, error) {
	values := make([]string, 0, len(chunk))
	for _, item := range chunk {
		if h, ok := any(item).(Hasher); ok {
			values = append(values, h.HashValues()...)
			continue
		}
		data, err := json.Marshal(item)
		if err != nil {
			return "", fmt.Errorf("failed to hash item: %w", err)
		}
		values = append(values, string(data))
	}
	return fmt.Sprintf("%08x", crc32.ChecksumIEEE([]byte(strings.Join(values, "\n")))), nil
}
