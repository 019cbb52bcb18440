package domain

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// RunIdentity is the part of flow metadata that identifies a run.
type RunIdentity struct {
	RunID string `mapstructure:"run_id"`
	Flow  string `mapstructure:"flow"`
}

// DecodeRunIdentity extracts the run identity from flow metadata.
// Unknown keys are ignored and scalar ids are converted to strings.
func DecodeRunIdentity(metadata map[string]any) (RunIdentity, error) {
	var id RunIdentity
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &id,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return id, err
	}
	if err := decoder.Decode(metadata); err != nil {
		return id, fmt.Errorf("failed to decode run identity: %w", err)
	}
	return id, nil
}

// RunKey is the storage key state managers use for the run described by metadata.
func RunKey(metadata map[string]any) (string, error) {
	id, err := DecodeRunIdentity(metadata)
	if err != nil {
		return "", err
	}
	runID := strings.TrimSpace(id.RunID)
	if runID == "" {
		runID = DefaultRunID
	}
	if f := strings.TrimSpace(id.Flow); f != "" {
		return f + "." + runID, nil
	}
	return runID, nil
}
