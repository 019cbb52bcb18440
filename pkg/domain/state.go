package domain

import "time"

// State names a phase of a flow.
type State string

func (s State) String() string {
	return string(s)
}

// Checkpoint is the durable position of a run.
// Item is the next item to process and Pipe the next pipe of that item.
type Checkpoint struct {
	RunKey    string    `json:"run_key"`
	Item      int       `json:"item"`
	Pipe      int       `json:"pipe"`
	State     State     `json:"state"`
	Chunks    []string  `json:"chunks,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewCheckpoint creates a checkpoint stamped with the current time.
func NewCheckpoint(runKey string, item, pipe int, state State) *Checkpoint {
	return &Checkpoint{
		RunKey:    runKey,
		Item:      item,
		Pipe:      pipe,
		State:     state,
		UpdatedAt: time.Now().UTC(),
	}
}

// HasChunk reports whether hash was marked as processed.
func (c *Checkpoint) HasChunk(hash string) bool {
	for _, h := range c.Chunks {
		if h == hash {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the checkpoint.
func (c *Checkpoint) Clone() *Checkpoint {
	ret := *c
	ret.Chunks = append([]string(nil), c.Chunks...)
	return &ret
}
