package models

import (
	"fmt"
	"time"
)

// ArtifactKind selects how the remote stores an artifact.
type ArtifactKind string

const (
	KindImage  ArtifactKind = "img"
	KindBanner ArtifactKind = "banner"
)

// ChangeEvent is one filesystem change observed under the watch root.
type ChangeEvent struct {
	Path      string
	Op        string
	Timestamp time.Time
}

// Artifact is a named file published to the remote.
type Artifact struct {
	Name string       `yaml:"name" json:"name" validate:"required"`
	File string       `yaml:"file" json:"file" validate:"required"`
	Kind ArtifactKind `yaml:"kind" json:"kind" default:"img" validate:"oneof=img banner"`
}

// ArtifactGroup is a set of artifacts that must be published together.
type ArtifactGroup struct {
	Name      string     `yaml:"name" json:"name" validate:"required"`
	Artifacts []Artifact `yaml:"artifacts" json:"artifacts" validate:"required,min=1,dive"`
	Finalize  bool       `yaml:"finalize" json:"finalize"`
	Reason    string     `yaml:"reason" json:"reason"`
}

// Files returns the artifact file names in declared order.
func (g ArtifactGroup) Files() []string {
	out := make([]string, 0, len(g.Artifacts))
	for _, a := range g.Artifacts {
		out = append(out, a.File)
	}
	return out
}

type BatchStatus string

const (
	BatchCollecting BatchStatus = "collecting"
	BatchReady      BatchStatus = "ready"
	BatchPublishing BatchStatus = "publishing"
	BatchDone       BatchStatus = "done"
	BatchFailed     BatchStatus = "failed"
)

// Terminal reports whether no further transition is possible.
func (s BatchStatus) Terminal() bool {
	return s == BatchDone || s == BatchFailed
}

var batchTransitions = map[BatchStatus][]BatchStatus{
	BatchCollecting: {BatchReady},
	BatchReady:      {BatchPublishing},
	BatchPublishing: {BatchDone, BatchFailed},
}

// PublishBatch tracks one publication of an artifact group.
type PublishBatch struct {
	ID        string          `json:"id"`
	Group     string          `json:"group"`
	Required  []string        `json:"required"`
	Satisfied map[string]bool `json:"satisfied"`
	Status    BatchStatus     `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Err       string          `json:"error,omitempty"`
}

// NewPublishBatch starts a collecting batch for the required artifact files.
func NewPublishBatch(id, group string, required []string, now time.Time) *PublishBatch {
	return &PublishBatch{
		ID:        id,
		Group:     group,
		Required:  append([]string(nil), required...),
		Satisfied: make(map[string]bool, len(required)),
		Status:    BatchCollecting,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Mark records a required file as changed. Unknown files are ignored.
// It reports whether the file belonged to the batch.
func (b *PublishBatch) Mark(file string, now time.Time) bool {
	for _, r := range b.Required {
		if r == file {
			b.Satisfied[file] = true
			b.UpdatedAt = now
			return true
		}
	}
	return false
}

// Complete reports whether every required artifact has been satisfied.
func (b *PublishBatch) Complete() bool {
	for _, r := range b.Required {
		if !b.Satisfied[r] {
			return false
		}
	}
	return true
}

// Transition moves the batch to the next status.
func (b *PublishBatch) Transition(to BatchStatus, now time.Time) error {
	for _, allowed := range batchTransitions[b.Status] {
		if allowed == to {
			b.Status = to
			b.UpdatedAt = now
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.Status, to)
}

// Clone returns a deep copy safe to hand out of a lock.
func (b *PublishBatch) Clone() *PublishBatch {
	c := *b
	c.Required = append([]string(nil), b.Required...)
	c.Satisfied = make(map[string]bool, len(b.Satisfied))
	for k, v := range b.Satisfied {
		c.Satisfied[k] = v
	}
	return &c
}

// PublishOutcome is emitted once per batch that reached a terminal status.
type PublishOutcome struct {
	BatchID    string      `json:"batch_id"`
	Group      string      `json:"group"`
	Status     BatchStatus `json:"status"`
	Artifacts  []string    `json:"artifacts"`
	Finalized  bool        `json:"finalized"`
	Error      string      `json:"error,omitempty"`
	Bytes      int64       `json:"bytes"`
	DurationMs int64       `json:"duration_ms"`
	At         time.Time   `json:"at"`
}

// MutationAttempt describes a retry of a remote mutation.
type MutationAttempt struct {
	Operation    string
	AttemptCount int
	NextDelay    time.Duration
	Err          error
}
