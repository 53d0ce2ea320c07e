package history

import (
	"encoding/json"
	"time"

	ferrors "git.home.luguber.info/inful/hierbuild/internal/foundation/errors"
	"git.home.luguber.info/inful/hierbuild/internal/repository"
)

// RunStartedPayload describes what a run was asked to do.
type RunStartedPayload struct {
	Manifest   string   `json:"manifest"`
	Unit       string   `json:"unit"`
	Operations []string `json:"operations"`
}

// OperationPayload records one executed operation.
type OperationPayload struct {
	Operation  string `json:"operation"`
	Name       string `json:"name"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// MergePayload records one repository merge.
type MergePayload struct {
	Unit    string   `json:"unit"`
	Target  string   `json:"target"`
	Merged  []string `json:"merged"`
	Skipped []string `json:"skipped,omitempty"`
	Files   int      `json:"files"`
	Bytes   int64    `json:"bytes"`
}

// RunFinishedPayload records how a run ended.
type RunFinishedPayload struct {
	Outcome    string   `json:"outcome"`
	DurationMS int64    `json:"duration_ms"`
	Executed   []string `json:"executed"`
	Error      string   `json:"error,omitempty"`
}

func newEvent(runID, eventType string, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, ferrors.HistoryError("failed to marshal event payload").
			WithCause(err).
			WithContext("run_id", runID).
			WithContext("type", eventType).
			Build()
	}
	return &Event{RunID: runID, Type: eventType, Timestamp: time.Now(), Payload: data}, nil
}

// NewRunStarted creates a RunStarted event.
func NewRunStarted(runID string, p RunStartedPayload) (*Event, error) {
	return newEvent(runID, TypeRunStarted, p)
}

// NewOperationFinished creates an OperationCompleted or, when err is set, an
// OperationFailed event.
func NewOperationFinished(runID, operation, name string, d time.Duration, err error) (*Event, error) {
	p := OperationPayload{Operation: operation, Name: name, DurationMS: d.Milliseconds()}
	eventType := TypeOperationCompleted
	if err != nil {
		eventType = TypeOperationFailed
		p.Error = err.Error()
	}
	return newEvent(runID, eventType, p)
}

// NewRepositoryMerged creates a RepositoryMerged event from a merge report.
func NewRepositoryMerged(runID string, r *repository.MergeReport) (*Event, error) {
	return newEvent(runID, TypeRepositoryMerged, MergePayload{
		Unit:    r.Unit,
		Target:  r.Target,
		Merged:  r.Merged,
		Skipped: r.Skipped,
		Files:   r.Files,
		Bytes:   r.Bytes,
	})
}

// NewRunFinished creates a RunFinished event.
func NewRunFinished(runID, outcome string, d time.Duration, executed []string, err error) (*Event, error) {
	p := RunFinishedPayload{Outcome: outcome, DurationMS: d.Milliseconds(), Executed: executed}
	if err != nil {
		p.Error = err.Error()
	}
	return newEvent(runID, TypeRunFinished, p)
}

// Decode unmarshals the payload of e into v.
func Decode(e *Event, v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryHistory, "failed to unmarshal event payload").
			WithContext("type", e.Type).
			WithContext("id", e.ID).
			Build()
	}
	return nil
}
