package history

import "time"

// Event types.
const (
	TypeRunStarted         = "RunStarted"
	TypeOperationCompleted = "OperationCompleted"
	TypeOperationFailed    = "OperationFailed"
	TypeRepositoryMerged   = "RepositoryMerged"
	TypeRunFinished        = "RunFinished"
)

// Event is one recorded fact about a run. Payload is JSON.
type Event struct {
	ID        int64
	RunID     string
	Type      string
	Timestamp time.Time
	Payload   []byte
	Metadata  map[string]string
}
