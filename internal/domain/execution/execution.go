package execution

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// CancelledByUser is the error text recorded when a run is cancelled.
const CancelledByUser = "Cancelled by user"

type Execution struct {
	ID          string                 `json:"id" gorm:"primaryKey"`
	WorkflowID  string                 `json:"workflowId" gorm:"not null;index"`
	UserID      string                 `json:"userId" gorm:"not null;index"`
	Status      string                 `json:"status" gorm:"default:'pending';index"`
	Progress    string                 `json:"progress" gorm:"column:tasks_done"`
	Result      map[string]interface{} `json:"result" gorm:"serializer:json"`
	Error       string                 `json:"error"`
	StartedAt   time.Time              `json:"startedAt"`
	CompletedAt *time.Time             `json:"completedAt"`
}

// New builds a pending record. Trigger input, when present, is preserved
// under result.inputData so the run's provenance survives.
func New(workflowID, userID string, input map[string]interface{}) *Execution {
	var result map[string]interface{}
	if input != nil {
		result = map[string]interface{}{"inputData": input}
	}
	return &Execution{
		ID:         uuid.New().String(),
		WorkflowID: workflowID,
		UserID:     userID,
		Status:     StatusPending,
		Progress:   "0/0",
		Result:     result,
		StartedAt:  time.Now().UTC(),
	}
}

func (e *Execution) IsTerminal() bool {
	return e.Status == StatusCompleted || e.Status == StatusFailed
}

// FormatProgress renders the "executed/total" counter stored on the record.
func FormatProgress(executed, total int) string {
	return fmt.Sprintf("%d/%d", executed, total)
}
