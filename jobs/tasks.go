package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/tradesdesk/tradesdesk/internal/invoicing"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDocumentGenerate generates, renders and stores one quote or invoice.
	TaskDocumentGenerate = "documents:generate"
)

// DocumentGeneratePayload carries a complete generation request.
type DocumentGeneratePayload struct {
	OwnerID string                    `json:"owner_id"`
	JobID   string                    `json:"job_id"`
	Request invoicing.DocumentRequest `json:"request"`
}

// Validate rejects payloads the handler could never process.
func (p DocumentGeneratePayload) Validate() error {
	if p.OwnerID == "" || p.JobID == "" {
		return fmt.Errorf("jobs: owner_id and job_id required")
	}
	return nil
}

// NewDocumentGenerateTask constructs an Asynq task.
func NewDocumentGenerateTask(payload DocumentGeneratePayload) (*asynq.Task, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDocumentGenerate, data), nil
}

// DecodeDocumentGenerate parses a task payload.
func DecodeDocumentGenerate(t *asynq.Task) (DocumentGeneratePayload, error) {
	var payload DocumentGeneratePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return payload, err
	}
	return payload, payload.Validate()
}
