package workflow

import (
	"encoding/json"
	"fmt"
)

type StageStatus string

const (
	StagePending   StageStatus = "PENDING"
	StageCurrent   StageStatus = "CURRENT"
	StageCompleted StageStatus = "COMPLETED"
)

const ChecklistPending = "PENDING"

// Metadata is the per-ticket copy of a workflow, persisted in tickets.metadata.
// After seeding it is free-form: callers may rewrite statuses in any order.
type Metadata struct {
	Stages    []Stage         `json:"stages"`
	Checklist []ChecklistItem `json:"checklist"`
}

type Stage struct {
	ID          string      `json:"id"`
	Label       string      `json:"label"`
	Status      StageStatus `json:"status"`
	Description string      `json:"description,omitempty"`
}

type ChecklistItem struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
	Status   string `json:"status,omitempty"`
}

// DecodeMetadata reads the stage and checklist lists out of a stored document.
// Unknown keys are ignored and an empty document yields empty Metadata.
func DecodeMetadata(raw []byte) (Metadata, error) {
	var md Metadata
	if len(raw) == 0 || string(raw) == "null" {
		return md, nil
	}
	if err := json.Unmarshal(raw, &md); err != nil {
		return Metadata{}, fmt.Errorf("workflow: decode metadata: %w", err)
	}
	return md, nil
}

// CurrentStage returns the first stage marked CURRENT.
func (m Metadata) CurrentStage() (Stage, bool) {
	for _, s := range m.Stages {
		if s.Status == StageCurrent {
			return s, true
		}
	}
	return Stage{}, false
}
