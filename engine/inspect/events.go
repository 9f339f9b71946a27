package inspect

import (
	"time"

	"github.com/OpenBayHQ/openbay-mvp/engine/vhc"
)

// NATS subjects for response lifecycle events.
const (
	SubjectResponseCreated   = "vhc.response.created"
	SubjectResponseUpdated   = "vhc.response.updated"
	SubjectResponseSubmitted = "vhc.response.submitted"
	SubjectResponseApproved  = "vhc.response.approved"
	SubjectResponseVoided    = "vhc.response.voided"
)

// WorkerQueue is the queue group name for event workers.
const WorkerQueue = "vhc-workers"

// ResponseEvent is the payload published on every lifecycle subject.
type ResponseEvent struct {
	ResponseID      string         `json:"responseId"`
	TemplateID      string         `json:"templateId"`
	TemplateVersion int            `json:"templateVersion"`
	VehicleID       string         `json:"vehicleId"`
	Powertrain      vhc.Powertrain `json:"powertrain"`
	Status          vhc.Status     `json:"status"`
	Progress        vhc.Progress   `json:"progress"`
	Scores          vhc.ScoreSet   `json:"scores,omitempty"`
	FlaggedItems    []string       `json:"flaggedItems,omitempty"`
	// Breakdown and Response ride along on submission so downstream
	// indexers need no store access.
	Breakdown  []vhc.ItemScore `json:"breakdown,omitempty"`
	OccurredAt time.Time       `json:"occurredAt"`
	Response   *vhc.Response   `json:"response,omitempty"`
}

func eventFor(r vhc.Response, at time.Time, snapshot *vhc.Response) ResponseEvent {
	return ResponseEvent{
		ResponseID:      r.ID,
		TemplateID:      r.TemplateID,
		TemplateVersion: r.TemplateVersion,
		VehicleID:       r.VehicleID,
		Powertrain:      r.Powertrain,
		Status:          r.Status,
		Progress:        r.Progress,
		Scores:          r.Scores,
		OccurredAt:      at,
		Response:        snapshot,
	}
}
