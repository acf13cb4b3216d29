package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskReceivablesRefresh marks past-due receivables overdue.
	TaskReceivablesRefresh = "receivables:refresh"
	// TaskABCReclassify recomputes product ABC classes for a company.
	TaskABCReclassify = "catalog:abc_reclassify"
	// TaskAlertScan recomputes and persists inventory alerts.
	TaskAlertScan = "analytics:alert_scan"
	// TaskPurgeInvitations deletes expired invitations and stale
	// idempotency keys.
	TaskPurgeInvitations = "tenancy:purge_invitations"
)

// CompanyPayload scopes a task to one tenant. A zero CompanyID means every
// active company.
type CompanyPayload struct {
	CompanyID int64 `json:"company_id"`
}

// NewReceivablesRefreshTask constructs the nightly overdue sweep task.
func NewReceivablesRefreshTask() *asynq.Task {
	return asynq.NewTask(TaskReceivablesRefresh, nil)
}

// NewABCReclassifyTask constructs a reclassification task.
func NewABCReclassifyTask(companyID int64) (*asynq.Task, error) {
	data, err := json.Marshal(CompanyPayload{CompanyID: companyID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskABCReclassify, data), nil
}

// NewAlertScanTask constructs an alert scan task.
func NewAlertScanTask(companyID int64) (*asynq.Task, error) {
	data, err := json.Marshal(CompanyPayload{CompanyID: companyID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAlertScan, data), nil
}

// NewPurgeInvitationsTask constructs the daily cleanup task.
func NewPurgeInvitationsTask() *asynq.Task {
	return asynq.NewTask(TaskPurgeInvitations, nil)
}
