// Package workflow sequences one work submission through the CRM and the
// audit log: contact lookup, task creation, timeline annotation, task
// completion, then persistence. The audit log only ever contains records
// tied to a resolved CRM contact, so a failed lookup aborts before anything
// is written.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Houeta/crm-dispatch-bot/internal/client/bitrix"
	"github.com/Houeta/crm-dispatch-bot/internal/models"
)

// DefaultDuplicateWindow is the trailing window within which a repeated
// (employee, category, phone) triple is treated as an accidental
// re-submission.
const DefaultDuplicateWindow = 5 * time.Minute

// CRM is the Bitrix24 surface the workflow needs. Satisfied by
// bitrix.Client.
type CRM interface {
	FindContactByPhone(ctx context.Context, rawPhone string) (bitrix.Contact, error)
	CreateTask(ctx context.Context, task bitrix.TaskRequest) (string, error)
	AddTimelineComment(ctx context.Context, contactID, categoryName, comment string, authorID int64) error
	CompleteTask(ctx context.Context, taskID string) error
}

// RecordStore is the audit-log surface the workflow needs. Satisfied by
// repository.Repository.
type RecordStore interface {
	AddRecord(ctx context.Context, dep models.Department, rec models.Record) (int64, error)
	HasRecentDuplicate(
		ctx context.Context,
		dep models.Department,
		employeeTelegramID int64,
		categoryCode, canonicalPhone string,
		window time.Duration,
	) (bool, error)
}

// Candidate is a fully-resolved work record awaiting submission.
type Candidate struct {
	Department         models.Department
	EmployeeTelegramID int64
	EmployeeName       string
	ResponsibleID      int64 // CRM user the task is delegated to
	CategoryCode       string
	CategoryName       string
	Phone              string // canonical form
	Comment            string
}

// Result reports what happened to a submitted candidate.
type Result struct {
	RecordID   int64
	TaskID     string
	ClientName string
	// StorageFailed is set when the record insert failed after the CRM task
	// had already been created. The two are not transactionally linked; an
	// operator reconciles manually.
	StorageFailed bool
}

// Orchestrator drives the per-submission CRM-and-persistence sequence.
type Orchestrator struct {
	crm     CRM
	records RecordStore
	log     *slog.Logger
}

// NewOrchestrator creates an Orchestrator over the given CRM and record store.
func NewOrchestrator(log *slog.Logger, crm CRM, records RecordStore) *Orchestrator {
	return &Orchestrator{crm: crm, records: records, log: log}
}

// IsDuplicate reports whether the candidate repeats a record submitted
// within the default window. The check and the later insert are not atomic;
// two near-simultaneous submissions can both pass, which is accepted for a
// human-paced chat workflow.
func (o *Orchestrator) IsDuplicate(ctx context.Context, cand Candidate) (bool, error) {
	return o.records.HasRecentDuplicate(
		ctx, cand.Department, cand.EmployeeTelegramID, cand.CategoryCode, cand.Phone, DefaultDuplicateWindow,
	)
}

// Submit runs the full sequence for one candidate.
//
// Aborting failures (returned as errors, nothing persisted): the contact
// lookup failing or finding nothing (bitrix.ErrContactNotFound), and task
// creation failing. Timeline annotation and task completion are best-effort:
// their failures are logged and the sequence continues. A record-insert
// failure after a created task is not an error either; it is reported via
// Result.StorageFailed so the caller can surface the caveat.
func (o *Orchestrator) Submit(ctx context.Context, cand Candidate) (Result, error) {
	contact, err := o.crm.FindContactByPhone(ctx, cand.Phone)
	if err != nil {
		return Result{}, fmt.Errorf("contact lookup for %s: %w", cand.Phone, err)
	}

	taskID, err := o.crm.CreateTask(ctx, bitrix.TaskRequest{
		ContactID:     contact.ID,
		CategoryName:  cand.CategoryName,
		Comment:       cand.Comment,
		ResponsibleID: cand.ResponsibleID,
	})
	if err != nil {
		return Result{}, fmt.Errorf("task creation for contact %s: %w", contact.ID, err)
	}

	if err = o.crm.AddTimelineComment(ctx, contact.ID, cand.CategoryName, cand.Comment, cand.ResponsibleID); err != nil {
		o.log.WarnContext(ctx, "Failed to add timeline comment, continuing",
			"contact", contact.ID, "task", taskID, "error", err)
	}

	if err = o.crm.CompleteTask(ctx, taskID); err != nil {
		o.log.WarnContext(ctx, "Failed to complete task, continuing", "task", taskID, "error", err)
	}

	result := Result{TaskID: taskID, ClientName: contact.FullName()}

	recordID, err := o.records.AddRecord(ctx, cand.Department, models.Record{
		EmployeeTelegramID: cand.EmployeeTelegramID,
		CategoryCode:       cand.CategoryCode,
		Phone:              cand.Phone,
		Comment:            cand.Comment,
	})
	if err != nil {
		o.log.ErrorContext(ctx, "Record insert failed after CRM task creation",
			"task", taskID, "employee", cand.EmployeeTelegramID, "error", err)
		result.StorageFailed = true
		return result, nil
	}

	result.RecordID = recordID
	return result, nil
}
