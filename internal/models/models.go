package models

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// Employee represents a member of one department's roster.
// The Telegram ID is the primary key; the Bitrix ID is the CRM identity
// used as the responsible party when a task is delegated.
type Employee struct {
	TelegramID int64  // Telegram user ID, unique within the department
	Name       string // Display name shown in reports
	BitrixID   int64  // CRM user ID for task ownership
}

// Category classifies a work record. The code is stored upper-cased and
// drives the message grammar; the name is the human-readable label.
type Category struct {
	Code string // Short upper-case code, [A-Z0-9]{2,10}
	Name string // Display name for reports and task titles
}

// Record is one append-only audit entry: an employee handled a client call
// of a given category. Employee and category are weak references and may be
// orphaned by later roster or taxonomy changes.
type Record struct {
	ID                 int64
	EmployeeTelegramID int64
	CategoryCode       string
	Phone              string // canonical +380... form
	Comment            string
	CreatedAt          time.Time
}

// RecordDetails is a record joined with its employee and category names.
// Both names come from LEFT JOINs and are invalid when the reference is
// orphaned.
type RecordDetails struct {
	CreatedAt    time.Time
	EmployeeName pgtype.Text
	CategoryName pgtype.Text
	CategoryCode string
	Phone        string
	Comment      string
}

// NameCount is a single row of a grouped frequency count.
type NameCount struct {
	Name  string
	Count int
}

// CategoryCount is a frequency count for one category.
type CategoryCount struct {
	Code  string
	Name  string
	Count int
}

// TeamStats is the department-wide breakdown over a trailing window.
// An empty window yields Total 0 with empty (non-nil semantics not required)
// slices rather than an error.
type TeamStats struct {
	Total      int
	ByEmployee []NameCount
	ByCategory []CategoryCount
}
