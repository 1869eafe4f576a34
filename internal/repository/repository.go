package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Houeta/crm-dispatch-bot/internal/models"
)

var (
	// ErrEmployeeNotFound is returned when no employee with the given
	// telegram ID exists in the department's roster.
	ErrEmployeeNotFound = errors.New("employee not found in this department")
	// ErrCategoryNotFound is returned when no category with the given code
	// exists in the department's taxonomy.
	ErrCategoryNotFound = errors.New("category not found in this department")
)

// Repository provides department-scoped access to employees, categories and
// records. Every method takes the department explicitly; no query ever
// crosses a department boundary.
type Repository struct {
	db Database
}

// EmployeeManager defines roster operations scoped to one department.
type EmployeeManager interface {
	GetEmployee(ctx context.Context, dep models.Department, telegramID int64) (models.Employee, error)
	UpsertEmployee(ctx context.Context, dep models.Department, emp models.Employee) error
	DeleteEmployee(ctx context.Context, dep models.Department, telegramID int64) error
	ListEmployees(ctx context.Context, dep models.Department) ([]models.Employee, error)
}

// CategoryManager defines taxonomy operations scoped to one department.
type CategoryManager interface {
	GetCategoryByCode(ctx context.Context, dep models.Department, code string) (models.Category, error)
	UpsertCategory(ctx context.Context, dep models.Department, cat models.Category) error
	DeleteCategory(ctx context.Context, dep models.Department, code string) error
	ListCategories(ctx context.Context, dep models.Department) ([]models.Category, error)
}

// RecordManager defines audit-log operations scoped to one department.
type RecordManager interface {
	AddRecord(ctx context.Context, dep models.Department, rec models.Record) (int64, error)
	HasRecentDuplicate(
		ctx context.Context,
		dep models.Department,
		employeeTelegramID int64,
		categoryCode, canonicalPhone string,
		window time.Duration,
	) (bool, error)
	GetRecordsByPhone(ctx context.Context, dep models.Department, phone string, days int) ([]models.RecordDetails, error)
	GetTeamStats(ctx context.Context, dep models.Department, days int) (models.TeamStats, error)
	GetAllRecords(ctx context.Context, dep models.Department, days int) ([]models.RecordDetails, error)
}

// NewRepository creates a new Repository instance backed by the provided Database.
func NewRepository(db Database) *Repository {
	return &Repository{db: db}
}

// tableFor builds the fully-qualified table name for a department. The
// prefix comes from the Department enum, never from user input, so string
// interpolation into SQL is safe here.
func tableFor(dep models.Department, suffix string) (string, error) {
	prefix := dep.TablePrefix()
	if prefix == "" {
		return "", fmt.Errorf("%w: %q", models.ErrUnknownDepartment, dep)
	}
	return prefix + "_" + suffix, nil
}
