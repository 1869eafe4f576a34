package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Houeta/crm-dispatch-bot/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// AddRecord appends one record to the department's audit log and returns the
// generated ID. The category code is stored upper-cased; the timestamp is
// assigned by the database. Records are never updated or deleted.
func (r *Repository) AddRecord(ctx context.Context, dep models.Department, rec models.Record) (int64, error) {
	table, err := tableFor(dep, "records")
	if err != nil {
		return 0, err
	}

	var recordID int64
	query := fmt.Sprintf(insertRecordSQL, table)
	err = r.db.QueryRow(
		ctx, query,
		rec.EmployeeTelegramID, strings.ToUpper(rec.CategoryCode), rec.Phone, rec.Comment,
	).Scan(&recordID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert record: %w", err)
	}

	return recordID, nil
}

// HasRecentDuplicate reports whether a record with the exact same
// (employee, category, phone) triple exists within the trailing window,
// measured from the moment of the check. The check and the subsequent insert
// are deliberately not atomic; see the duplicate confirmation protocol.
func (r *Repository) HasRecentDuplicate(
	ctx context.Context,
	dep models.Department,
	employeeTelegramID int64,
	categoryCode, canonicalPhone string,
	window time.Duration,
) (bool, error) {
	table, err := tableFor(dep, "records")
	if err != nil {
		return false, err
	}

	var count int
	query := fmt.Sprintf(duplicateCheckSQL, table)
	err = r.db.QueryRow(
		ctx, query,
		employeeTelegramID, strings.ToUpper(categoryCode), canonicalPhone, int(window.Minutes()),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check for duplicate record: %w", err)
	}

	return count > 0, nil
}

// GetRecordsByPhone returns the records for one canonical phone within the
// trailing number of days, newest first, each enriched with the employee and
// category names via LEFT JOINs. Orphaned references yield invalid names.
func (r *Repository) GetRecordsByPhone(
	ctx context.Context,
	dep models.Department,
	canonicalPhone string,
	days int,
) ([]models.RecordDetails, error) {
	records, categories, employees, err := recordTables(dep)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(recordDetailsByPhoneSQL, records, employees, categories)
	rows, err := r.db.Query(ctx, query, canonicalPhone, days)
	if err != nil {
		return nil, fmt.Errorf("failed to query records by phone: %w", err)
	}
	defer rows.Close()

	return scanRecordDetails(rows)
}

// GetAllRecords returns every record within the trailing number of days,
// newest first, with joined names. Used by the export command.
func (r *Repository) GetAllRecords(
	ctx context.Context,
	dep models.Department,
	days int,
) ([]models.RecordDetails, error) {
	records, categories, employees, err := recordTables(dep)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(recordDetailsSQL, records, employees, categories)
	rows, err := r.db.Query(ctx, query, days)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	return scanRecordDetails(rows)
}

// GetTeamStats aggregates the department's records over the trailing number
// of days: a total plus frequency counts grouped by employee name and by
// category, both ordered by descending count. An empty window yields a zero
// total with empty breakdowns, not an error.
func (r *Repository) GetTeamStats(
	ctx context.Context,
	dep models.Department,
	days int,
) (models.TeamStats, error) {
	records, categories, employees, err := recordTables(dep)
	if err != nil {
		return models.TeamStats{}, err
	}

	var stats models.TeamStats
	stats.ByEmployee = []models.NameCount{}
	stats.ByCategory = []models.CategoryCount{}

	err = r.db.QueryRow(ctx, fmt.Sprintf(teamTotalSQL, records), days).Scan(&stats.Total)
	if err != nil {
		return models.TeamStats{}, fmt.Errorf("failed to count records: %w", err)
	}

	empRows, err := r.db.Query(ctx, fmt.Sprintf(teamByEmployeeSQL, records, employees), days)
	if err != nil {
		return models.TeamStats{}, fmt.Errorf("failed to query employee stats: %w", err)
	}
	defer empRows.Close()

	for empRows.Next() {
		var name pgtype.Text
		var count int
		if errScan := empRows.Scan(&name, &count); errScan != nil {
			return models.TeamStats{}, fmt.Errorf("failed to scan employee stats row: %w", errScan)
		}
		// A NULL name means the record points at a deleted employee; the
		// group is kept with an empty name so the total still adds up.
		stats.ByEmployee = append(stats.ByEmployee, models.NameCount{Name: name.String, Count: count})
	}
	if err = empRows.Err(); err != nil {
		return models.TeamStats{}, fmt.Errorf("failed to read employee stats rows: %w", err)
	}

	catRows, err := r.db.Query(ctx, fmt.Sprintf(teamByCategorySQL, records, categories), days)
	if err != nil {
		return models.TeamStats{}, fmt.Errorf("failed to query category stats: %w", err)
	}
	defer catRows.Close()

	for catRows.Next() {
		var name pgtype.Text
		var code string
		var count int
		if errScan := catRows.Scan(&name, &code, &count); errScan != nil {
			return models.TeamStats{}, fmt.Errorf("failed to scan category stats row: %w", errScan)
		}
		stats.ByCategory = append(stats.ByCategory, models.CategoryCount{Code: code, Name: name.String, Count: count})
	}
	if err = catRows.Err(); err != nil {
		return models.TeamStats{}, fmt.Errorf("failed to read category stats rows: %w", err)
	}

	return stats, nil
}

// recordTables resolves the three table names a record join needs.
func recordTables(dep models.Department) (records, categories, employees string, err error) {
	if records, err = tableFor(dep, "records"); err != nil {
		return "", "", "", err
	}
	if categories, err = tableFor(dep, "categories"); err != nil {
		return "", "", "", err
	}
	if employees, err = tableFor(dep, "employees"); err != nil {
		return "", "", "", err
	}
	return records, categories, employees, nil
}

func scanRecordDetails(rows pgx.Rows) ([]models.RecordDetails, error) {
	var details []models.RecordDetails
	for rows.Next() {
		var det models.RecordDetails
		err := rows.Scan(
			&det.CreatedAt, &det.EmployeeName, &det.CategoryName, &det.CategoryCode, &det.Phone, &det.Comment,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record row: %w", err)
		}
		details = append(details, det)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read record rows: %w", err)
	}

	return details, nil
}
