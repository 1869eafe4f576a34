package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Houeta/crm-dispatch-bot/internal/models"
	"github.com/jackc/pgx/v5"
)

// GetEmployee retrieves an employee from the department's roster by their
// Telegram ID. It returns ErrEmployeeNotFound when the ID is not present.
func (r *Repository) GetEmployee(
	ctx context.Context,
	dep models.Department,
	telegramID int64,
) (models.Employee, error) {
	table, err := tableFor(dep, "employees")
	if err != nil {
		return models.Employee{}, err
	}

	var emp models.Employee
	query := fmt.Sprintf("SELECT telegram_id, name, bitrix_id FROM %s WHERE telegram_id = $1", table)
	err = r.db.QueryRow(ctx, query, telegramID).Scan(&emp.TelegramID, &emp.Name, &emp.BitrixID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Employee{}, ErrEmployeeNotFound
		}
		return models.Employee{}, fmt.Errorf("failed to get employee %d: %w", telegramID, err)
	}

	return emp, nil
}

// UpsertEmployee inserts an employee into the department's roster or, when
// the Telegram ID already exists, replaces the name and Bitrix ID.
func (r *Repository) UpsertEmployee(ctx context.Context, dep models.Department, emp models.Employee) error {
	table, err := tableFor(dep, "employees")
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (telegram_id, name, bitrix_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (telegram_id) DO UPDATE
		SET name = EXCLUDED.name, bitrix_id = EXCLUDED.bitrix_id`, table)

	_, err = r.db.Exec(ctx, query, emp.TelegramID, emp.Name, emp.BitrixID)
	if err != nil {
		return fmt.Errorf("failed to upsert employee %d: %w", emp.TelegramID, err)
	}

	return nil
}

// DeleteEmployee removes an employee from the department's roster by their
// Telegram ID. It returns ErrEmployeeNotFound when nothing was deleted.
// Records referencing the employee are left in place; the reference is weak.
func (r *Repository) DeleteEmployee(ctx context.Context, dep models.Department, telegramID int64) error {
	table, err := tableFor(dep, "employees")
	if err != nil {
		return err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE telegram_id = $1", table)
	cmdTag, err := r.db.Exec(ctx, query, telegramID)
	if err != nil {
		return fmt.Errorf("failed to delete employee %d: %w", telegramID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrEmployeeNotFound
	}

	return nil
}

// ListEmployees returns the department's full roster ordered by name.
func (r *Repository) ListEmployees(ctx context.Context, dep models.Department) ([]models.Employee, error) {
	table, err := tableFor(dep, "employees")
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT telegram_id, name, bitrix_id FROM %s ORDER BY name", table)
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var employees []models.Employee
	for rows.Next() {
		var emp models.Employee
		if errScan := rows.Scan(&emp.TelegramID, &emp.Name, &emp.BitrixID); errScan != nil {
			return nil, fmt.Errorf("failed to scan employee row: %w", errScan)
		}
		employees = append(employees, emp)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read employee rows: %w", err)
	}

	return employees, nil
}
