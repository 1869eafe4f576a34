package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Houeta/crm-dispatch-bot/internal/models"
	"github.com/jackc/pgx/v5"
)

// GetCategoryByCode retrieves a category by its code, case-insensitively.
// It returns ErrCategoryNotFound when the code is not present so that
// callers branch explicitly instead of treating absence as a failure.
func (r *Repository) GetCategoryByCode(
	ctx context.Context,
	dep models.Department,
	code string,
) (models.Category, error) {
	table, err := tableFor(dep, "categories")
	if err != nil {
		return models.Category{}, err
	}

	var cat models.Category
	query := fmt.Sprintf("SELECT code, name FROM %s WHERE code = $1", table)
	err = r.db.QueryRow(ctx, query, strings.ToUpper(code)).Scan(&cat.Code, &cat.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Category{}, ErrCategoryNotFound
		}
		return models.Category{}, fmt.Errorf("failed to get category %q: %w", code, err)
	}

	return cat, nil
}

// UpsertCategory inserts a category or replaces the name of an existing one.
// The code is normalized to upper case before it is stored.
func (r *Repository) UpsertCategory(ctx context.Context, dep models.Department, cat models.Category) error {
	table, err := tableFor(dep, "categories")
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (code, name)
		VALUES ($1, $2)
		ON CONFLICT (code) DO UPDATE
		SET name = EXCLUDED.name`, table)

	_, err = r.db.Exec(ctx, query, strings.ToUpper(cat.Code), cat.Name)
	if err != nil {
		return fmt.Errorf("failed to upsert category %q: %w", cat.Code, err)
	}

	return nil
}

// DeleteCategory removes a category by its code. It returns
// ErrCategoryNotFound when nothing was deleted. Records referencing the
// category are left in place; the reference is weak.
func (r *Repository) DeleteCategory(ctx context.Context, dep models.Department, code string) error {
	table, err := tableFor(dep, "categories")
	if err != nil {
		return err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE code = $1", table)
	cmdTag, err := r.db.Exec(ctx, query, strings.ToUpper(code))
	if err != nil {
		return fmt.Errorf("failed to delete category %q: %w", code, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}

	return nil
}

// ListCategories returns the department's taxonomy ordered by code.
func (r *Repository) ListCategories(ctx context.Context, dep models.Department) ([]models.Category, error) {
	table, err := tableFor(dep, "categories")
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT code, name FROM %s ORDER BY code", table)
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var cat models.Category
		if errScan := rows.Scan(&cat.Code, &cat.Name); errScan != nil {
			return nil, fmt.Errorf("failed to scan category row: %w", errScan)
		}
		categories = append(categories, cat)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read category rows: %w", err)
	}

	return categories, nil
}
