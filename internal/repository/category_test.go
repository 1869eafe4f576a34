package repository_test

import (
	"testing"

	"github.com/Houeta/crm-dispatch-bot/internal/models"
	"github.com/Houeta/crm-dispatch-bot/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const selectCategory = `SELECT code, name FROM pre_trial_categories WHERE code = \$1`

const upsertCategory = `
	INSERT INTO pre_trial_categories \(code, name\)
	VALUES \(\$1, \$2\)`

const deleteCategory = `DELETE FROM pre_trial_categories WHERE code = \$1`

const listCategories = `SELECT code, name FROM pre_trial_categories ORDER BY code`

func TestGetCategoryByCode(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	t.Run("success - code is upper-cased before lookup", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock)

		mock.ExpectQuery(selectCategory).WithArgs("CL1").WillReturnRows(
			pgxmock.NewRows([]string{"code", "name"}).AddRow("CL1", "Скарга"),
		)

		cat, err := repo.GetCategoryByCode(ctx, models.DepartmentPreTrial, "cl1")

		require.NoError(t, err)
		assert.Equal(t, "CL1", cat.Code)
		assert.Equal(t, "Скарга", cat.Name)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error - category not found", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock)

		mock.ExpectQuery(selectCategory).WithArgs("NOPE").WillReturnError(pgx.ErrNoRows)

		_, err = repo.GetCategoryByCode(ctx, models.DepartmentPreTrial, "nope")

		require.ErrorIs(t, err, repository.ErrCategoryNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpsertCategory(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock)

		mock.ExpectExec(upsertCategory).WithArgs("CL1", "Скарга").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err = repo.UpsertCategory(ctx, models.DepartmentPreTrial, models.Category{Code: "cl1", Name: "Скарга"})

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error - exec fails", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock)

		mock.ExpectExec(upsertCategory).WithArgs("CL1", "Скарга").WillReturnError(assert.AnError)

		err = repo.UpsertCategory(ctx, models.DepartmentPreTrial, models.Category{Code: "CL1", Name: "Скарга"})

		require.Error(t, err)
		require.ErrorContains(t, err, "failed to upsert category")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDeleteCategory(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock)

		mock.ExpectExec(deleteCategory).WithArgs("CL1").
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		err = repo.DeleteCategory(ctx, models.DepartmentPreTrial, "cl1")

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error - nothing deleted", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock)

		mock.ExpectExec(deleteCategory).WithArgs("CL9").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		err = repo.DeleteCategory(ctx, models.DepartmentPreTrial, "CL9")

		require.ErrorIs(t, err, repository.ErrCategoryNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListCategories(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	t.Run("success - ordered by code", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock)

		mock.ExpectQuery(listCategories).WillReturnRows(
			pgxmock.NewRows([]string{"code", "name"}).
				AddRow("CL1", "Скарга").
				AddRow("CL2", "Консультація"),
		)

		categories, err := repo.ListCategories(ctx, models.DepartmentPreTrial)

		require.NoError(t, err)
		require.Len(t, categories, 2)
		assert.Equal(t, "CL1", categories[0].Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
