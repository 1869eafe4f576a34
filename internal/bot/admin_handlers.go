package bot

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Houeta/crm-dispatch-bot/internal/models"
	"github.com/Houeta/crm-dispatch-bot/internal/repository"
	"gopkg.in/telebot.v4"
)

// categoryCodeRe validates onboarded category codes. Codes are stored
// upper-cased, so the input is upper-cased before matching.
var categoryCodeRe = regexp.MustCompile(`^[A-Z0-9]{2,10}$`)

var deleteIDRe = regexp.MustCompile(`^\d+$`)

// requireAdmin replies with a refusal and returns false for non-admins.
func (b *Bot) requireAdmin(ctx context.Context, tCtx telebot.Context) bool {
	if b.isAdmin(tCtx.Sender().ID) {
		return true
	}
	b.log.InfoContext(ctx, "Refused admin command",
		"user", tCtx.Sender().ID, "username", tCtx.Sender().Username)
	_ = tCtx.Reply(b.t("error.admin_only"))
	return false
}

// addEmployeeHandler starts the three-step employee onboarding conversation.
func (b *Bot) addEmployeeHandler(ctx context.Context, tCtx telebot.Context, dep models.Department) error {
	if !b.requireAdmin(ctx, tCtx) {
		return nil
	}

	b.stateManager.Set(tCtx.Chat().ID, tCtx.Sender().ID, UserState{
		WaitingFor: stateAwaitingEmployeeID,
		Department: dep,
	})
	return tCtx.Reply(b.t("employee.prompt_id"))
}

// employeeOnboardingStep advances the employee onboarding conversation by
// one answer. Invalid numeric input repeats the same step.
func (b *Bot) employeeOnboardingStep(
	ctx context.Context,
	tCtx telebot.Context,
	dep models.Department,
	state UserState,
) error {
	input := strings.TrimSpace(tCtx.Text())

	switch state.WaitingFor {
	case stateAwaitingEmployeeID:
		id, err := strconv.ParseInt(input, 10, 64)
		if err != nil {
			b.stateManager.Set(tCtx.Chat().ID, tCtx.Sender().ID, state)
			return tCtx.Reply(b.t("employee.invalid_id"))
		}
		state.Employee.TelegramID = id
		state.WaitingFor = stateAwaitingEmployeeBitrixID
		b.stateManager.Set(tCtx.Chat().ID, tCtx.Sender().ID, state)
		return tCtx.Reply(b.t("employee.prompt_bitrix"))

	case stateAwaitingEmployeeBitrixID:
		id, err := strconv.ParseInt(input, 10, 64)
		if err != nil {
			b.stateManager.Set(tCtx.Chat().ID, tCtx.Sender().ID, state)
			return tCtx.Reply(b.t("employee.invalid_id"))
		}
		state.Employee.BitrixID = id
		state.WaitingFor = stateAwaitingEmployeeName
		b.stateManager.Set(tCtx.Chat().ID, tCtx.Sender().ID, state)
		return tCtx.Reply(b.t("employee.prompt_name"))

	case stateAwaitingEmployeeName:
		state.Employee.Name = input
		if err := b.employees.UpsertEmployee(ctx, dep, state.Employee); err != nil {
			b.log.ErrorContext(ctx, "Failed to save employee", "error", err, "department", dep)
			return tCtx.Reply(b.t("error.internal"))
		}
		b.log.InfoContext(ctx, "Employee onboarded",
			"department", dep, "employee", state.Employee.TelegramID, "name", state.Employee.Name)
		return tCtx.Reply(b.tWithData("employee.saved", map[string]interface{}{
			"name": state.Employee.Name,
		}))
	}

	return nil
}

// deleteEmployeeHandler removes an employee from the roster in one shot.
func (b *Bot) deleteEmployeeHandler(ctx context.Context, tCtx telebot.Context, dep models.Department) error {
	if !b.requireAdmin(ctx, tCtx) {
		return nil
	}

	payload := strings.TrimSpace(tCtx.Message().Payload)
	if !deleteIDRe.MatchString(payload) {
		return tCtx.Reply(b.t("employee.usage_delete"))
	}
	id, _ := strconv.ParseInt(payload, 10, 64)

	err := b.employees.DeleteEmployee(ctx, dep, id)
	if err != nil {
		if errors.Is(err, repository.ErrEmployeeNotFound) {
			return tCtx.Reply(b.t("employee.not_found"))
		}
		b.log.ErrorContext(ctx, "Failed to delete employee", "error", err, "employee", id)
		return tCtx.Reply(b.t("error.internal"))
	}

	b.log.InfoContext(ctx, "Employee deleted", "department", dep, "employee", id)
	return tCtx.Reply(b.tWithData("employee.deleted", map[string]interface{}{"id": id}))
}

// listEmployeesHandler prints the department roster.
func (b *Bot) listEmployeesHandler(ctx context.Context, tCtx telebot.Context, dep models.Department) error {
	employees, err := b.employees.ListEmployees(ctx, dep)
	if err != nil {
		b.log.ErrorContext(ctx, "Failed to list employees", "error", err, "department", dep)
		return tCtx.Reply(b.t("error.internal"))
	}
	if len(employees) == 0 {
		return tCtx.Reply(b.t("list.empty"))
	}

	var sb strings.Builder
	sb.WriteString(b.t("list.employees_header"))
	for _, emp := range employees {
		sb.WriteString(fmt.Sprintf("\n• %s — %d (Bitrix %d)", emp.Name, emp.TelegramID, emp.BitrixID))
	}
	return tCtx.Reply(sb.String())
}

// addCategoryHandler starts the two-step category onboarding conversation.
func (b *Bot) addCategoryHandler(ctx context.Context, tCtx telebot.Context, dep models.Department) error {
	if !b.requireAdmin(ctx, tCtx) {
		return nil
	}

	b.stateManager.Set(tCtx.Chat().ID, tCtx.Sender().ID, UserState{
		WaitingFor: stateAwaitingCategoryCode,
		Department: dep,
	})
	return tCtx.Reply(b.t("category.prompt_code"))
}

// categoryOnboardingStep advances the category onboarding conversation by
// one answer. An invalid code repeats the same step.
func (b *Bot) categoryOnboardingStep(
	ctx context.Context,
	tCtx telebot.Context,
	dep models.Department,
	state UserState,
) error {
	input := strings.TrimSpace(tCtx.Text())

	switch state.WaitingFor {
	case stateAwaitingCategoryCode:
		code := strings.ToUpper(input)
		if !categoryCodeRe.MatchString(code) {
			b.stateManager.Set(tCtx.Chat().ID, tCtx.Sender().ID, state)
			return tCtx.Reply(b.t("category.invalid_code"))
		}
		state.Category.Code = code
		state.WaitingFor = stateAwaitingCategoryName
		b.stateManager.Set(tCtx.Chat().ID, tCtx.Sender().ID, state)
		return tCtx.Reply(b.t("category.prompt_name"))

	case stateAwaitingCategoryName:
		state.Category.Name = input
		if err := b.categories.AddOrUpdate(ctx, dep, state.Category); err != nil {
			b.log.ErrorContext(ctx, "Failed to save category", "error", err, "department", dep)
			return tCtx.Reply(b.t("error.internal"))
		}
		b.log.InfoContext(ctx, "Category onboarded",
			"department", dep, "code", state.Category.Code, "name", state.Category.Name)
		return tCtx.Reply(b.tWithData("category.saved", map[string]interface{}{
			"code": state.Category.Code,
			"name": state.Category.Name,
		}))
	}

	return nil
}

// deleteCategoryHandler removes a category from the taxonomy in one shot.
func (b *Bot) deleteCategoryHandler(ctx context.Context, tCtx telebot.Context, dep models.Department) error {
	if !b.requireAdmin(ctx, tCtx) {
		return nil
	}

	code := strings.ToUpper(strings.TrimSpace(tCtx.Message().Payload))
	if !categoryCodeRe.MatchString(code) {
		return tCtx.Reply(b.t("category.usage_delete"))
	}

	err := b.categories.Remove(ctx, dep, code)
	if err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return tCtx.Reply(b.t("category.not_found"))
		}
		b.log.ErrorContext(ctx, "Failed to delete category", "error", err, "code", code)
		return tCtx.Reply(b.t("error.internal"))
	}

	b.log.InfoContext(ctx, "Category deleted", "department", dep, "code", code)
	return tCtx.Reply(b.tWithData("category.deleted", map[string]interface{}{"code": code}))
}

// listCategoriesHandler prints the department taxonomy. The cache is
// bypassed so the caller always sees the stored state.
func (b *Bot) listCategoriesHandler(ctx context.Context, tCtx telebot.Context, dep models.Department) error {
	categories, err := b.categories.List(ctx, dep, false)
	if err != nil {
		b.log.ErrorContext(ctx, "Failed to list categories", "error", err, "department", dep)
		return tCtx.Reply(b.t("error.internal"))
	}
	if len(categories) == 0 {
		return tCtx.Reply(b.t("list.empty"))
	}

	var sb strings.Builder
	sb.WriteString(b.t("list.categories_header"))
	for _, cat := range categories {
		sb.WriteString(fmt.Sprintf("\n• %s — %s", cat.Code, cat.Name))
	}
	return tCtx.Reply(sb.String())
}
