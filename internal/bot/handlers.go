package bot

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/Houeta/crm-dispatch-bot/internal/client/bitrix"
	"github.com/Houeta/crm-dispatch-bot/internal/models"
	"github.com/Houeta/crm-dispatch-bot/internal/parser"
	"github.com/Houeta/crm-dispatch-bot/internal/repository"
	"github.com/Houeta/crm-dispatch-bot/internal/workflow"
	"gopkg.in/telebot.v4"
)

// workShapeRe recognizes text that looks like a work message regardless of
// whether the leading token is a known category. It separates typos worth an
// error reply from ordinary chat noise, which is ignored.
var workShapeRe = regexp.MustCompile(`(?is)^(\S+)\s+(\+?[0-9]+)\s*\|\s*(.+)`)

// affirmatives are the accepted yes-answers to a duplicate prompt,
// lower-cased. Anything else cancels.
var affirmatives = map[string]struct{}{
	"так": {},
	"yes": {},
	"y":   {},
	"да":  {},
}

func isAffirmative(text string) bool {
	_, ok := affirmatives[strings.ToLower(strings.TrimSpace(text))]
	return ok
}

// textHandler processes every plain text message. Messages in unmapped chats
// are ignored. A pending conversation step takes priority over the work
// message grammar.
func (b *Bot) textHandler(tCtx telebot.Context) error {
	timeoutCtx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	dep, ok := b.departmentFor(tCtx.Chat().ID)
	if !ok {
		return nil
	}

	state, pending := b.stateManager.Get(tCtx.Chat().ID, tCtx.Sender().ID)
	if pending {
		return b.continueConversation(timeoutCtx, tCtx, dep, state)
	}

	return b.workMessageHandler(timeoutCtx, tCtx, dep)
}

// continueConversation dispatches a text message to the step the user's
// pending state is waiting for. The state has already been popped; steps
// that continue the conversation set the next one.
func (b *Bot) continueConversation(
	ctx context.Context,
	tCtx telebot.Context,
	dep models.Department,
	state UserState,
) error {
	switch state.WaitingFor {
	case stateAwaitingDuplicateConfirm:
		return b.duplicateAnswerHandler(ctx, tCtx, state)
	case stateAwaitingEmployeeID, stateAwaitingEmployeeBitrixID, stateAwaitingEmployeeName:
		return b.employeeOnboardingStep(ctx, tCtx, dep, state)
	case stateAwaitingCategoryCode, stateAwaitingCategoryName:
		return b.categoryOnboardingStep(ctx, tCtx, dep, state)
	default:
		b.log.WarnContext(ctx, "Dropped unknown conversation state", "state", state.WaitingFor)
		return nil
	}
}

// workMessageHandler parses a candidate work message and either submits it
// or, on a duplicate hit, asks for confirmation.
func (b *Bot) workMessageHandler(ctx context.Context, tCtx telebot.Context, dep models.Department) error {
	msg, err := b.parser.Parse(ctx, dep, tCtx.Text())
	if err != nil {
		switch {
		case errors.Is(err, parser.ErrNoCategories):
			b.metrics.MessagesParsed.WithLabelValues("no_match").Inc()
			return tCtx.Reply(b.t("parse.no_categories"))
		case errors.Is(err, parser.ErrNoMatch):
			b.metrics.MessagesParsed.WithLabelValues("no_match").Inc()
			// A work-shaped message with an unrecognized code deserves
			// feedback; everything else is ordinary chatter.
			if shape := workShapeRe.FindStringSubmatch(strings.TrimSpace(tCtx.Text())); shape != nil {
				return tCtx.Reply(b.tWithData("parse.unknown_category", map[string]interface{}{
					"code": strings.ToUpper(shape[1]),
				}))
			}
			return nil
		default:
			b.metrics.MessagesParsed.WithLabelValues("error").Inc()
			b.log.ErrorContext(ctx, "Failed to parse work message", "error", err)
			return tCtx.Reply(b.t("error.internal"))
		}
	}
	b.metrics.MessagesParsed.WithLabelValues("ok").Inc()

	cand, err := b.resolveCandidate(ctx, tCtx, dep, msg)
	if err != nil {
		// The category can vanish between the cached parse and resolution.
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return tCtx.Reply(b.tWithData("parse.unknown_category", map[string]interface{}{
				"code": msg.Code,
			}))
		}
		b.log.ErrorContext(ctx, "Failed to resolve work record candidate", "error", err)
		return tCtx.Reply(b.t("error.internal"))
	}

	isDup, err := b.flow.IsDuplicate(ctx, cand)
	if err != nil {
		b.log.ErrorContext(ctx, "Failed to check for duplicates", "error", err)
		return tCtx.Reply(b.t("error.internal"))
	}

	if isDup {
		b.metrics.DuplicatePrompts.Inc()
		b.stateManager.Set(tCtx.Chat().ID, tCtx.Sender().ID, UserState{
			WaitingFor: stateAwaitingDuplicateConfirm,
			Department: dep,
			Pending:    &cand,
		})

		prompt := b.tWithData("duplicate.prompt", map[string]interface{}{
			"category": cand.CategoryName,
			"phone":    cand.Phone,
			"minutes":  int(workflow.DefaultDuplicateWindow.Minutes()),
		})
		return tCtx.Reply(prompt, b.confirmKeyboard())
	}

	return b.submitCandidate(ctx, tCtx, cand, nil)
}

// resolveCandidate fills in the employee and category halves of a parsed
// message. Senders missing from the roster fall back to their Telegram
// profile name and the default Bitrix assignee.
func (b *Bot) resolveCandidate(
	ctx context.Context,
	tCtx telebot.Context,
	dep models.Department,
	msg parser.Message,
) (workflow.Candidate, error) {
	cand := workflow.Candidate{
		Department:         dep,
		EmployeeTelegramID: tCtx.Sender().ID,
		CategoryCode:       msg.Code,
		Phone:              msg.Phone,
		Comment:            msg.Comment,
	}

	cat, err := b.categories.GetByCode(ctx, dep, msg.Code)
	if err != nil {
		return workflow.Candidate{}, err
	}
	cand.CategoryName = cat.Name

	emp, err := b.employees.GetEmployee(ctx, dep, tCtx.Sender().ID)
	switch {
	case err == nil:
		cand.EmployeeName = emp.Name
		cand.ResponsibleID = emp.BitrixID
	case errors.Is(err, repository.ErrEmployeeNotFound):
		cand.EmployeeName = strings.TrimSpace(tCtx.Sender().FirstName + " " + tCtx.Sender().LastName)
		cand.ResponsibleID = b.responsibleID
		b.log.InfoContext(ctx, "Sender not in the roster, using profile name",
			"user", tCtx.Sender().ID, "name", cand.EmployeeName)
	default:
		return workflow.Candidate{}, err
	}

	return cand, nil
}

// duplicateAnswerHandler consumes the yes/no answer to a duplicate prompt.
func (b *Bot) duplicateAnswerHandler(ctx context.Context, tCtx telebot.Context, state UserState) error {
	removeKeyboard := &telebot.ReplyMarkup{RemoveKeyboard: true}

	if state.Pending == nil {
		b.log.WarnContext(ctx, "Duplicate confirmation state without a pending record", "user", tCtx.Sender().ID)
		return tCtx.Reply(b.t("error.internal"), removeKeyboard)
	}

	if !isAffirmative(tCtx.Text()) {
		b.log.InfoContext(ctx, "Duplicate submission declined",
			"user", tCtx.Sender().ID, "phone", state.Pending.Phone)
		return tCtx.Reply(b.t("duplicate.cancelled"), removeKeyboard)
	}

	return b.submitCandidate(ctx, tCtx, *state.Pending, removeKeyboard)
}

// submitCandidate runs the CRM-and-persistence sequence and reports the
// outcome to the chat. markup, when non-nil, is attached to the reply so a
// confirmation keyboard can be dismissed.
func (b *Bot) submitCandidate(
	ctx context.Context,
	tCtx telebot.Context,
	cand workflow.Candidate,
	markup *telebot.ReplyMarkup,
) error {
	reply := func(text string) error {
		if markup != nil {
			return tCtx.Reply(text, markup)
		}
		return tCtx.Reply(text)
	}

	start := time.Now()
	result, err := b.flow.Submit(ctx, cand)
	b.metrics.CRMRequestDuration.WithLabelValues("submit").Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, bitrix.ErrContactNotFound) {
			b.log.InfoContext(ctx, "Rejected work record, contact not in CRM", "phone", cand.Phone)
			return reply(b.tWithData("crm.contact_not_found", map[string]interface{}{"phone": cand.Phone}))
		}
		b.log.ErrorContext(ctx, "Failed to submit work record", "error", err, "phone", cand.Phone)
		return reply(b.t("crm.task_failed"))
	}

	b.metrics.RecordsSaved.WithLabelValues(string(cand.Department)).Inc()
	b.log.InfoContext(ctx, "Work record submitted",
		"department", cand.Department, "record", result.RecordID, "task", result.TaskID,
		"category", cand.CategoryCode, "phone", cand.Phone)

	if result.StorageFailed {
		return reply(b.t("record.saved_storage_failed"))
	}

	return reply(b.tWithData("record.saved", map[string]interface{}{
		"category": cand.CategoryCode,
		"phone":    cand.Phone,
	}))
}

// confirmKeyboard builds the one-time yes/no reply keyboard for duplicate
// confirmation.
func (b *Bot) confirmKeyboard() *telebot.ReplyMarkup {
	menu := &telebot.ReplyMarkup{ResizeKeyboard: true, OneTimeKeyboard: true}
	btnYes := menu.Text(b.t("button.yes"))
	btnNo := menu.Text(b.t("button.no"))
	menu.Reply(menu.Row(btnYes, btnNo))
	return menu
}

// cancelHandler aborts a pending conversation, if any. It is registered
// without the command wrapper because it needs to see the state the wrapper
// would have cleared.
func (b *Bot) cancelHandler(tCtx telebot.Context) error {
	b.metrics.CommandReceived.WithLabelValues("/cancel").Inc()

	if _, ok := b.departmentFor(tCtx.Chat().ID); !ok {
		return tCtx.Send(b.t("error.unknown_chat"))
	}

	removeKeyboard := &telebot.ReplyMarkup{RemoveKeyboard: true}
	if _, had := b.stateManager.Get(tCtx.Chat().ID, tCtx.Sender().ID); had {
		return tCtx.Reply(b.t("cancel.done"), removeKeyboard)
	}
	return tCtx.Reply(b.t("cancel.nothing"))
}
