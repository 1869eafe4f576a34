package bot

import (
	"context"
	"fmt"
	"time"

	"log/slog"

	"github.com/Houeta/crm-dispatch-bot/internal/client/bitrix"
	"github.com/Houeta/crm-dispatch-bot/internal/config"
	"github.com/Houeta/crm-dispatch-bot/internal/i18n"
	"github.com/Houeta/crm-dispatch-bot/internal/metrics"
	"github.com/Houeta/crm-dispatch-bot/internal/models"
	"github.com/Houeta/crm-dispatch-bot/internal/parser"
	"github.com/Houeta/crm-dispatch-bot/internal/registry"
	"github.com/Houeta/crm-dispatch-bot/internal/repository"
	"github.com/Houeta/crm-dispatch-bot/internal/workflow"
	"gopkg.in/telebot.v4"
)

// ContactFinder is the CRM lookup surface needed for client-name enrichment.
// Satisfied by bitrix.Client.
type ContactFinder interface {
	FindContactByPhone(ctx context.Context, rawPhone string) (bitrix.Contact, error)
}

// Bot contains the bot API instance and other information.
type Bot struct {
	bot           *telebot.Bot
	log           *slog.Logger
	employees     repository.EmployeeManager
	records       repository.RecordManager
	categories    *registry.Registry
	parser        *parser.Parser
	flow          *workflow.Orchestrator
	crm           ContactFinder
	metrics       *metrics.Metrics
	stateManager  *StateManager
	localizer     *i18n.Localizer
	lang          string
	departments   map[int64]models.Department
	admins        map[int64]struct{}
	responsibleID int64 // fallback Bitrix assignee for unregistered senders
}

// NewBot creates a new bot with the given token and wires the two department
// group chats to their departments.
func NewBot(
	log *slog.Logger,
	cfg *config.Config,
	employees repository.EmployeeManager,
	records repository.RecordManager,
	categories *registry.Registry,
	msgParser *parser.Parser,
	flow *workflow.Orchestrator,
	crm ContactFinder,
	mtr *metrics.Metrics,
) (*Bot, error) {
	tgBot, err := telebot.NewBot(telebot.Settings{
		Token:  cfg.Token,
		Poller: &telebot.LongPoller{Timeout: cfg.PollerTimeout},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Telegram bot: %w", err)
	}
	log.Info("Authorized on account", "account", tgBot.Me.Username)

	localizer, err := i18n.NewLocalizer()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize localizer: %w", err)
	}

	admins := make(map[int64]struct{}, len(cfg.AdminIDs))
	for _, id := range cfg.AdminIDs {
		admins[id] = struct{}{}
	}

	botInstance := &Bot{
		bot:          tgBot,
		log:          log,
		employees:    employees,
		records:      records,
		categories:   categories,
		parser:       msgParser,
		flow:         flow,
		crm:          crm,
		metrics:      mtr,
		stateManager: NewStateManager(),
		localizer:    localizer,
		lang:         cfg.DefaultLanguage,
		departments: map[int64]models.Department{
			cfg.Departments.SupportChatID:  models.DepartmentSupport,
			cfg.Departments.PreTrialChatID: models.DepartmentPreTrial,
		},
		admins:        admins,
		responsibleID: cfg.Bitrix.DefaultResponsibleID,
	}

	botInstance.registerRoutes()

	return botInstance, nil
}

// Start launches the bot to listen for updates.
func (b *Bot) Start() {
	b.log.Info("Telegram bot is starting...")
	b.bot.Start()
}

// Stop gracefully stops the Telegram bot and logs the action.
func (b *Bot) Stop() {
	b.log.Info("Telegram bot is stopped...")
	b.bot.Stop()
}

// registerRoutes configures all routes (commands).
func (b *Bot) registerRoutes() {
	b.bot.Handle("/info", b.command("/info", b.infoHandler))
	b.bot.Handle("/team_stats", b.command("/team_stats", b.teamStatsHandler))
	b.bot.Handle("/export", b.command("/export", b.exportHandler))

	b.bot.Handle("/list_employees", b.command("/list_employees", b.listEmployeesHandler))
	b.bot.Handle("/add_employee", b.command("/add_employee", b.addEmployeeHandler))
	b.bot.Handle("/delete_employee", b.command("/delete_employee", b.deleteEmployeeHandler))

	b.bot.Handle("/list_categories", b.command("/list_categories", b.listCategoriesHandler))
	b.bot.Handle("/add_category", b.command("/add_category", b.addCategoryHandler))
	b.bot.Handle("/delete_category", b.command("/delete_category", b.deleteCategoryHandler))

	b.bot.Handle("/cancel", b.cancelHandler)

	b.bot.Handle(telebot.OnText, b.textHandler)
}

// command wraps a command handler with metrics, department resolution and
// the rule that any command abandons a half-finished conversation.
func (b *Bot) command(name string, next func(ctx context.Context, tCtx telebot.Context, dep models.Department) error) telebot.HandlerFunc {
	return func(tCtx telebot.Context) error {
		b.metrics.CommandReceived.WithLabelValues(name).Inc()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		defer cancel()

		dep, ok := b.departmentFor(tCtx.Chat().ID)
		if !ok {
			return tCtx.Send(b.t("error.unknown_chat"))
		}

		b.stateManager.Clear(tCtx.Chat().ID, tCtx.Sender().ID)

		return next(timeoutCtx, tCtx, dep)
	}
}

// departmentFor resolves a group chat to its department.
func (b *Bot) departmentFor(chatID int64) (models.Department, bool) {
	dep, ok := b.departments[chatID]
	return dep, ok
}

// isAdmin reports whether the user may run administrative commands.
func (b *Bot) isAdmin(userID int64) bool {
	_, ok := b.admins[userID]
	return ok
}

// handlerTimeout bounds the DB and CRM work done for one update.
const handlerTimeout = 30 * time.Second

// t is a shorthand method for getting translations.
func (b *Bot) t(key string) string {
	return b.localizer.Get(b.lang, key)
}

// tWithData is a shorthand method for getting translations with placeholder data.
func (b *Bot) tWithData(key string, data map[string]interface{}) string {
	return b.localizer.GetWithData(b.lang, key, data)
}
