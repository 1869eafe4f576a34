package bot

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Houeta/crm-dispatch-bot/internal/models"
	"github.com/Houeta/crm-dispatch-bot/internal/phone"
	"github.com/Houeta/crm-dispatch-bot/internal/report"
	"github.com/Houeta/crm-dispatch-bot/internal/stats"
	"gopkg.in/telebot.v4"
)

// commentPreviewLimit caps comment previews in /info output, in runes.
const commentPreviewLimit = 120

// defaultExportDays is the export window when /export is given no argument.
const defaultExportDays = 30

// infoArgsRe parses "/info <phone>, <days>". The phone part tolerates the
// usual human formatting, digits are extracted afterwards.
var infoArgsRe = regexp.MustCompile(`^([+\d()\-\s]+?)\s*,\s*(\d+)$`)

var daysRe = regexp.MustCompile(`^\d+$`)

// infoHandler shows the recent history of one client: who recorded what,
// when, with comment previews, enriched with the CRM contact name.
func (b *Bot) infoHandler(ctx context.Context, tCtx telebot.Context, dep models.Department) error {
	match := infoArgsRe.FindStringSubmatch(strings.TrimSpace(tCtx.Message().Payload))
	if match == nil {
		return tCtx.Reply(b.t("info.usage"))
	}
	canonical := phone.Normalize(match[1])
	days, _ := strconv.Atoi(match[2])

	records, err := b.records.GetRecordsByPhone(ctx, dep, canonical, days)
	if err != nil {
		b.log.ErrorContext(ctx, "Failed to fetch client records", "error", err, "phone", canonical)
		return tCtx.Reply(b.t("error.internal"))
	}

	var sb strings.Builder
	// The contact name is a nicety; a CRM miss never fails the command.
	lookupStart := time.Now()
	contact, cerr := b.crm.FindContactByPhone(ctx, canonical)
	b.metrics.CRMRequestDuration.WithLabelValues("contact_find").Observe(time.Since(lookupStart).Seconds())
	if cerr == nil {
		sb.WriteString(b.tWithData("info.client", map[string]interface{}{"name": contact.FullName()}))
	} else {
		sb.WriteString(b.tWithData("crm.contact_not_found", map[string]interface{}{"phone": canonical}))
	}
	sb.WriteString("\n")
	sb.WriteString(b.tWithData("info.header", map[string]interface{}{
		"phone": canonical,
		"days":  days,
	}))

	if len(records) == 0 {
		sb.WriteString("\n")
		sb.WriteString(b.t("info.none"))
		return tCtx.Reply(sb.String())
	}

	summary := stats.Summarize(records)

	sb.WriteString("\n")
	sb.WriteString(b.tWithData("team.total", map[string]interface{}{"count": summary.Total}))

	if len(summary.ByEmployee) > 0 {
		sb.WriteString("\n\n")
		sb.WriteString(b.t("team.by_employee"))
		for _, row := range summary.ByEmployee {
			sb.WriteString(fmt.Sprintf("\n• %s: %d", row.Name, row.Count))
		}
	}

	if len(summary.ByCategory) > 0 {
		sb.WriteString("\n\n")
		sb.WriteString(b.t("team.by_category"))
		for _, row := range summary.ByCategory {
			sb.WriteString(fmt.Sprintf("\n• %s: %d", categoryDisplay(row.Name, row.Name != "", row.Code), row.Count))
		}
	}

	sb.WriteString("\n\n")
	sb.WriteString(b.t("team.latest"))
	for _, rec := range summary.Latest {
		sb.WriteString(fmt.Sprintf("\n%s — %s — %s: %s",
			rec.CreatedAt.Format("2006-01-02 15:04"),
			employeeDisplay(rec.EmployeeName.String, rec.EmployeeName.Valid),
			categoryDisplay(rec.CategoryName.String, rec.CategoryName.Valid, rec.CategoryCode),
			truncateComment(rec.Comment),
		))
	}

	return tCtx.Reply(sb.String())
}

// teamStatsHandler shows the department-wide aggregation for a trailing
// window of days.
func (b *Bot) teamStatsHandler(ctx context.Context, tCtx telebot.Context, dep models.Department) error {
	payload := strings.TrimSpace(tCtx.Message().Payload)
	if !daysRe.MatchString(payload) {
		return tCtx.Reply(b.t("team.usage"))
	}
	days, _ := strconv.Atoi(payload)

	start := time.Now()
	teamStats, err := b.records.GetTeamStats(ctx, dep, days)
	b.metrics.DBQueryDuration.WithLabelValues("team_stats").Observe(time.Since(start).Seconds())
	if err != nil {
		b.log.ErrorContext(ctx, "Failed to fetch team stats", "error", err, "department", dep)
		return tCtx.Reply(b.t("error.internal"))
	}
	if teamStats.Total == 0 {
		return tCtx.Reply(b.t("team.none"))
	}

	var sb strings.Builder
	sb.WriteString(b.tWithData("team.header", map[string]interface{}{"days": days}))
	sb.WriteString("\n")
	sb.WriteString(b.tWithData("team.total", map[string]interface{}{"count": teamStats.Total}))

	if len(teamStats.ByEmployee) > 0 {
		sb.WriteString("\n\n")
		sb.WriteString(b.t("team.by_employee"))
		for _, row := range teamStats.ByEmployee {
			sb.WriteString(fmt.Sprintf("\n• %s: %d", employeeDisplay(row.Name, row.Name != ""), row.Count))
		}
	}

	if len(teamStats.ByCategory) > 0 {
		sb.WriteString("\n\n")
		sb.WriteString(b.t("team.by_category"))
		for _, row := range teamStats.ByCategory {
			sb.WriteString(fmt.Sprintf("\n• %s: %d",
				categoryDisplay(row.Name, row.Name != "", row.Code), row.Count))
		}
	}

	return tCtx.Reply(sb.String())
}

// exportHandler sends the department records for a trailing window as an
// Excel workbook.
func (b *Bot) exportHandler(ctx context.Context, tCtx telebot.Context, dep models.Department) error {
	days := defaultExportDays
	if payload := strings.TrimSpace(tCtx.Message().Payload); payload != "" {
		if !daysRe.MatchString(payload) {
			return tCtx.Reply(b.t("team.usage"))
		}
		days, _ = strconv.Atoi(payload)
	}

	records, err := b.records.GetAllRecords(ctx, dep, days)
	if err != nil {
		b.log.ErrorContext(ctx, "Failed to fetch records for export", "error", err, "department", dep)
		return tCtx.Reply(b.t("error.internal"))
	}

	buf, err := report.GenerateExcelExport(records)
	if err != nil {
		if errors.Is(err, report.ErrNoRecords) {
			return tCtx.Reply(b.t("export.none"))
		}
		b.log.ErrorContext(ctx, "Failed to generate export", "error", err, "department", dep)
		return tCtx.Reply(b.t("error.internal"))
	}

	exportFile := &telebot.Document{
		File:     telebot.FromReader(buf),
		FileName: fmt.Sprintf("export_%s.xlsx", time.Now().Format("20060102_150405")),
		MIME:     "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Caption: b.tWithData("export.caption", map[string]interface{}{
			"days":  days,
			"count": len(records),
		}),
	}

	b.log.InfoContext(ctx, "Export generated", "department", dep, "days", days, "records", len(records))
	return tCtx.Reply(exportFile)
}

// truncateComment shortens a comment preview to commentPreviewLimit runes.
func truncateComment(comment string) string {
	runes := []rune(comment)
	if len(runes) <= commentPreviewLimit {
		return comment
	}
	return string(runes[:commentPreviewLimit]) + "…"
}

// employeeDisplay degrades a missing roster name to a dash.
func employeeDisplay(name string, ok bool) string {
	if !ok || name == "" {
		return "—"
	}
	return name
}

// categoryDisplay degrades a removed category to its raw code.
func categoryDisplay(name string, ok bool, code string) string {
	if !ok || name == "" {
		return code
	}
	return name
}
