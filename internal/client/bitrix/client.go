// Package bitrix talks to Bitrix24 inbound webhooks: contact lookup by phone
// and the task lifecycle (create, timeline comment, complete). The timeline
// and complete endpoints are derived from the two configured webhook URLs by
// substituting the REST method segment, the same way the webhooks are laid
// out in the portal.
package bitrix

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Houeta/crm-dispatch-bot/internal/phone"
)

const (
	contactListMethod     = "crm.contact.list"
	timelineCommentMethod = "crm.timeline.comment.add"
	taskAddMethod         = "task.item.add"
	taskCompleteMethod    = "task.complete"

	// Deadlines are serialized as local ISO-8601 with the portal's fixed
	// UTC offset.
	deadlineLayout = "2006-01-02T15:04:05"
	deadlineOffset = "+03:00"
	deadlineAfter  = 24 * time.Hour
)

// ErrContactNotFound is returned when no CRM contact carries the requested
// phone number.
var ErrContactNotFound = errors.New("contact not found in CRM")

// Contact is a CRM contact as returned by crm.contact.list.
type Contact struct {
	ID       string         `json:"ID"`
	Name     string         `json:"NAME"`
	LastName string         `json:"LAST_NAME"`
	Phones   []ContactPhone `json:"PHONE"`
}

// ContactPhone is one phone value attached to a contact.
type ContactPhone struct {
	Value string `json:"VALUE"`
}

// FullName returns the contact's display name, empty when the CRM holds
// neither a first nor a last name.
func (c Contact) FullName() string {
	return strings.TrimSpace(c.Name + " " + c.LastName)
}

// TaskRequest describes the CRM task created for one work record.
type TaskRequest struct {
	ContactID     string // contact the task is tagged to
	CategoryName  string // human-readable category, used in the title
	Comment       string // record comment, used as the description
	ResponsibleID int64  // CRM user the task is assigned to
}

// Client is the Bitrix24 webhook client.
type Client struct {
	httpClient *http.Client
	log        *slog.Logger
	contactURL string
	taskURL    string
	now        func() time.Time
}

// NewClient creates a Bitrix24 client over the two configured webhook URLs.
func NewClient(log *slog.Logger, contactURL, taskURL string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
		contactURL: contactURL,
		taskURL:    taskURL,
		now:        time.Now,
	}
}

// FindContactByPhone looks up a CRM contact by phone. The remote search is
// not guaranteed precise, so the result list is post-filtered for an exact
// canonical-phone match. Returns ErrContactNotFound when nothing matches.
func (c *Client) FindContactByPhone(ctx context.Context, rawPhone string) (Contact, error) {
	canonical := phone.Normalize(rawPhone)

	params := url.Values{}
	params.Set("filter[PHONE]", canonical)
	for _, field := range []string{"ID", "NAME", "LAST_NAME", "PHONE"} {
		params.Add("select[]", field)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.contactURL+"?"+params.Encode(), nil)
	if err != nil {
		return Contact{}, fmt.Errorf("failed to build contact request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Contact{}, fmt.Errorf("failed to call contact lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Contact{}, fmt.Errorf("contact lookup returned status %d", resp.StatusCode)
	}

	var payload struct {
		Result []Contact `json:"result"`
	}
	if err = json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Contact{}, fmt.Errorf("failed to decode contact response: %w", err)
	}

	for _, contact := range payload.Result {
		for _, contactPhone := range contact.Phones {
			if phone.Clean(contactPhone.Value) == phone.Clean(canonical) {
				return contact, nil
			}
		}
	}

	return Contact{}, ErrContactNotFound
}

// CreateTask creates a CRM task for the record with a fixed one-day deadline,
// tagged to the contact. It returns the created task's ID.
func (c *Client) CreateTask(ctx context.Context, task TaskRequest) (string, error) {
	deadline := c.now().Add(deadlineAfter).Format(deadlineLayout) + deadlineOffset

	payload := map[string]any{
		"fields": map[string]any{
			"TITLE":          "Запис: " + task.CategoryName,
			"DESCRIPTION":    task.Comment,
			"RESPONSIBLE_ID": task.ResponsibleID,
			"DEADLINE":       deadline,
			"UF_CRM_TASK":    []string{"C_" + task.ContactID},
		},
		"notify": true,
	}

	var result struct {
		Result json.RawMessage `json:"result"`
	}
	if err := c.postJSON(ctx, c.taskURL, payload, &result); err != nil {
		return "", fmt.Errorf("failed to create task: %w", err)
	}

	taskID := strings.Trim(string(result.Result), `"`)
	if taskID == "" || taskID == "null" {
		return "", errors.New("task creation returned no task ID")
	}

	return taskID, nil
}

// AddTimelineComment posts an annotated comment on the contact's timeline.
func (c *Client) AddTimelineComment(ctx context.Context, contactID, categoryName, comment string, authorID int64) error {
	endpoint := strings.Replace(c.contactURL, contactListMethod, timelineCommentMethod, 1)

	payload := map[string]any{
		"fields": map[string]any{
			"ENTITY_ID":   contactID,
			"ENTITY_TYPE": "contact",
			"COMMENT":     fmt.Sprintf("📌 %s: %s", categoryName, comment),
			"AUTHOR_ID":   authorID,
		},
	}

	if err := c.postJSON(ctx, endpoint, payload, nil); err != nil {
		return fmt.Errorf("failed to add timeline comment: %w", err)
	}

	return nil
}

// CompleteTask marks the task done.
func (c *Client) CompleteTask(ctx context.Context, taskID string) error {
	endpoint := strings.Replace(c.taskURL, taskAddMethod, taskCompleteMethod, 1)

	if err := c.postJSON(ctx, endpoint, map[string]any{"id": taskID}, nil); err != nil {
		return fmt.Errorf("failed to complete task %s: %w", taskID, err)
	}

	return nil
}

// Ping checks that the CRM portal answers at all. Any HTTP response counts;
// only a transport failure marks the portal unreachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.contactURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build ping request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("CRM portal is unreachable: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return nil
}

func (c *Client) postJSON(ctx context.Context, endpoint string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.DebugContext(ctx, "Bitrix call failed", "status", resp.StatusCode, "body", string(raw))
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
