package bitrix_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Houeta/crm-dispatch-bot/internal/client/bitrix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFindContactByPhone(t *testing.T) {
	t.Parallel()

	t.Run("success - exact phone match", func(t *testing.T) {
		t.Parallel()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "+380631234567", r.URL.Query().Get("filter[PHONE]"))
			assert.Contains(t, r.URL.Query()["select[]"], "PHONE")
			_, _ = w.Write([]byte(`{"result": [
				{"ID": "77", "NAME": "Іван", "LAST_NAME": "Петренко",
				 "PHONE": [{"VALUE": "+38 (063) 123-45-67"}]}
			]}`))
		}))
		defer server.Close()

		client := bitrix.NewClient(discardLogger(), server.URL, server.URL, time.Second)

		contact, err := client.FindContactByPhone(t.Context(), "0631234567")

		require.NoError(t, err)
		assert.Equal(t, "77", contact.ID)
		assert.Equal(t, "Іван Петренко", contact.FullName())
	})

	t.Run("error - imprecise remote match is filtered out", func(t *testing.T) {
		t.Parallel()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"result": [
				{"ID": "78", "NAME": "Інший", "PHONE": [{"VALUE": "+380639999999"}]}
			]}`))
		}))
		defer server.Close()

		client := bitrix.NewClient(discardLogger(), server.URL, server.URL, time.Second)

		_, err := client.FindContactByPhone(t.Context(), "0631234567")

		require.ErrorIs(t, err, bitrix.ErrContactNotFound)
	})

	t.Run("error - empty result", func(t *testing.T) {
		t.Parallel()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"result": []}`))
		}))
		defer server.Close()

		client := bitrix.NewClient(discardLogger(), server.URL, server.URL, time.Second)

		_, err := client.FindContactByPhone(t.Context(), "0631234567")

		require.ErrorIs(t, err, bitrix.ErrContactNotFound)
	})

	t.Run("error - server failure", func(t *testing.T) {
		t.Parallel()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := bitrix.NewClient(discardLogger(), server.URL, server.URL, time.Second)

		_, err := client.FindContactByPhone(t.Context(), "0631234567")

		require.Error(t, err)
		require.ErrorContains(t, err, "status 500")
	})
}

func TestCreateTask(t *testing.T) {
	t.Parallel()

	t.Run("success - payload carries title, deadline and contact link", func(t *testing.T) {
		t.Parallel()
		var captured map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
			_, _ = w.Write([]byte(`{"result": 4242}`))
		}))
		defer server.Close()

		client := bitrix.NewClient(discardLogger(), server.URL, server.URL, time.Second)

		taskID, err := client.CreateTask(t.Context(), bitrix.TaskRequest{
			ContactID:     "77",
			CategoryName:  "Скарга",
			Comment:       "client called",
			ResponsibleID: 596,
		})

		require.NoError(t, err)
		assert.Equal(t, "4242", taskID)

		fields, ok := captured["fields"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "Запис: Скарга", fields["TITLE"])
		assert.Equal(t, "client called", fields["DESCRIPTION"])
		assert.InEpsilon(t, float64(596), fields["RESPONSIBLE_ID"], 0)
		assert.Equal(t, []any{"C_77"}, fields["UF_CRM_TASK"])
		deadline, ok := fields["DEADLINE"].(string)
		require.True(t, ok)
		assert.True(t, strings.HasSuffix(deadline, "+03:00"), "deadline %q must carry the fixed offset", deadline)
		assert.Equal(t, true, captured["notify"])
	})

	t.Run("success - string task ID", func(t *testing.T) {
		t.Parallel()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"result": "4243"}`))
		}))
		defer server.Close()

		client := bitrix.NewClient(discardLogger(), server.URL, server.URL, time.Second)

		taskID, err := client.CreateTask(t.Context(), bitrix.TaskRequest{ContactID: "1"})

		require.NoError(t, err)
		assert.Equal(t, "4243", taskID)
	})

	t.Run("error - missing task ID", func(t *testing.T) {
		t.Parallel()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"result": null}`))
		}))
		defer server.Close()

		client := bitrix.NewClient(discardLogger(), server.URL, server.URL, time.Second)

		_, err := client.CreateTask(t.Context(), bitrix.TaskRequest{ContactID: "1"})

		require.Error(t, err)
		require.ErrorContains(t, err, "no task ID")
	})
}

func TestAddTimelineComment(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	var captured map[string]any
	mux.HandleFunc("/rest/crm.timeline.comment.add", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(`{"result": 1}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	contactURL := server.URL + "/rest/crm.contact.list"
	client := bitrix.NewClient(discardLogger(), contactURL, server.URL, time.Second)

	err := client.AddTimelineComment(t.Context(), "77", "Скарга", "client called", 596)

	require.NoError(t, err)
	fields, ok := captured["fields"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "77", fields["ENTITY_ID"])
	assert.Equal(t, "contact", fields["ENTITY_TYPE"])
	assert.Equal(t, "📌 Скарга: client called", fields["COMMENT"])
}

func TestCompleteTask(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	var captured map[string]any
	mux.HandleFunc("/rest/task.complete", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(`{"result": true}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	taskURL := server.URL + "/rest/task.item.add"
	client := bitrix.NewClient(discardLogger(), server.URL, taskURL, time.Second)

	err := client.CompleteTask(t.Context(), "4242")

	require.NoError(t, err)
	assert.Equal(t, "4242", captured["id"])
}

func TestPing(t *testing.T) {
	t.Parallel()

	t.Run("reachable portal answers, even with an error status", func(t *testing.T) {
		t.Parallel()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		client := bitrix.NewClient(discardLogger(), server.URL, server.URL, time.Second)
		require.NoError(t, client.Ping(t.Context()))
	})

	t.Run("unreachable portal", func(t *testing.T) {
		t.Parallel()
		client := bitrix.NewClient(discardLogger(), "http://127.0.0.1:1", "http://127.0.0.1:1", time.Second)
		require.Error(t, client.Ping(t.Context()))
	})
}
