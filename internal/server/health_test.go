package server_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/Houeta/crm-dispatch-bot/internal/server"
	"github.com/stretchr/testify/require"
)

type MockDBPinger struct {
	ShouldFail bool
}

func (m *MockDBPinger) Ping(_ context.Context) error {
	if m.ShouldFail {
		return errors.New("mock db error")
	}
	return nil
}

type MockCRMPinger struct {
	ShouldFail bool
}

func (m *MockCRMPinger) Ping(_ context.Context) error {
	if m.ShouldFail {
		return errors.New("mock crm error")
	}
	return nil
}

func TestHealthChecker(t *testing.T) {
	t.Parallel()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	t.Run("all systems ok", func(t *testing.T) {
		t.Parallel()

		healthChecker := server.NewHealthChecker(logger, &MockDBPinger{}, &MockCRMPinger{})
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rr := httptest.NewRecorder()
		healthChecker.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		expectedBody := `{"database":"ok", "bitrix":"ok"}`
		require.JSONEq(t, expectedBody, rr.Body.String())
	})

	t.Run("database unavailable", func(t *testing.T) {
		t.Parallel()

		healthChecker := server.NewHealthChecker(logger, &MockDBPinger{ShouldFail: true}, &MockCRMPinger{})
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rr := httptest.NewRecorder()
		healthChecker.ServeHTTP(rr, req)

		require.Equal(t, http.StatusServiceUnavailable, rr.Code)
		expectedBody := `{"database":"unavailable", "bitrix":"ok"}`
		require.JSONEq(t, expectedBody, rr.Body.String())
	})

	t.Run("bitrix unreachable", func(t *testing.T) {
		t.Parallel()

		healthChecker := server.NewHealthChecker(logger, &MockDBPinger{}, &MockCRMPinger{ShouldFail: true})
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rr := httptest.NewRecorder()
		healthChecker.ServeHTTP(rr, req)

		require.Equal(t, http.StatusServiceUnavailable, rr.Code)
		expectedBody := `{"database":"ok", "bitrix":"unreachable"}`
		require.JSONEq(t, expectedBody, rr.Body.String())
	})

	t.Run("everything down", func(t *testing.T) {
		t.Parallel()

		healthChecker := server.NewHealthChecker(logger, &MockDBPinger{ShouldFail: true}, &MockCRMPinger{ShouldFail: true})
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rr := httptest.NewRecorder()
		healthChecker.ServeHTTP(rr, req)

		require.Equal(t, http.StatusServiceUnavailable, rr.Code)
		expectedBody := `{"database":"unavailable", "bitrix":"unreachable"}`
		require.JSONEq(t, expectedBody, rr.Body.String())
	})
}
