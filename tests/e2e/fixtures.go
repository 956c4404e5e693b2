//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	reqdto "vendfleet/internal/handler/dto/request"
	resdto "vendfleet/internal/handler/dto/response"
	"vendfleet/internal/pkg/password"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// ResetDB truncates all mutable tables so each subtest starts clean.
func ResetDB(pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := pool.Exec(ctx, `
		TRUNCATE push_subscriptions, notification_jobs, alerts, sales,
			refill_logs, refill_sessions, devices, machines, operators CASCADE`)
	return err
}

const TestOperatorPassword = "password123"

// CreateTestOperator inserts an operator directly; login goes through the API.
func CreateTestOperator(t *testing.T, pool *pgxpool.Pool, email, role string) uuid.UUID {
	t.Helper()

	hash, err := password.HashPassword(TestOperatorPassword)
	require.NoError(t, err)

	id := uuid.New()
	_, err = pool.Exec(context.Background(),
		`INSERT INTO operators (id, email, password_hash, role, active) VALUES ($1, $2, $3, $4, TRUE)`,
		id, email, hash, role)
	require.NoError(t, err)
	return id
}

// CreateTestMachine inserts a machine with the given stock spread over the
// product ids, bypassing the API so tests control status directly.
func CreateTestMachine(t *testing.T, pool *pgxpool.Pool, code string, capacity int, status string, productStock map[uuid.UUID]int) uuid.UUID {
	t.Helper()

	stockJSON, err := json.Marshal(productStock)
	require.NoError(t, err)

	id := uuid.New()
	_, err = pool.Exec(context.Background(),
		`INSERT INTO machines (id, code, capacity, product_stock, status) VALUES ($1, $2, $3, $4, $5)`,
		id, code, capacity, stockJSON, status)
	require.NoError(t, err)
	return id
}

func LoginOperator(t *testing.T, router *gin.Engine, email string) string {
	t.Helper()

	w := PerformRequest(t, router, http.MethodPost, "/api/auth/login", reqdto.LoginRequest{
		Email:    email,
		Password: TestOperatorPassword,
	}, "")
	require.Equal(t, http.StatusOK, w.Code, "login failed: %s", w.Body.String())

	var res resdto.LoginResponse
	DecodeResponseBody(t, w.Body, &res)
	require.NotEmpty(t, res.AccessToken)
	return res.AccessToken
}

func PerformRequest(t *testing.T, router *gin.Engine, method, url string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	return performRequest(t, router, method, url, body, func(req *http.Request) {
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	})
}

// PerformDeviceRequest hits the device endpoints with an X-Device-Key header.
func PerformDeviceRequest(t *testing.T, router *gin.Engine, method, url string, body any, apiKey string) *httptest.ResponseRecorder {
	t.Helper()
	return performRequest(t, router, method, url, body, func(req *http.Request) {
		req.Header.Set("X-Device-Key", apiKey)
	})
}

func performRequest(t *testing.T, router *gin.Engine, method, url string, body any, decorate func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	decorate(req)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func DecodeResponseBody(t *testing.T, body *bytes.Buffer, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(body.Bytes(), out))
}
