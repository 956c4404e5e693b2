//go:build e2e

package refill_test

import (
	"fmt"
	"net/http"
	"sync"
	"testing"

	"vendfleet/internal/handler/dto/request"
	"vendfleet/internal/handler/dto/response"
	"vendfleet/tests/e2e"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const (
	startURL        = "/api/machines/%s/refill/start"
	finishURL       = "/api/machines/%s/refill/finish"
	forceReleaseURL = "/api/machines/%s/refill/force-release"
)

type RefillSuite struct {
	e2e.SharedSuite
}

func TestRefillSuite(t *testing.T) {
	suite.Run(t, new(RefillSuite))
}

func (s *RefillSuite) TestRefillLifecycle() {
	s.Run("start, finish and verify the stock moved", func() {
		t := s.T()

		e2e.CreateTestOperator(t, s.DB, "manager@example.com", "manager")
		productID := uuid.New()
		machineID := e2e.CreateTestMachine(t, s.DB, "VM-100", 100, "WORKING",
			map[uuid.UUID]int{productID: 40})

		token := e2e.LoginOperator(t, s.Router, "manager@example.com")

		w := e2e.PerformRequest(t, s.Router, http.MethodPost, fmt.Sprintf(startURL, machineID), nil, token)
		require.Equal(t, http.StatusCreated, w.Code, "start failed: %s", w.Body.String())

		var started response.RefillStartedResponse
		e2e.DecodeResponseBody(t, w.Body, &started)
		require.Equal(t, 40, started.InitialStock)

		w = e2e.PerformRequest(t, s.Router, http.MethodPost, fmt.Sprintf(finishURL, machineID),
			request.FinishRefillRequest{Added: 30}, token)
		require.Equal(t, http.StatusOK, w.Code, "finish failed: %s", w.Body.String())

		var summary response.RefillSummaryResponse
		e2e.DecodeResponseBody(t, w.Body, &summary)
		require.Equal(t, 40, summary.Before)
		require.Equal(t, 30, summary.ActuallyAdded)
		require.Equal(t, 70, summary.After)
		require.Equal(t, "WORKING", summary.Status)

		var stock int
		err := s.DB.QueryRow(t.Context(),
			`SELECT (SELECT SUM(value::int) FROM jsonb_each_text(product_stock)) FROM machines WHERE id = $1`,
			machineID).Scan(&stock)
		require.NoError(t, err)
		require.Equal(t, 70, stock)
	})

	s.Run("overfill is clamped to capacity", func() {
		t := s.T()

		e2e.CreateTestOperator(t, s.DB, "manager@example.com", "manager")
		productID := uuid.New()
		machineID := e2e.CreateTestMachine(t, s.DB, "VM-101", 360, "WORKING",
			map[uuid.UUID]int{productID: 340})

		token := e2e.LoginOperator(t, s.Router, "manager@example.com")

		w := e2e.PerformRequest(t, s.Router, http.MethodPost, fmt.Sprintf(startURL, machineID), nil, token)
		require.Equal(t, http.StatusCreated, w.Code)

		w = e2e.PerformRequest(t, s.Router, http.MethodPost, fmt.Sprintf(finishURL, machineID),
			request.FinishRefillRequest{Added: 50}, token)
		require.Equal(t, http.StatusOK, w.Code)

		var summary response.RefillSummaryResponse
		e2e.DecodeResponseBody(t, w.Body, &summary)
		require.Equal(t, 20, summary.ActuallyAdded)
		require.Equal(t, 360, summary.After)
		require.True(t, summary.OverfillAlert)

		var alertCount int
		err := s.DB.QueryRow(t.Context(),
			`SELECT COUNT(*) FROM alerts WHERE machine_id = $1 AND type = 'ERROR'`, machineID).Scan(&alertCount)
		require.NoError(t, err)
		require.Equal(t, 1, alertCount)
	})

	s.Run("finish without a session fails", func() {
		t := s.T()

		e2e.CreateTestOperator(t, s.DB, "manager@example.com", "manager")
		machineID := e2e.CreateTestMachine(t, s.DB, "VM-102", 100, "WORKING",
			map[uuid.UUID]int{uuid.New(): 40})

		token := e2e.LoginOperator(t, s.Router, "manager@example.com")

		w := e2e.PerformRequest(t, s.Router, http.MethodPost, fmt.Sprintf(finishURL, machineID),
			request.FinishRefillRequest{Added: 10}, token)
		require.Equal(t, http.StatusNotFound, w.Code)
	})
}

func (s *RefillSuite) TestConcurrentStart() {
	s.Run("only one of two concurrent starts wins", func() {
		t := s.T()

		e2e.CreateTestOperator(t, s.DB, "m1@example.com", "manager")
		e2e.CreateTestOperator(t, s.DB, "m2@example.com", "manager")
		machineID := e2e.CreateTestMachine(t, s.DB, "VM-110", 100, "WORKING",
			map[uuid.UUID]int{uuid.New(): 40})

		token1 := e2e.LoginOperator(t, s.Router, "m1@example.com")
		token2 := e2e.LoginOperator(t, s.Router, "m2@example.com")

		url := fmt.Sprintf(startURL, machineID)
		codes := make([]int, 2)

		var wg sync.WaitGroup
		for i, token := range []string{token1, token2} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				w := e2e.PerformRequest(t, s.Router, http.MethodPost, url, nil, token)
				codes[i] = w.Code
			}()
		}
		wg.Wait()

		created, conflicted := 0, 0
		for _, code := range codes {
			switch code {
			case http.StatusCreated:
				created++
			case http.StatusConflict:
				conflicted++
			}
		}
		require.Equal(t, 1, created, "exactly one start must succeed, got %v", codes)
		require.Equal(t, 1, conflicted, "the loser must see a conflict, got %v", codes)

		var sessionCount int
		err := s.DB.QueryRow(t.Context(),
			`SELECT COUNT(*) FROM refill_sessions WHERE machine_id = $1`, machineID).Scan(&sessionCount)
		require.NoError(t, err)
		require.Equal(t, 1, sessionCount)
	})
}

func (s *RefillSuite) TestForceRelease() {
	s.Run("admin reaps an abandoned session", func() {
		t := s.T()

		e2e.CreateTestOperator(t, s.DB, "manager@example.com", "manager")
		e2e.CreateTestOperator(t, s.DB, "admin@example.com", "admin")
		machineID := e2e.CreateTestMachine(t, s.DB, "VM-120", 100, "WORKING",
			map[uuid.UUID]int{uuid.New(): 60})

		managerToken := e2e.LoginOperator(t, s.Router, "manager@example.com")
		adminToken := e2e.LoginOperator(t, s.Router, "admin@example.com")

		w := e2e.PerformRequest(t, s.Router, http.MethodPost, fmt.Sprintf(startURL, machineID), nil, managerToken)
		require.Equal(t, http.StatusCreated, w.Code)

		w = e2e.PerformRequest(t, s.Router, http.MethodPost, fmt.Sprintf(forceReleaseURL, machineID), nil, adminToken)
		require.Equal(t, http.StatusNoContent, w.Code)

		var sessionCount int
		err := s.DB.QueryRow(t.Context(),
			`SELECT COUNT(*) FROM refill_sessions WHERE machine_id = $1`, machineID).Scan(&sessionCount)
		require.NoError(t, err)
		require.Equal(t, 0, sessionCount)

		var added int
		err = s.DB.QueryRow(t.Context(),
			`SELECT added_claim FROM refill_logs WHERE machine_id = $1`, machineID).Scan(&added)
		require.NoError(t, err)
		require.Equal(t, 0, added)
	})

	s.Run("managers cannot force release", func() {
		t := s.T()

		e2e.CreateTestOperator(t, s.DB, "manager@example.com", "manager")
		machineID := e2e.CreateTestMachine(t, s.DB, "VM-121", 100, "WORKING",
			map[uuid.UUID]int{uuid.New(): 60})

		token := e2e.LoginOperator(t, s.Router, "manager@example.com")

		w := e2e.PerformRequest(t, s.Router, http.MethodPost, fmt.Sprintf(startURL, machineID), nil, token)
		require.Equal(t, http.StatusCreated, w.Code)

		w = e2e.PerformRequest(t, s.Router, http.MethodPost, fmt.Sprintf(forceReleaseURL, machineID), nil, token)
		require.Equal(t, http.StatusForbidden, w.Code)
	})
}
