//go:build e2e

package device_test

import (
	"fmt"
	"net/http"
	"testing"

	"vendfleet/internal/handler/dto/request"
	"vendfleet/internal/handler/dto/response"
	"vendfleet/tests/e2e"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const (
	pairURL      = "/api/machines/%s/pair"
	telemetryURL = "/api/device/telemetry"
	saleURL      = "/api/device/sales"
)

type DeviceSuite struct {
	e2e.SharedSuite
}

func TestDeviceSuite(t *testing.T) {
	suite.Run(t, new(DeviceSuite))
}

func (s *DeviceSuite) pairMachine(machineID uuid.UUID) string {
	t := s.T()

	e2e.CreateTestOperator(t, s.DB, "admin@example.com", "admin")
	token := e2e.LoginOperator(t, s.Router, "admin@example.com")

	w := e2e.PerformRequest(t, s.Router, http.MethodPost, fmt.Sprintf(pairURL, machineID), nil, token)
	require.Equal(t, http.StatusCreated, w.Code, "pairing failed: %s", w.Body.String())

	var paired response.PairDeviceResponse
	e2e.DecodeResponseBody(t, w.Body, &paired)
	require.NotEmpty(t, paired.APIKey)
	return paired.APIKey
}

func (s *DeviceSuite) TestTelemetry() {
	s.Run("device reports its stock total", func() {
		t := s.T()

		productID := uuid.New()
		machineID := e2e.CreateTestMachine(t, s.DB, "VM-200", 100, "UNPAIRED",
			map[uuid.UUID]int{productID: 80})
		apiKey := s.pairMachine(machineID)

		reported := 80
		w := e2e.PerformDeviceRequest(t, s.Router, http.MethodPost, telemetryURL,
			request.TelemetryRequest{ReportedTotal: &reported}, apiKey)
		require.Equal(t, http.StatusOK, w.Code, "telemetry failed: %s", w.Body.String())

		var actual response.TelemetryResponse
		e2e.DecodeResponseBody(t, w.Body, &actual)

		expected := response.TelemetryResponse{
			MachineID:     machineID,
			Stock:         80,
			Status:        "WORKING",
			DriftDetected: false,
		}
		if diff := cmp.Diff(expected, actual); diff != "" {
			t.Errorf("telemetry response mismatch (-want +got):\n%s", diff)
		}
	})

	s.Run("drifted report raises an alert", func() {
		t := s.T()

		productID := uuid.New()
		machineID := e2e.CreateTestMachine(t, s.DB, "VM-201", 100, "UNPAIRED",
			map[uuid.UUID]int{productID: 80})
		apiKey := s.pairMachine(machineID)

		reported := 60
		w := e2e.PerformDeviceRequest(t, s.Router, http.MethodPost, telemetryURL,
			request.TelemetryRequest{ReportedTotal: &reported}, apiKey)
		require.Equal(t, http.StatusOK, w.Code)

		var actual response.TelemetryResponse
		e2e.DecodeResponseBody(t, w.Body, &actual)
		require.True(t, actual.DriftDetected)
		require.Equal(t, 60, actual.Stock)

		var alertCount int
		err := s.DB.QueryRow(t.Context(),
			`SELECT COUNT(*) FROM alerts WHERE machine_id = $1 AND type = 'DRIFT'`, machineID).Scan(&alertCount)
		require.NoError(t, err)
		require.Equal(t, 1, alertCount)
	})

	s.Run("unknown device key is rejected", func() {
		t := s.T()

		reported := 10
		w := e2e.PerformDeviceRequest(t, s.Router, http.MethodPost, telemetryURL,
			request.TelemetryRequest{ReportedTotal: &reported}, "no-such-key")
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func (s *DeviceSuite) TestRecordSale() {
	s.Run("sale deducts stock and is recorded", func() {
		t := s.T()

		productID := uuid.New()
		machineID := e2e.CreateTestMachine(t, s.DB, "VM-210", 100, "UNPAIRED",
			map[uuid.UUID]int{productID: 80})
		apiKey := s.pairMachine(machineID)

		w := e2e.PerformDeviceRequest(t, s.Router, http.MethodPost, saleURL,
			request.SaleRequest{ProductID: productID, Qty: 2, Price: 1.5}, apiKey)
		require.Equal(t, http.StatusCreated, w.Code, "sale failed: %s", w.Body.String())

		var actual response.SaleResponse
		e2e.DecodeResponseBody(t, w.Body, &actual)
		require.Equal(t, 78, actual.Stock)
		require.Equal(t, 3.0, actual.Total)

		var saleCount int
		err := s.DB.QueryRow(t.Context(),
			`SELECT COUNT(*) FROM sales WHERE machine_id = $1`, machineID).Scan(&saleCount)
		require.NoError(t, err)
		require.Equal(t, 1, saleCount)
	})

	s.Run("selling an unknown product fails", func() {
		t := s.T()

		machineID := e2e.CreateTestMachine(t, s.DB, "VM-211", 100, "UNPAIRED",
			map[uuid.UUID]int{uuid.New(): 80})
		apiKey := s.pairMachine(machineID)

		w := e2e.PerformDeviceRequest(t, s.Router, http.MethodPost, saleURL,
			request.SaleRequest{ProductID: uuid.New(), Qty: 1, Price: 1.0}, apiKey)
		require.Equal(t, http.StatusConflict, w.Code)
	})
}
