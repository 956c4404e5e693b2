package api

import (
	"errors"
	"net/http"

	reqdto "vendfleet/internal/handler/dto/request"
	resdto "vendfleet/internal/handler/dto/response"
	"vendfleet/internal/handler/middleware"
	"vendfleet/internal/usecase/commands"

	"github.com/gin-gonic/gin"
)

// DeviceHandler serves the embedded device callbacks. Requests are
// authenticated by the device key middleware, not by operator tokens.
type DeviceHandler struct {
	telemetryCommands commands.TelemetryCommands
	saleCommands      commands.SaleCommands
}

func NewDeviceHandler(telemetryCommands commands.TelemetryCommands, saleCommands commands.SaleCommands) *DeviceHandler {
	return &DeviceHandler{telemetryCommands: telemetryCommands, saleCommands: saleCommands}
}

func (h *DeviceHandler) ReportTelemetry(c *gin.Context) {
	machineID, ok := middleware.GetDeviceMachineID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	var req reqdto.TelemetryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	result, err := h.telemetryCommands.Apply(c.Request.Context(), machineID, commands.TelemetryInput{
		ReportedTotal: req.ReportedTotal,
		ErrorCode:     req.ErrorCode,
	})
	if err != nil {
		if errors.Is(err, commands.ErrMachineNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Machine not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	c.JSON(http.StatusOK, resdto.FromTelemetryResult(result))
}

func (h *DeviceHandler) RecordSale(c *gin.Context) {
	machineID, ok := middleware.GetDeviceMachineID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	var req reqdto.SaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	result, err := h.saleCommands.Record(c.Request.Context(), machineID, req.ProductID, req.Qty, req.Price)
	if err != nil {
		switch {
		case errors.Is(err, commands.ErrMachineNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Machine not found",
			})
		case errors.Is(err, commands.ErrInvalidSale):
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error": "Invalid sale parameters",
			})
		case errors.Is(err, commands.ErrMachineNotPaired),
			errors.Is(err, commands.ErrMachineInactive),
			errors.Is(err, commands.ErrMachineInService),
			errors.Is(err, commands.ErrMachineErrored):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Machine state does not allow sales",
			})
		case errors.Is(err, commands.ErrMachineOutOfStock), errors.Is(err, commands.ErrInsufficientStock):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Insufficient stock",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
			})
		}
		return
	}

	c.JSON(http.StatusCreated, resdto.FromSaleResult(result))
}
