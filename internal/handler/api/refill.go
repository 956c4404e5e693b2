package api

import (
	"errors"
	"net/http"

	reqdto "vendfleet/internal/handler/dto/request"
	resdto "vendfleet/internal/handler/dto/response"
	"vendfleet/internal/handler/middleware"
	"vendfleet/internal/usecase/commands"
	"vendfleet/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type RefillHandler struct {
	refillCommands commands.RefillCommands
	machineQueries queries.MachineQueries
}

func NewRefillHandler(refillCommands commands.RefillCommands, machineQueries queries.MachineQueries) *RefillHandler {
	return &RefillHandler{refillCommands: refillCommands, machineQueries: machineQueries}
}

func (h *RefillHandler) Start(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	machineID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid machine ID format",
		})
		return
	}

	result, err := h.refillCommands.Start(c.Request.Context(), machineID, actor)
	if err != nil {
		h.writeRefillError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resdto.FromStartRefillResult(result))
}

func (h *RefillHandler) Finish(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	machineID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid machine ID format",
		})
		return
	}

	var req reqdto.FinishRefillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	summary, err := h.refillCommands.Finish(c.Request.Context(), machineID, actor, req.Added, req.Comment)
	if err != nil {
		h.writeRefillError(c, err)
		return
	}

	c.JSON(http.StatusOK, resdto.FromRefillSummary(summary))
}

func (h *RefillHandler) ForceRelease(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	machineID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid machine ID format",
		})
		return
	}

	if err := h.refillCommands.ForceRelease(c.Request.Context(), machineID, actor); err != nil {
		h.writeRefillError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *RefillHandler) ListStaleSessions(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	views, err := h.machineQueries.ListStaleSessions(c.Request.Context(), actor)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}
	if views == nil {
		views = []*queries.StaleSessionView{}
	}

	c.JSON(http.StatusOK, views)
}

func (h *RefillHandler) writeRefillError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, commands.ErrMachineNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Machine not found",
		})
	case errors.Is(err, commands.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "No active refill session",
		})
	case errors.Is(err, commands.ErrSessionConflict), errors.Is(err, commands.ErrMachineInService):
		c.JSON(http.StatusConflict, gin.H{
			"error": "A refill session is already active for this machine",
		})
	case errors.Is(err, commands.ErrMachineErrored):
		c.JSON(http.StatusConflict, gin.H{
			"error": "Machine is in error state",
		})
	case errors.Is(err, commands.ErrMachineNotOperable):
		c.JSON(http.StatusConflict, gin.H{
			"error": "Machine is not operable",
		})
	case errors.Is(err, commands.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{
			"error": "Insufficient permissions",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
	}
}
