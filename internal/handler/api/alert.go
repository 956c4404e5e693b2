package api

import (
	"errors"
	"net/http"

	reqdto "vendfleet/internal/handler/dto/request"
	"vendfleet/internal/handler/middleware"
	"vendfleet/internal/usecase/commands"
	"vendfleet/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AlertHandler struct {
	alertCommands commands.AlertCommands
	alertQueries  queries.AlertQueries
}

func NewAlertHandler(alertCommands commands.AlertCommands, alertQueries queries.AlertQueries) *AlertHandler {
	return &AlertHandler{alertCommands: alertCommands, alertQueries: alertQueries}
}

func (h *AlertHandler) List(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	filter := queries.AlertFilter{
		UnresolvedOnly: c.Query("unresolved") == "true",
		Limit:          parseIntQuery(c, "limit", 50),
	}
	if raw := c.Query("machine_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid machine ID format",
			})
			return
		}
		filter.MachineID = &id
	}

	views, err := h.alertQueries.List(c.Request.Context(), filter, actor)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}
	if views == nil {
		views = []*queries.AlertView{}
	}

	c.JSON(http.StatusOK, views)
}

func (h *AlertHandler) Resolve(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid alert ID format",
		})
		return
	}

	var req reqdto.ResolveAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	err = h.alertCommands.Resolve(c.Request.Context(), id, actor, req.Note)
	if err != nil {
		switch {
		case errors.Is(err, commands.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Insufficient permissions",
			})
		case errors.Is(err, commands.ErrAlertNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Alert not found",
			})
		case errors.Is(err, commands.ErrAlertAlreadyResolved):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Alert is already resolved",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
			})
		}
		return
	}

	c.Status(http.StatusNoContent)
}
