package api

import (
	"errors"
	"net/http"

	reqdto "vendfleet/internal/handler/dto/request"
	resdto "vendfleet/internal/handler/dto/response"
	"vendfleet/internal/handler/middleware"
	"vendfleet/internal/infra"
	"vendfleet/internal/usecase/commands"
	"vendfleet/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type MachineHandler struct {
	machineCommands commands.MachineCommands
	machineQueries  queries.MachineQueries
	historyQueries  queries.HistoryQueries
}

func NewMachineHandler(
	machineCommands commands.MachineCommands,
	machineQueries queries.MachineQueries,
	historyQueries queries.HistoryQueries,
) *MachineHandler {
	return &MachineHandler{
		machineCommands: machineCommands,
		machineQueries:  machineQueries,
		historyQueries:  historyQueries,
	}
}

func (h *MachineHandler) Create(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	var req reqdto.CreateMachineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	result, err := h.machineCommands.Create(c.Request.Context(), commands.CreateMachineRequest{
		Code:       req.Code,
		Capacity:   req.Capacity,
		ManagerID:  req.ManagerID,
		ProductIDs: req.ProductIDs,
		SeedStock:  req.SeedStock,
	}, actor)
	if err != nil {
		switch {
		case errors.Is(err, commands.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Insufficient permissions",
			})
		case errors.Is(err, commands.ErrDuplicateMachineCode):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Machine code already in use",
			})
		case errors.Is(err, commands.ErrInvalidMachine):
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error": "Invalid machine parameters",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
			})
		}
		return
	}

	c.JSON(http.StatusCreated, resdto.FromCreateMachineResult(result))
}

func (h *MachineHandler) List(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	items, err := h.machineQueries.List(c.Request.Context(), actor)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}
	if items == nil {
		items = []*queries.MachineListItem{}
	}

	c.JSON(http.StatusOK, items)
}

func (h *MachineHandler) GetSnapshot(c *gin.Context) {
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
			"error": "Invalid machine ID format",
		})
		return
	}

	view, err := h.machineQueries.GetSnapshot(c.Request.Context(), id, actor)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
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

	c.JSON(http.StatusOK, view)
}

func (h *MachineHandler) PairDevice(c *gin.Context) {
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
			"error": "Invalid machine ID format",
		})
		return
	}

	result, err := h.machineCommands.PairDevice(c.Request.Context(), id, actor)
	if err != nil {
		switch {
		case errors.Is(err, commands.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Insufficient permissions",
			})
		case errors.Is(err, commands.ErrMachineNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Machine not found",
			})
		case errors.Is(err, commands.ErrMachineNotUnpaired):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Machine is already paired",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
			})
		}
		return
	}

	c.JSON(http.StatusCreated, resdto.FromPairDeviceResult(result))
}

func (h *MachineHandler) SetActive(c *gin.Context) {
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
			"error": "Invalid machine ID format",
		})
		return
	}

	var req reqdto.SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	err = h.machineCommands.SetActive(c.Request.Context(), id, *req.Active, actor)
	if err != nil {
		switch {
		case errors.Is(err, commands.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Insufficient permissions",
			})
		case errors.Is(err, commands.ErrMachineNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Machine not found",
			})
		case errors.Is(err, commands.ErrMachineNotOperable):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Machine state does not allow this change",
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

func (h *MachineHandler) AssignManager(c *gin.Context) {
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
			"error": "Invalid machine ID format",
		})
		return
	}

	var req reqdto.AssignManagerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	err = h.machineCommands.AssignManager(c.Request.Context(), id, req.ManagerID, actor)
	if err != nil {
		switch {
		case errors.Is(err, commands.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Insufficient permissions",
			})
		case errors.Is(err, commands.ErrMachineNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Machine not found",
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

func (h *MachineHandler) Delete(c *gin.Context) {
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
			"error": "Invalid machine ID format",
		})
		return
	}

	err = h.machineCommands.Delete(c.Request.Context(), id, actor)
	if err != nil {
		switch {
		case errors.Is(err, commands.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Insufficient permissions",
			})
		case errors.Is(err, commands.ErrMachineNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Machine not found",
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

func (h *MachineHandler) RefillLogs(c *gin.Context) {
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
			"error": "Invalid machine ID format",
		})
		return
	}

	limit := parseIntQuery(c, "limit", 50)
	logs, err := h.historyQueries.RefillLogs(c.Request.Context(), id, limit, actor)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}
	if logs == nil {
		logs = []*queries.RefillLogView{}
	}

	c.JSON(http.StatusOK, logs)
}

func (h *MachineHandler) Sales(c *gin.Context) {
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
			"error": "Invalid machine ID format",
		})
		return
	}

	from, to, err := parseTimeRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid time range",
		})
		return
	}

	limit := parseIntQuery(c, "limit", 100)
	sales, err := h.historyQueries.Sales(c.Request.Context(), id, from, to, limit, actor)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}
	if sales == nil {
		sales = []*queries.SaleView{}
	}

	c.JSON(http.StatusOK, sales)
}

func (h *MachineHandler) SalesSummary(c *gin.Context) {
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
			"error": "Invalid machine ID format",
		})
		return
	}

	from, to, err := parseTimeRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid time range",
		})
		return
	}

	summary, err := h.historyQueries.SalesSummary(c.Request.Context(), id, from, to, actor)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	c.JSON(http.StatusOK, summary)
}
