package api

import (
	"net/http"

	reqdto "vendfleet/internal/handler/dto/request"
	"vendfleet/internal/handler/middleware"
	"vendfleet/internal/usecase/commands"

	"github.com/gin-gonic/gin"
)

type PushHandler struct {
	pushCommands commands.PushCommands
	vapidPublic  string
}

func NewPushHandler(pushCommands commands.PushCommands, vapidPublic string) *PushHandler {
	return &PushHandler{pushCommands: pushCommands, vapidPublic: vapidPublic}
}

// VAPIDKey hands the public key to browsers so they can subscribe.
func (h *PushHandler) VAPIDKey(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"public_key": h.vapidPublic,
	})
}

func (h *PushHandler) Subscribe(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	var req reqdto.SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	if err := h.pushCommands.Subscribe(c.Request.Context(), actor, req.Endpoint, req.Keys.P256dh, req.Keys.Auth); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	c.Status(http.StatusCreated)
}

func (h *PushHandler) Unsubscribe(c *gin.Context) {
	var req reqdto.UnsubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	if err := h.pushCommands.Unsubscribe(c.Request.Context(), req.Endpoint); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	c.Status(http.StatusNoContent)
}
