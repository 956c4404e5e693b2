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

type AuthHandler struct {
	authCommands commands.AuthCommands
}

func NewAuthHandler(authCommands commands.AuthCommands) *AuthHandler {
	return &AuthHandler{authCommands: authCommands}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req reqdto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	result, err := h.authCommands.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, commands.ErrAuthenticationFailed):
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid email or password",
			})
		case errors.Is(err, commands.ErrOperatorInactive):
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Operator account is deactivated",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
			})
		}
		return
	}

	c.JSON(http.StatusOK, resdto.LoginResponse{
		AccessToken: result.Token,
		Operator:    resdto.FromOperator(result.Operator),
	})
}

func (h *AuthHandler) Register(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	var req reqdto.RegisterOperatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	o, err := h.authCommands.Register(c.Request.Context(), req.Email, req.Password, req.Role, actor)
	if err != nil {
		switch {
		case errors.Is(err, commands.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Insufficient permissions",
			})
		case errors.Is(err, commands.ErrDuplicateEmail):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Email already registered",
			})
		case errors.Is(err, commands.ErrInvalidOperator):
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error": "Invalid operator parameters",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
			})
		}
		return
	}

	c.JSON(http.StatusCreated, resdto.FromOperator(o))
}
