package delivery

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	authdto "jobtrack-backend/internal/auth/dto"
	"jobtrack-backend/internal/auth/usecase"
)

// AccountHandler serves linked-account and device-token endpoints.
type AccountHandler struct {
	accounts usecase.AccountUsecase
	logger   *zap.Logger
}

func NewAccountHandler(accounts usecase.AccountUsecase, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, logger: logger}
}

func (h *AccountHandler) Register(api *gin.RouterGroup) {
	accounts := api.Group("/accounts")
	accounts.GET("", h.ListAccounts)
	accounts.PUT("/google", h.LinkGoogle)
	accounts.PUT("/imap", h.LinkIMAP)
	accounts.DELETE("/:provider", h.Unlink)

	api.POST("/fcm/token", h.RegisterFCMToken)
	api.DELETE("/fcm/token", h.UnregisterFCMToken)
	api.DELETE("/fcm/tokens", h.UnregisterAllFCMTokens)
}

// GET /api/accounts
func (h *AccountHandler) ListAccounts(c *gin.Context) {
	accounts, err := h.accounts.List(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}

// LinkGoogle stores tokens handed over after an OAuth consent
// PUT /api/accounts/google
func (h *AccountHandler) LinkGoogle(c *gin.Context) {
	var req authdto.LinkGoogleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	account, err := h.accounts.LinkGoogle(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

// PUT /api/accounts/imap
func (h *AccountHandler) LinkIMAP(c *gin.Context) {
	var req authdto.LinkIMAPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	account, err := h.accounts.LinkIMAP(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

// Unlink forgets the provider credential so the owner can reconnect
// DELETE /api/accounts/:provider
func (h *AccountHandler) Unlink(c *gin.Context) {
	if err := h.accounts.Unlink(c.Request.Context(), c.GetString("userID"), c.Param("provider")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Account unlinked"})
}

// POST /api/fcm/token
func (h *AccountHandler) RegisterFCMToken(c *gin.Context) {
	var req authdto.RegisterFCMTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.accounts.RegisterFCMToken(c.Request.Context(), c.GetString("userID"), req); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Token registered"})
}

// DELETE /api/fcm/token
func (h *AccountHandler) UnregisterFCMToken(c *gin.Context) {
	var req authdto.RegisterFCMTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.accounts.UnregisterFCMToken(c.Request.Context(), c.GetString("userID"), req.Token); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Token removed"})
}

// DELETE /api/fcm/tokens
func (h *AccountHandler) UnregisterAllFCMTokens(c *gin.Context) {
	if err := h.accounts.UnregisterAllFCMTokens(c.Request.Context(), c.GetString("userID")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Tokens removed"})
}

func (h *AccountHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, usecase.ErrAccountNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Account not linked"})
	case errors.Is(err, usecase.ErrUnknownProvider):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, usecase.ErrIMAPNotAvailable):
		c.JSON(http.StatusNotImplemented, gin.H{"error": err.Error()})
	default:
		h.logger.Error("account request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
