package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zkpersona/zkpersona/core"
	"github.com/zkpersona/zkpersona/service"
)

// Handlers contains the HTTP handlers for auth and proof endpoints
type Handlers struct {
	authService  *service.AuthService
	proofService *service.ProofService
}

// NewHandlers creates new HTTP handlers
func NewHandlers(authService *service.AuthService, proofService *service.ProofService) *Handlers {
	return &Handlers{
		authService:  authService,
		proofService: proofService,
	}
}

// Nonce handles POST /auth/nonce
func (h *Handlers) Nonce(c *gin.Context) {
	var req struct {
		WalletAddress string `json:"wallet_address" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, CodeInvalidInput, "wallet_address is required")
		return
	}

	message, err := h.authService.IssueNonce(c.Request.Context(), req.WalletAddress)
	if err != nil {
		if errors.Is(err, core.ErrInvalidAddress) {
			respondError(c, http.StatusBadRequest, CodeInvalidAddress, "wallet address is malformed")
			return
		}
		respondError(c, http.StatusInternalServerError, CodeInternal, "failed to create challenge")
		return
	}

	respondData(c, http.StatusOK, gin.H{"message": message})
}

// Login handles POST /auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req struct {
		WalletAddress string `json:"wallet_address" binding:"required"`
		Signature     string `json:"signature" binding:"required"`
		PublicKey     string `json:"public_key" binding:"required"`
		Message       string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, CodeInvalidInput, "wallet_address, signature and public_key are required")
		return
	}

	pair, err := h.authService.Login(c.Request.Context(), service.LoginInput{
		Address:   req.WalletAddress,
		Signature: req.Signature,
		PublicKey: req.PublicKey,
		Message:   req.Message,
	})
	if err != nil {
		if errors.Is(err, core.ErrInvalidAddress) {
			respondError(c, http.StatusBadRequest, CodeInvalidAddress, "wallet address is malformed")
			return
		}
		// Nonce, derivation and signature failures are indistinguishable
		// on the wire.
		respondError(c, http.StatusUnauthorized, CodeAuthenticationFailed, "authentication failed")
		return
	}

	c.SetCookie(SessionCookie, pair.AccessToken, int(pair.ExpiresIn), "/", "", false, true)
	respondData(c, http.StatusOK, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"token_type":    "Bearer",
		"expires_in":    pair.ExpiresIn,
	})
}

// Refresh handles POST /auth/refresh
func (h *Handlers) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, CodeInvalidInput, "refresh_token is required")
		return
	}

	pair, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, http.StatusUnauthorized, CodeUnauthorized, "invalid or expired refresh token")
		return
	}

	c.SetCookie(SessionCookie, pair.AccessToken, int(pair.ExpiresIn), "/", "", false, true)
	respondData(c, http.StatusOK, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"token_type":    "Bearer",
		"expires_in":    pair.ExpiresIn,
	})
}

// Logout handles POST /auth/logout
func (h *Handlers) Logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, CodeInvalidInput, "refresh_token is required")
		return
	}

	if err := h.authService.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		if errors.Is(err, core.ErrTokenExpired) {
			// Already inert; logging out an expired session succeeds.
			respondData(c, http.StatusOK, gin.H{"message": "logged out"})
			return
		}
		respondError(c, http.StatusUnauthorized, CodeUnauthorized, "invalid refresh token")
		return
	}

	c.SetCookie(SessionCookie, "", -1, "/", "", false, true)
	respondData(c, http.StatusOK, gin.H{"message": "logged out"})
}

// Me handles GET /auth/me
func (h *Handlers) Me(c *gin.Context) {
	address := c.GetString(contextAddressKey)
	respondData(c, http.StatusOK, gin.H{"address": address})
}

// GenerateProof handles POST /generate-proof
func (h *Handlers) GenerateProof(c *gin.Context) {
	var req struct {
		SessionID     string          `json:"session_id" binding:"required"`
		BehaviorInput json.RawMessage `json:"behavior_input" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, CodeInvalidInput, "session_id and behavior_input are required")
		return
	}

	address := c.GetString(contextAddressKey)
	artifact, err := h.proofService.Generate(c.Request.Context(), address, req.SessionID, req.BehaviorInput)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidInput):
			respondError(c, http.StatusBadRequest, CodeInvalidInput, "behavior input is malformed or empty")
		case errors.Is(err, core.ErrRequestConflict):
			respondError(c, http.StatusConflict, CodeDuplicateRequest, "a request with this session_id is already in flight")
		case errors.Is(err, core.ErrProofTimeout):
			respondError(c, http.StatusGatewayTimeout, CodeTimeout, "proof generation timed out")
		default:
			respondError(c, http.StatusBadGateway, CodeProofGenerationFailed, "proof generation failed")
		}
		return
	}

	respondData(c, http.StatusOK, artifact)
}

// VerifyProof handles POST /verify
func (h *Handlers) VerifyProof(c *gin.Context) {
	var req struct {
		ProofData       string             `json:"proof_data" binding:"required"`
		VerificationKey string             `json:"verification_key" binding:"required"`
		PublicSignals   core.PublicSignals `json:"public_signals"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, CodeInvalidEncoding, "proof_data and verification_key are required")
		return
	}

	result, err := h.proofService.Verify(c.Request.Context(), req.ProofData, req.VerificationKey, req.PublicSignals)
	if err != nil {
		if errors.Is(err, core.ErrInvalidEncoding) {
			respondError(c, http.StatusBadRequest, CodeInvalidEncoding, "artifact encoding is malformed")
			return
		}
		respondError(c, http.StatusInternalServerError, CodeInternal, "verification failed to run")
		return
	}

	respondData(c, http.StatusOK, result)
}

// Health handles GET /health
func (h *Handlers) Health(c *gin.Context) {
	respondData(c, http.StatusOK, gin.H{"healthy": true})
}
