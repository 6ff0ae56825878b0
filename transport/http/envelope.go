package http

import "github.com/gin-gonic/gin"

// All responses share a {status, data|error} envelope.

// ErrorBody carries the stable error code plus a human-readable message.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondData(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"status": "success", "data": data})
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"status": "error", "error": ErrorBody{Code: code, Message: message}})
}

func abortError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"status": "error", "error": ErrorBody{Code: code, Message: message}})
}

// Stable error codes exposed on the wire.
const (
	CodeInvalidAddress        = "InvalidAddress"
	CodeAuthenticationFailed  = "AuthenticationFailed"
	CodeUnauthorized          = "Unauthorized"
	CodeInvalidInput          = "InvalidInput"
	CodeInvalidEncoding       = "InvalidEncoding"
	CodeDuplicateRequest      = "DuplicateRequest"
	CodeProofGenerationFailed = "ProofGenerationFailed"
	CodeTimeout               = "Timeout"
	CodeInternal              = "InternalError"
)
