package http

import (
	"github.com/gin-gonic/gin"
	"github.com/zkpersona/zkpersona/service"
)

// SetupRouter sets up the Gin router
func SetupRouter(authService *service.AuthService, proofService *service.ProofService) *gin.Engine {
	router := gin.Default()

	handlers := NewHandlers(authService, proofService)

	// Auth routes
	auth := router.Group("/auth")
	{
		auth.POST("/nonce", handlers.Nonce)
		auth.POST("/login", handlers.Login)
		auth.POST("/refresh", handlers.Refresh)
		auth.POST("/logout", handlers.Logout)
		auth.GET("/me", AuthMiddleware(authService), handlers.Me)
	}

	// Proof generation requires a session; verification is open to any
	// third party holding the artifact.
	router.POST("/generate-proof", AuthMiddleware(authService), handlers.GenerateProof)
	router.POST("/verify", handlers.VerifyProof)

	router.GET("/health", handlers.Health)

	return router
}
