package routes

import (
	"fmt"
	"net/http"

	"churchinventory/internal/core/container"
	"churchinventory/internal/middleware"
	"churchinventory/pkg/security"

	"github.com/gin-gonic/gin"
)

// NewRouter builds the engine with the shared middleware chain and every
// route group mounted. Forwarding headers are honoured only from the
// configured proxies; with none configured the socket peer is the client.
func NewRouter(c *container.Container) (*gin.Engine, error) {
	router := gin.New()
	if err := router.SetTrustedProxies(c.Config.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	router.Use(
		middleware.RequestID(),
		middleware.RequestLogger(c.Logger),
		middleware.RecoveryMiddleware(c.Logger),
		middleware.Metrics(c.Metrics),
	)

	RegisterUtilityRoutes(router, c)
	RegisterPublicRoutes(router, c)
	RegisterProtectedRoutes(router, c)

	router.NoRoute(func(ctx *gin.Context) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Route not found", "code": "not_found"})
	})

	return router, nil
}

func RegisterPublicRoutes(router *gin.Engine, c *container.Container) {
	c.AuthHandler.RegisterPublicRoutes(router, c.RateLimiter.Middleware())
}

func RegisterProtectedRoutes(router *gin.Engine, c *container.Container) {
	protectedRoutes := router.Group("")
	protectedRoutes.Use(
		middleware.TimeoutMiddleware(c.Config.RequestTimeout),
		security.JWTMiddleware(c.TokenIssuer),
	)

	c.LocationHandler.RegisterRoutes(protectedRoutes)
	c.ItemHandler.RegisterRoutes(protectedRoutes)
	c.StockHandler.RegisterRoutes(protectedRoutes)
	c.MovementHandler.RegisterRoutes(protectedRoutes)
	c.DisposalHandler.RegisterRoutes(protectedRoutes)
	c.CSVHandler.RegisterRoutes(protectedRoutes)
	c.UserHandler.RegisterRoutes(protectedRoutes)
	c.AuthHandler.RegisterRoutes(protectedRoutes)
	c.ActivityHandler.RegisterRoutes(protectedRoutes)

	if c.SheetsHandler != nil {
		c.SheetsHandler.RegisterRoutes(protectedRoutes)
	}
}

func RegisterUtilityRoutes(router *gin.Engine, c *container.Container) {
	router.GET("/health", c.Health.Handle)
	router.GET("/metrics", gin.WrapH(c.Metrics.Handler()))
}
