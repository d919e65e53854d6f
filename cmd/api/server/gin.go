package server

import (
	"net/http"
	"time"

	"user-service/internal/adapter/gin/handler"
	"user-service/internal/adapter/gin/middleware"
	"user-service/internal/adapter/gin/router"

	"go.uber.org/zap"
)

// SetupHTTPServer wraps the Gin router in an http.Server with sane timeouts.
func SetupHTTPServer(
	userHandler *handler.UserHandler,
	rateLimiter *middleware.RateLimiter,
	addr string,
	l *zap.Logger,
) *http.Server {
	engine := router.SetupRouter(userHandler, rateLimiter, l)

	l.Info("REST API configured", zap.String("address", addr))

	return &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
