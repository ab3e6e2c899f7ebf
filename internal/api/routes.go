package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/arunika-actor/domain/entities"
	"github.com/satriahrh/arunika-actor/internal/auth"
	"github.com/satriahrh/arunika-actor/internal/websocket"
	"github.com/satriahrh/arunika-actor/usecase"
)

const maxTurnsLimit = 200

// StatusSource reports the orchestrator state
type StatusSource interface {
	Status() usecase.Status
}

// CacheStats reports response cache occupancy
type CacheStats interface {
	Len() int
	Stats() (hits, misses uint64)
}

// TurnLister lists journaled turns, newest first
type TurnLister interface {
	Recent(ctx context.Context, limit int) ([]*entities.SessionTurn, error)
}

// HealthChecker reports whether an optional dependency is reachable
type HealthChecker interface {
	Healthy() bool
}

// Dependencies are the collaborators the routes read from. Cache, Journal,
// Bus, Hub and Metrics are optional.
type Dependencies struct {
	Actor   string
	Status  StatusSource
	Cache   CacheStats
	Journal TurnLister
	Bus     HealthChecker
	Hub     *websocket.Hub
	Issuer  *auth.TokenIssuer
	Metrics http.Handler
	Now     func() time.Time
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, deps Dependencies, logger *zap.Logger) {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, HealthResponse{
			Status:  "ok",
			Service: "arunika-actor",
			Actor:   deps.Actor,
		})
	})

	e.GET("/ready", func(c echo.Context) error {
		return ready(c, deps)
	})

	e.GET("/status", func(c echo.Context) error {
		return status(c, deps)
	})

	e.GET("/turns", func(c echo.Context) error {
		return turns(c, deps, logger)
	})

	if deps.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(deps.Metrics))
	}

	// WebSocket endpoint with JWT validation
	if deps.Hub != nil {
		e.GET("/ws", func(c echo.Context) error {
			return websocketWithAuth(deps.Hub, deps.Issuer, c, logger)
		})
	}
}

func ready(c echo.Context, deps Dependencies) error {
	s := deps.Status.Status()
	resp := ReadyResponse{Ready: s.Ready, State: s.State}
	if deps.Bus != nil {
		healthy := deps.Bus.Healthy()
		resp.Bus = &healthy
		resp.Ready = resp.Ready && healthy
	}

	code := http.StatusOK
	if !resp.Ready {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, resp)
}

func status(c echo.Context, deps Dependencies) error {
	s := deps.Status.Status()
	resp := StatusResponse{
		Actor:    deps.Actor,
		State:    s.State,
		Ready:    s.Ready,
		Turns:    s.Turns,
		Uptime:   formatUptime(s.StartedAt, deps.Now()),
		LastTurn: s.LastTurn,
	}
	if deps.Cache != nil {
		resp.CacheSize = deps.Cache.Len()
		resp.CacheHits, resp.CacheMisses = deps.Cache.Stats()
	}
	if deps.Hub != nil {
		resp.Monitors = deps.Hub.ClientCount()
	}
	return c.JSON(http.StatusOK, resp)
}

func turns(c echo.Context, deps Dependencies, logger *zap.Logger) error {
	if deps.Journal == nil {
		return c.JSON(http.StatusOK, TurnsResponse{Turns: []*entities.SessionTurn{}})
	}

	limit := 20
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_limit",
				Message: "limit must be a positive integer",
			})
		}
		limit = min(n, maxTurnsLimit)
	}

	list, err := deps.Journal.Recent(c.Request().Context(), limit)
	if err != nil {
		logger.Error("Failed to read journal", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "journal_unavailable",
			Message: "Failed to read recent turns",
		})
	}
	if list == nil {
		list = []*entities.SessionTurn{}
	}
	return c.JSON(http.StatusOK, TurnsResponse{Turns: list})
}

// websocketWithAuth handles WebSocket connections with JWT authentication
func websocketWithAuth(hub *websocket.Hub, issuer *auth.TokenIssuer, c echo.Context, logger *zap.Logger) error {
	// Browsers cannot set headers on WebSocket requests, so a query token is accepted too
	token := c.QueryParam("token")
	if authHeader := c.Request().Header.Get("Authorization"); token == "" && strings.HasPrefix(authHeader, "Bearer ") {
		token = strings.TrimPrefix(authHeader, "Bearer ")
	}

	if token == "" {
		logger.Warn("WebSocket connection rejected: missing token")
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "missing_token",
			Message: "JWT token is required",
		})
	}

	if issuer == nil {
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "auth_unavailable",
			Message: "Token validation is not configured",
		})
	}

	claims, err := issuer.ValidateToken(token)
	if err != nil {
		logger.Warn("WebSocket connection rejected: invalid token", zap.Error(err))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "Invalid or expired JWT token",
		})
	}

	logger.Info("WebSocket connection authenticated",
		zap.String("subject", claims.Subject),
		zap.String("role", claims.Role))

	return websocket.HandleWebSocket(hub, c, claims.Subject)
}
