package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type RouterConfig struct {
	Market MarketClient
	Trader Trader
	Prices PriceStore
	// Events serves the websocket event stream; nil disables /ws.
	Events    gin.HandlerFunc
	JWTSecret string
	Log       logrus.FieldLogger
}

// NewRouter builds the gateway. Everything under /api/v1 and /ws requires a
// bearer token when JWTSecret is set.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(cfg.Log), CORSMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	protected := router.Group("/")
	if cfg.JWTSecret != "" {
		protected.Use(AuthMiddleware(cfg.JWTSecret))
	} else {
		cfg.Log.Warn("gateway.jwt_secret is empty, API is unauthenticated")
	}

	SetupRoutes(protected.Group("/api/v1"), cfg.Market, cfg.Trader, cfg.Prices, cfg.Log)
	if cfg.Events != nil {
		protected.GET("/ws", cfg.Events)
	}
	return router
}
