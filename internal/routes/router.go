// mercury-erp/internal/routes/router.go
package routes

import (
	"mercury-erp/internal/handlers"
	"mercury-erp/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupRouter собирает gin-движок: публичные маршруты аутентификации и
// вебхук шлюза, затем защищенное API.
func SetupRouter() *gin.Engine {
	r := gin.Default()

	// Публичные маршруты: вход и уведомления платежного шлюза.
	r.POST("/login", handlers.LoginHandler)
	r.POST("/webhooks/gateway", handlers.GatewayWebhookHandler)

	protected := r.Group("/")
	protected.Use(middleware.AuthMiddleware())
	{
		protected.GET("/logout", handlers.LogoutHandler)
		RegisterAPIRoutes(protected)
	}

	return r
}
