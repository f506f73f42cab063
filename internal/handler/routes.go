package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/yourusername/newedenfaces-api/internal/config"
	"github.com/yourusername/newedenfaces-api/internal/middleware"
)

// RegisterCharacterRoutes публичные маршруты /api/characters.
// Статические пути (count, top) объявлены раньше /:id.
func RegisterCharacterRoutes(api *gin.RouterGroup, h *CharacterHandler, limiter *middleware.RateLimiter, limits config.RateLimitConfig) {
	characters := api.Group("/characters")
	{
		characters.GET("", h.GetPair)
		characters.PUT("", limiter.Limit(middleware.VoteRateLimitConfig(limits)), h.Vote)
		characters.POST("", limiter.Limit(middleware.RegisterRateLimitConfig(limits)), h.Register)
		characters.GET("/count", h.Count)
		characters.GET("/top", h.Top)
		characters.GET("/:id", middleware.ExtractCharacterIDParam("id"), h.GetCharacter)
	}
}

// RegisterAdminRoutes маршруты /api/admin под проверкой административного токена
func RegisterAdminRoutes(api *gin.RouterGroup, h *AdminHandler, auth *middleware.AuthMiddleware) {
	admin := api.Group("/admin", auth.RequireAdmin())
	{
		admin.POST("/characters/reset", h.ResetVotes)
		admin.DELETE("/characters/:id", middleware.ExtractCharacterIDParam("id"), h.DeleteCharacter)
		admin.GET("/characters/export", h.ExportLeaderboard)
	}
}
