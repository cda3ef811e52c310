package routes

import (
	"connect/api/handlers"
	"connect/api/middleware"

	"github.com/gin-gonic/gin"
)

func PublicApi(router *gin.Engine, auth *handlers.AuthHandler) *gin.RouterGroup {
	publicEndpoints := router.Group("/api/v1/")
	{
		// Лента
		publicEndpoints.GET("posts", handlers.ListPosts)
		publicEndpoints.GET("posts/:id", middleware.OptionalAuth(), handlers.GetPost)
		publicEndpoints.POST("posts", middleware.RequireAuth(), handlers.CreatePost)
		publicEndpoints.DELETE("posts/:id", middleware.RequireAuth(), handlers.DeletePost)
		publicEndpoints.POST("posts/:id/like", middleware.RequireAuth(), handlers.ToggleLike)

		// OAuth
		publicEndpoints.GET("auth/login/:provider", auth.Login)
		publicEndpoints.GET("auth/callback/:provider", auth.Callback)
		publicEndpoints.POST("auth/logout", auth.Logout)

		// Профиль
		profile := publicEndpoints.Group("profile", middleware.RequireAuth())
		{
			profile.GET("me", handlers.Me)
			profile.GET("liked", handlers.LikedPosts)
			profile.GET("viewed", handlers.ViewedPosts)
		}
	}
	return publicEndpoints
}
