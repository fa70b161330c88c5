package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"primerjalnik/server/config"
)

func SetupRoutes(router *gin.Engine, handler *Handler, cfg *config.Config) {
	router.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
	}))

	api := router.Group("/api")
	{
		api.POST("/search", handler.SubmitSearch)
		api.GET("/results", handler.GetResults)
		api.POST("/ai/search", handler.AISearch)
		api.GET("/makes/:category", handler.GetMakes)
		api.GET("/models/:category", handler.GetModels)
		api.GET("/buckets/:category", handler.GetBuckets)
		api.GET("/recommendations", handler.GetRecommendations)

		api.GET("/watchlist", handler.GetWatchlist)
		api.POST("/watchlist", handler.AddToWatchlist)
		api.DELETE("/watchlist/:id", handler.RemoveFromWatchlist)

		api.GET("/preferences/:category", handler.GetPreferences)
		api.POST("/preferences/:category", handler.AddPreference)
		api.DELETE("/preferences/:category/:index", handler.RemovePreference)

		users := api.Group("/users")
		{
			users.POST("/register", handler.Register)
			users.POST("/login", handler.Login)
			users.POST("/loginWithGoogle", handler.LoginWithGoogle)
			users.POST("/logout", handler.Logout)
		}
	}
}
