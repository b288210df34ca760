package router

import (
	"AssetVault/internal/handler"
	"AssetVault/utils"

	"github.com/gin-gonic/gin"
)

// InitRouter builds API routes.
func InitRouter() *gin.Engine {
	r := gin.Default()
	r.Use(utils.CORSMiddleware())

	r.GET("/health", handler.Health)

	api := r.Group("/api")
	{
		api.POST("/token", handler.IssueToken)

		auth := api.Group("")
		auth.Use(utils.AuthMiddleware())

		transfer := auth.Group("/transfer")
		{
			transfer.POST("", handler.SubmitTransfer)
			transfer.GET("/:jobID", handler.GetTransferStatus)
			transfer.GET("", handler.ListTransfers)
		}
		auth.GET("/stats", handler.Stats)
	}
	return r
}
