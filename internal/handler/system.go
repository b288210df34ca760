package handler

import (
	"AssetVault/config"
	"AssetVault/internal/dto"
	"AssetVault/internal/fileinfo"
	"AssetVault/utils"
	"net/http"

	"github.com/gin-gonic/gin"
)

// IssueToken issues an API token for a client.
func IssueToken(c *gin.Context) {
	var req dto.TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	token, err := utils.GenerateToken(req.ClientID)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Success(c, dto.TokenResponse{Token: token})
}

// Health reports service liveness.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Stats reports staging directory usage.
func Stats(c *gin.Context) {
	utils.Success(c, dto.StatsResponse{
		Downloads:  fileinfo.StatDirs(config.AppConfig.DownloadDir),
		Processing: fileinfo.StatDirs(config.AppConfig.ProcessingDir),
	})
}
