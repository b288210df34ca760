package main

import (
	"AssetVault/config"
	"AssetVault/internal/fileinfo"
	"AssetVault/internal/repo"
	"AssetVault/internal/storage"
	"AssetVault/router"
	"log"
)

// main initializes services and starts the HTTP server.
func main() {
	config.InitConfig()
	repo.InitMysql()
	repo.InitRedis()
	storage.InitMinio()

	if err := fileinfo.EnsureDirs(config.AppConfig.DownloadDir, config.AppConfig.ProcessingDir); err != nil {
		log.Fatalf("create staging dirs failed: %v", err)
	}

	router := router.InitRouter()

	router.Run(":8000")
}
