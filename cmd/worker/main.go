package main

import (
	"AssetVault/config"
	"AssetVault/internal/fileinfo"
	"AssetVault/internal/repo"
	"AssetVault/internal/storage"
	"AssetVault/internal/worker"
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	config.InitConfig()
	repo.InitMysql()
	repo.InitRedis()
	storage.InitMinio()

	if err := fileinfo.EnsureDirs(config.AppConfig.DownloadDir, config.AppConfig.ProcessingDir); err != nil {
		log.Fatalf("create staging dirs failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Println("transfer worker started")
	if err := worker.RunTransferWorker(ctx); err != nil {
		log.Fatalf("transfer worker stopped: %v", err)
	}
}
