package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/tazhate/camerabot/config"
	"github.com/tazhate/camerabot/internal/bot"
	"github.com/tazhate/camerabot/internal/clients/camera"
	"github.com/tazhate/camerabot/internal/clients/vision"
	"github.com/tazhate/camerabot/internal/engine"
	"github.com/tazhate/camerabot/internal/storage"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// .env is optional, env vars win
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	store := storage.NewStore(cfg.SchedulesPath)

	history, err := storage.OpenHistory(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open history db: %v", err)
	}
	defer history.Close()

	cameras := camera.NewClient(cfg.CameraHubURL, cfg.CameraHubToken)

	var visionSvc engine.VisionService
	if cfg.OpenAIKey != "" {
		visionSvc = vision.NewClient(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.VisionModel)
	} else {
		log.Println("OPENAI_API_KEY not set, vision features disabled")
	}

	eng := engine.New(store, history, cameras, visionSvc, cfg.Timezone, cfg.DefaultCamera, cfg.AllowedChatIDs)

	tgBot, err := bot.New(cfg, eng, cameras, history)
	if err != nil {
		log.Fatalf("Failed to init bot: %v", err)
	}
	eng.SetDispatcher(tgBot)

	if err := tgBot.SetupWebhook(); err != nil {
		log.Fatalf("Failed to setup webhook: %v", err)
	}

	if err := eng.Start(); err != nil {
		log.Fatalf("Failed to start engine: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := tgBot.Start(ctx); err != nil {
			log.Printf("Bot error: %v", err)
		}
	}()

	log.Println("CameraBot started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")

	cancel()
	eng.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := tgBot.Stop(shutdownCtx); err != nil {
		log.Printf("Error stopping bot: %v", err)
	}

	log.Println("CameraBot stopped")
}
