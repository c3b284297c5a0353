package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	TelegramToken  string
	AllowedChatIDs []int64
	WebhookURL     string
	ServerPort     string
	MotionSecret   string

	CameraHubURL   string
	CameraHubToken string
	DefaultCamera  string

	OpenAIKey     string
	OpenAIBaseURL string
	VisionModel   string

	SchedulesPath string
	DatabasePath  string
	Timezone      *time.Location
}

func Load() (*Config, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	var chatIDs []int64
	for _, part := range strings.Split(os.Getenv("ALLOWED_CHAT_IDS"), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ALLOWED_CHAT_IDS: invalid chat id %q", part)
		}
		chatIDs = append(chatIDs, id)
	}
	if len(chatIDs) == 0 {
		return nil, fmt.Errorf("ALLOWED_CHAT_IDS is required (comma-separated chat ids)")
	}

	hubURL := os.Getenv("CAMERA_HUB_URL")
	if hubURL == "" {
		return nil, fmt.Errorf("CAMERA_HUB_URL is required")
	}

	schedulesPath := os.Getenv("SCHEDULES_PATH")
	if schedulesPath == "" {
		schedulesPath = "./data/schedules.json"
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "./data/camerabot.db"
	}

	tzName := os.Getenv("TIMEZONE")
	if tzName == "" {
		tzName = "Europe/Moscow"
	}
	tz, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	visionModel := os.Getenv("VISION_MODEL")
	if visionModel == "" {
		visionModel = "gpt-4o-mini"
	}

	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		serverPort = "8080"
	}

	return &Config{
		TelegramToken:  token,
		AllowedChatIDs: chatIDs,
		WebhookURL:     os.Getenv("WEBHOOK_URL"),
		ServerPort:     serverPort,
		MotionSecret:   os.Getenv("MOTION_WEBHOOK_SECRET"),
		CameraHubURL:   strings.TrimRight(hubURL, "/"),
		CameraHubToken: os.Getenv("CAMERA_HUB_TOKEN"),
		DefaultCamera:  os.Getenv("DEFAULT_CAMERA"),
		OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:  os.Getenv("OPENAI_BASE_URL"),
		VisionModel:    visionModel,
		SchedulesPath:  schedulesPath,
		DatabasePath:   dbPath,
		Timezone:       tz,
	}, nil
}

func (c *Config) IsAllowedChat(chatID int64) bool {
	for _, id := range c.AllowedChatIDs {
		if id == chatID {
			return true
		}
	}
	return false
}
