package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort      string
	FirebaseProject string
	Environment     string

	LocalStorePath string

	OpenAIAPIKey   string
	AssistantModel string
	// Minutes of inactivity after which an assistant session is treated as a
	// fresh app start and its transcript is reset.
	AssistantIdleMinutes int64
}

func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		ServerPort:           getEnv("SERVER_PORT", "8080"),
		FirebaseProject:      getEnv("FIREBASE_PROJECT_ID", ""),
		Environment:          getEnv("ENVIRONMENT", "development"),
		LocalStorePath:       getEnv("LOCAL_STORE_PATH", "./carlink.db"),
		OpenAIAPIKey:         getEnv("OPENAI_API_KEY", ""),
		AssistantModel:       getEnv("ASSISTANT_MODEL", "gpt-4o-mini"),
		AssistantIdleMinutes: getEnvAsInt64("ASSISTANT_IDLE_MINUTES", 30),
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err == nil {
			return intValue
		}
	}
	return defaultValue
}
