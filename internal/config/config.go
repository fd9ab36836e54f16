package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	JWT       JWTConfig
	Campaigns CampaignsConfig
	Delivery  DeliveryConfig
	LogLevel  string
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         string
	AllowedHosts []string
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URI      string
	Database string
}

// JWTConfig holds operator session token configuration
type JWTConfig struct {
	Secret    string
	ExpiresIn int // seconds
}

// KindWindows holds the timing windows for one campaign kind
type KindWindows struct {
	ParticipationWindow time.Duration
	RemindOffset        time.Duration
	AnswerWindow        time.Duration
}

// SequenceConfig maps sequence scopes to their numbering floors
type SequenceConfig struct {
	DefaultScope string
	Floors       map[string]int
}

// CampaignsConfig holds per-kind campaign behavior
type CampaignsConfig struct {
	Timezone         string
	Raffle           KindWindows
	Quiz             KindWindows
	QuizMinCorrect   int
	DrawGameSettle   time.Duration
	Sequence         SequenceConfig
	OperatorChatRefs []string
}

// DeliveryConfig holds delivery-channel gateway and retry configuration
type DeliveryConfig struct {
	BaseURL       string
	APISecret     string
	Mock          bool
	MaxAttempts   int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
	PacingDelay   time.Duration
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional; environment variables and defaults suffice
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults sets default values for configuration
func setDefaults() {
	viper.SetDefault("Server.Port", "4000")
	viper.SetDefault("Server.AllowedHosts", []string{"localhost:3000"})
	viper.SetDefault("MongoDB.URI", "mongodb://localhost:27017")
	viper.SetDefault("MongoDB.Database", "campaigns")
	viper.SetDefault("JWT.ExpiresIn", 24*60*60) // 24 hours
	viper.SetDefault("LogLevel", "info")

	viper.SetDefault("Campaigns.Timezone", "Europe/Moscow")
	viper.SetDefault("Campaigns.Raffle.ParticipationWindow", 2*time.Hour)
	viper.SetDefault("Campaigns.Raffle.RemindOffset", 1*time.Hour)
	viper.SetDefault("Campaigns.Raffle.AnswerWindow", 15*time.Minute)
	viper.SetDefault("Campaigns.Quiz.ParticipationWindow", 6*time.Hour)
	viper.SetDefault("Campaigns.Quiz.RemindOffset", 3*time.Hour)
	viper.SetDefault("Campaigns.Quiz.AnswerWindow", 15*time.Minute)
	viper.SetDefault("Campaigns.QuizMinCorrect", 1)
	viper.SetDefault("Campaigns.DrawGameSettle", 3500*time.Millisecond)
	viper.SetDefault("Campaigns.Sequence.DefaultScope", "main")
	viper.SetDefault("Campaigns.Sequence.Floors", map[string]int{"main": 100})

	viper.SetDefault("Delivery.Mock", true)
	viper.SetDefault("Delivery.MaxAttempts", 3)
	viper.SetDefault("Delivery.RetryDelay", 1*time.Second)
	viper.SetDefault("Delivery.MaxRetryDelay", 60*time.Second)
	viper.SetDefault("Delivery.PacingDelay", 50*time.Millisecond)
}

// Windows returns the timing windows for a campaign kind string
func (c *CampaignsConfig) Windows(kind string) KindWindows {
	switch kind {
	case "QUIZ":
		return c.Quiz
	default:
		return c.Raffle
	}
}
