package config

import "time"

// PredictConfig holds configuration for the prediction game service
type PredictConfig struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Game     GameSettings
	Referral ReferralSettings
	Log      LogSettings
}

// GameSettings tunes the settlement engine
type GameSettings struct {
	PayoutMultiplier int64         // winning stake multiplier (2 = doubling game)
	PayoutBatchSize  int           // wager entries per settlement batch
	SweepInterval    time.Duration // recovery sweep cadence
	SweepGrace       time.Duration // manual rounds older than this get garbage collected
	FinalizeRetries  int           // settlement tx retries on contention
}

// ReferralSettings tunes the commission cascade
type ReferralSettings struct {
	StandardRatePct int64 // commission % for standard referrers
	PremiumRatePct  int64 // commission % for premium referrers
	QueueSize       int   // buffered commission jobs
}

// LogSettings holds logger settings
type LogSettings struct {
	Level  string
	Format string
	File   string
}

// LoadPredictConfig loads configuration for the prediction game service
func LoadPredictConfig() *PredictConfig {
	return &PredictConfig{
		Server: ServerConfig{
			Port: getEnv("PREDICT_SERVER_PORT", "8080"),
			Name: "predict-service",
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "earnflow_user"),
			Password: getEnv("DB_PASSWORD", "earnflow_pass"),
			Name:     getEnv("DB_NAME", "earnflow_db"),
		},
		Redis: RedisConfig{
			Host: getEnv("REDIS_HOST", "localhost"),
			Port: getEnv("REDIS_PORT", "6379"),
		},
		Game: GameSettings{
			PayoutMultiplier: getEnvInt64("PREDICT_PAYOUT_MULTIPLIER", 2),
			PayoutBatchSize:  getEnvInt("PREDICT_PAYOUT_BATCH_SIZE", 100),
			SweepInterval:    time.Duration(getEnvInt("PREDICT_SWEEP_INTERVAL_SECONDS", 60)) * time.Second,
			SweepGrace:       time.Duration(getEnvInt("PREDICT_SWEEP_GRACE_HOURS", 48)) * time.Hour,
			FinalizeRetries:  getEnvInt("PREDICT_FINALIZE_RETRIES", 3),
		},
		Referral: ReferralSettings{
			StandardRatePct: getEnvInt64("REFERRAL_STANDARD_RATE_PCT", 5),
			PremiumRatePct:  getEnvInt64("REFERRAL_PREMIUM_RATE_PCT", 20),
			QueueSize:       getEnvInt("REFERRAL_QUEUE_SIZE", 1024),
		},
		Log: LogSettings{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			File:   getEnv("LOG_FILE", "logs/predict/monolith.log"),
		},
	}
}
