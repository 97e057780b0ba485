package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	// Application
	Version     string
	Environment string
	WorkerID    string
	Port        int
	LogLevel    string

	// Logdy (lightweight web log viewer)
	LogdyEnabled bool
	LogdyHost    string
	LogdyPort    int

	// Camera / site
	CameraID     string
	CameraURL    string
	CameraLat    float64
	CameraLon    float64
	LocationName string

	// Classifier (external detection model, HTTP inference endpoint)
	ClassifierURL     string
	ClassifierTimeout time.Duration
	MinConfidence     float64

	// Trigger rule thresholds. Critical labels (crash classes) fire at a lower
	// bar than supporting labels (generic vehicle/person), which are weak
	// signals on their own.
	CriticalConfidence   float64
	SupportingConfidence float64

	// Agent dispatch (conversational-agent workflow trigger)
	AgentTokenURL        string
	AgentURL             string
	AgentAPIKey          string
	AgentIntegrationID   string
	AgentServiceInstance string
	AgentCooldown        time.Duration

	// Evidence capture (archive + bot notification channel)
	EvidenceDir      string
	BotAPIURL        string
	BotToken         string
	BotChatID        string
	EvidenceCooldown time.Duration

	// Outbound dispatch calls carry a bounded timeout so a degraded network
	// cannot accumulate goroutines
	DispatchTimeout time.Duration

	// Frame loop pacing
	FrameInterval      time.Duration
	SourceRetryBackoff time.Duration

	// Incident tracking
	IncidentHistorySize int

	// Queue estimation
	AvgVehicleLengthM float64
	SignalCycleSecs   int
	SecsPerVehicle    int

	// NATS (alert fan-out)
	NatsEnabled        bool
	NatsURL            string
	NatsConnectTimeout time.Duration
	NatsReconnectWait  time.Duration
	NatsMaxReconnects  int
	AlertsSubject      string

	// Swagger Configuration
	SwaggerHost string
	SwaggerPort int

	// Graceful Shutdown
	ShutdownTimeout time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file found, using environment variables and defaults")
	} else {
		log.Info().Msg("Loaded configuration from .env file")
	}

	return &Config{
		// Application
		Version:     getEnv("VERSION", "1.0.0"),
		Environment: getEnv("ENVIRONMENT", "development"),
		WorkerID:    getEnv("WORKER_ID", "sentinel-1"),
		Port:        getEnvInt("PORT", 8000),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// Logdy (lightweight web log viewer)
		LogdyEnabled: getEnvBool("LOGDY_ENABLED", false),
		LogdyHost:    getEnv("LOGDY_HOST", "localhost"),
		LogdyPort:    getEnvInt("LOGDY_PORT", 8080),

		// Camera / site
		CameraID:     getEnv("CAMERA_ID", "cam-1"),
		CameraURL:    getEnv("CAMERA_URL", "0"),
		CameraLat:    getEnvFloat("CAMERA_LAT", 15.4589),
		CameraLon:    getEnvFloat("CAMERA_LON", 75.0078),
		LocationName: getEnv("LOCATION_NAME", "Pune_Main_Road"),

		// Classifier
		ClassifierURL:     getEnv("CLASSIFIER_URL", "http://localhost:50052"),
		ClassifierTimeout: getEnvDuration("CLASSIFIER_TIMEOUT", 5*time.Second),
		MinConfidence:     getEnvFloat("MIN_CONFIDENCE", 0.4),

		// Trigger thresholds
		CriticalConfidence:   getEnvFloat("CRITICAL_CONFIDENCE", 0.4),
		SupportingConfidence: getEnvFloat("SUPPORTING_CONFIDENCE", 0.7),

		// Agent dispatch
		AgentTokenURL:        getEnv("AGENT_TOKEN_URL", "https://iam.cloud.ibm.com/identity/token"),
		AgentURL:             getEnv("AGENT_URL", "http://localhost:9100"),
		AgentAPIKey:          getEnv("AGENT_API_KEY", ""),
		AgentIntegrationID:   getEnv("AGENT_INTEGRATION_ID", ""),
		AgentServiceInstance: getEnv("AGENT_SERVICE_INSTANCE_ID", ""),
		AgentCooldown:        getEnvDuration("AGENT_COOLDOWN", 60*time.Second),

		// Evidence capture
		EvidenceDir:      getEnv("EVIDENCE_DIR", "evidence_archive"),
		BotAPIURL:        getEnv("BOT_API_URL", "https://api.telegram.org"),
		BotToken:         getEnv("BOT_TOKEN", ""),
		BotChatID:        getEnv("BOT_CHAT_ID", ""),
		EvidenceCooldown: getEnvDuration("EVIDENCE_COOLDOWN", 15*time.Second),

		// Dispatch
		DispatchTimeout: getEnvDuration("DISPATCH_TIMEOUT", 15*time.Second),

		// Frame loop
		FrameInterval:      getEnvDuration("FRAME_INTERVAL", 50*time.Millisecond),
		SourceRetryBackoff: getEnvDuration("SOURCE_RETRY_BACKOFF", 500*time.Millisecond),

		// Incident tracking
		IncidentHistorySize: getEnvInt("INCIDENT_HISTORY_SIZE", 100),

		// Queue estimation
		AvgVehicleLengthM: getEnvFloat("AVG_VEHICLE_LENGTH_M", 4.5),
		SignalCycleSecs:   getEnvInt("SIGNAL_CYCLE_SECS", 90),
		SecsPerVehicle:    getEnvInt("SECS_PER_VEHICLE", 2),

		// NATS
		NatsEnabled:        getEnvBool("NATS_ENABLED", false),
		NatsURL:            getNatsURL(),
		NatsConnectTimeout: getEnvDuration("NATS_CONNECT_TIMEOUT", 10*time.Second),
		NatsReconnectWait:  getEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		NatsMaxReconnects:  getEnvInt("NATS_MAX_RECONNECTS", -1), // -1 = unlimited
		AlertsSubject:      getEnv("ALERTS_SUBJECT", "alerts.traffic"),

		// Swagger Configuration
		SwaggerHost: getEnv("SWAGGER_HOST", "localhost"),
		SwaggerPort: getEnvInt("SWAGGER_PORT", 8000),

		// Graceful Shutdown
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Helper functions for Docker environment detection
func isRunningInDocker() bool {
	if os.Getenv("DOCKER_CONTAINER") == "true" {
		return true
	}

	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}

	return false
}

// getNatsURL returns the appropriate NATS URL based on environment
func getNatsURL() string {
	if envURL := os.Getenv("NATS_URL"); envURL != "" {
		return envURL
	}

	if isRunningInDocker() {
		return "nats://nats:4222"
	}

	return "nats://localhost:4222"
}
