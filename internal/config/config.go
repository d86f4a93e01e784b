package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by CLAWGUILD_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("CLAWGUILD_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

// APIKey is the bearer token required on /v1 routes. Empty disables auth.
func APIKey() string {
	return os.Getenv("API_KEY")
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}

func FlyAPIToken() string {
	return os.Getenv("FLY_API_TOKEN")
}

// FlyOrgSlug defaults to "personal".
func FlyOrgSlug() string {
	org := os.Getenv("FLY_ORG_SLUG")
	if org == "" {
		return "personal"
	}
	return org
}

func RailwayAPIKey() string {
	return os.Getenv("RAILWAY_API_KEY")
}

func AWSAccessKeyID() string {
	return os.Getenv("AWS_ACCESS_KEY_ID")
}

func AWSSecretAccessKey() string {
	return os.Getenv("AWS_SECRET_ACCESS_KEY")
}

// AWSRegion defaults to us-east-1.
func AWSRegion() string {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		return "us-east-1"
	}
	return region
}

func AWSAMIID() string {
	return os.Getenv("AWS_AMI_ID")
}

// AWSInstanceType defaults to t3.small.
func AWSInstanceType() string {
	t := os.Getenv("AWS_INSTANCE_TYPE")
	if t == "" {
		return "t3.small"
	}
	return t
}

// DockerEnabled turns on the local docker provider.
func DockerEnabled() bool {
	enabled, _ := strconv.ParseBool(os.Getenv("DOCKER_ENABLED"))
	return enabled
}

func DockerNetwork() string {
	return os.Getenv("DOCKER_NETWORK")
}

func DiscordBotToken() string {
	return os.Getenv("DISCORD_BOT_TOKEN")
}

func NATSURL() string {
	return os.Getenv("NATS_URL")
}

// DeployPollInterval returns the delay between provider status polls.
// Defaults to 2s.
func DeployPollInterval() time.Duration {
	return durationOr("DEPLOY_POLL_INTERVAL", 2*time.Second)
}

// DeployMaxPollAttempts defaults to 30.
func DeployMaxPollAttempts() int {
	return intOr("DEPLOY_MAX_POLL_ATTEMPTS", 30)
}

func ReconcileInterval() time.Duration {
	return durationOr("RECONCILE_INTERVAL", time.Minute)
}

func StatusCacheTTL() time.Duration {
	return durationOr("STATUS_CACHE_TTL", 5*time.Second)
}

func ProviderBreakerFailures() int {
	return intOr("PROVIDER_BREAKER_FAILURES", 5)
}

func ProviderBreakerTimeout() time.Duration {
	return durationOr("PROVIDER_BREAKER_TIMEOUT", 30*time.Second)
}

func intOr(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func durationOr(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return def
	}
	return d
}
