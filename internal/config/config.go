package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config holds all runtime settings for the service.
type Config struct {
	Port            string
	MongoURI        string
	MongoDatabase   string
	JWTSecret       string
	AMQPURL         string
	AMQPExchange    string
	AuditRoutingKey string
	OTLPEndpoint    string
	Environment     string
	CORSOrigin      string
	DebugRoutes     bool
}

// Load reads configuration from the environment, falling back to local
// development defaults. A .env file is honored when present.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:            getEnv("PORT", "8083"),
		MongoURI:        getEnv("MONGODB_URI", "mongodb://127.0.0.1:27017"),
		MongoDatabase:   getEnv("MONGODB_DATABASE", "estate"),
		JWTSecret:       getEnv("JWT_SECRET", "dev-secret-change-me"),
		AMQPURL:         getEnv("AMQP_URL", ""),
		AMQPExchange:    getEnv("AMQP_EXCHANGE", "chat_events"),
		AuditRoutingKey: getEnv("AUDIT_ROUTING_KEY", "audit.chat"),
		OTLPEndpoint:    getEnv("OTLP_ENDPOINT", ""),
		Environment:     getEnv("ENVIRONMENT", "development"),
		CORSOrigin:      getEnv("CORS_ORIGIN", "http://localhost:5173"),
		DebugRoutes:     getEnv("DEBUG_ROUTES", "") == "true",
	}
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
