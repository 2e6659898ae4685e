package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	ADDR          string
	DATABASE_URL  string
	REDIS_ADDR    string
	KAFKA_ADDRESS string
	KAFKA_TOPIC   string

	SMTP_HOST     string
	SMTP_PORT     string
	SMTP_USER     string
	SMTP_PASSWORD string
	NOREPLY_EMAIL string

	FB_APP_ID     string
	FB_APP_SECRET string

	JWT_SECRET string
	APP_URL    string
	LOG_LEVEL  string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	config := &Config{
		ADDR:          getenv("ADDR", ":8080"),
		DATABASE_URL:  os.Getenv("DATABASE_URL"),
		REDIS_ADDR:    os.Getenv("REDIS_ADDR"),
		KAFKA_ADDRESS: os.Getenv("KAFKA_ADDRESS"),
		KAFKA_TOPIC:   getenv("KAFKA_TOPIC", "location_events"),
		SMTP_HOST:     os.Getenv("SMTP_HOST"),
		SMTP_PORT:     getenv("SMTP_PORT", "587"),
		SMTP_USER:     os.Getenv("SMTP_USER"),
		SMTP_PASSWORD: os.Getenv("SMTP_PASSWORD"),
		NOREPLY_EMAIL: getenv("NOREPLY_EMAIL", "noreply@beacon.local"),
		FB_APP_ID:     os.Getenv("FB_APP_ID"),
		FB_APP_SECRET: os.Getenv("FB_APP_SECRET"),
		JWT_SECRET:    os.Getenv("JWT_SECRET"),
		APP_URL:       getenv("APP_URL", "http://localhost:8080"),
		LOG_LEVEL:     getenv("LOG_LEVEL", "info"),
	}

	return config, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
