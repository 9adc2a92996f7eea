// Package config loads all application configuration from the environment,
// with optional .env file support.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the process-wide configuration bundle. Built once at startup and
// passed into the components that need it; nothing reads the environment
// after Load returns.
type Config struct {
	StorePath    string
	ProductsPath string
	ChartDir     string
	JournalPath  string // empty disables the scan journal

	MarketEndpoint   string
	MarketRegion     string
	MarketAccessKey  string
	MarketSecretKey  string
	MarketPartnerTag string
	Marketplace      string

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	MailFrom     string
	MailTo       string
}

// Load reads configuration from a .env file (if present) and the
// environment. Supports running from the repo root as well as from a cmd/
// subdirectory.
func Load(logger *log.Logger) (Config, error) {
	envPaths := []string{
		".env",       // Current directory (root)
		"../../.env", // From cmd/<tool>/ to project root
		"../.env",    // From cmd/ to project root
	}

	loaded := false
	for _, envPath := range envPaths {
		if _, err := os.Stat(envPath); err == nil {
			if err := godotenv.Load(envPath); err == nil {
				loaded = true
				logger.Printf("Loaded .env from: %s", envPath)
				break
			}
		}
	}
	if !loaded {
		logger.Println("No .env file found, using system environment variables")
	}

	smtpPort, err := strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}

	cfg := Config{
		StorePath:    getEnv("STORE_PATH", "data/priceHistory.csv"),
		ProductsPath: getEnv("PRODUCTS_PATH", "data/products.json"),
		ChartDir:     getEnv("CHART_DIR", "."),
		JournalPath:  os.Getenv("JOURNAL_PATH"),

		MarketEndpoint:   getEnv("MARKET_ENDPOINT", "https://webservices.amazon.com"),
		MarketRegion:     getEnv("MARKET_REGION", "us-east-1"),
		MarketAccessKey:  os.Getenv("MARKET_ACCESS_KEY"),
		MarketSecretKey:  os.Getenv("MARKET_SECRET_KEY"),
		MarketPartnerTag: os.Getenv("MARKET_PARTNER_TAG"),
		Marketplace:      getEnv("MARKETPLACE", "www.amazon.com"),

		SMTPHost:     getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:     smtpPort,
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		MailFrom:     getEnv("MAIL_FROM", os.Getenv("SMTP_USER")),
		MailTo:       getEnv("MAIL_TO", os.Getenv("SMTP_USER")),
	}
	return cfg, nil
}

// ValidateMarket checks the fields every marketplace lookup needs.
func (c Config) ValidateMarket() error {
	if c.MarketAccessKey == "" || c.MarketSecretKey == "" || c.MarketPartnerTag == "" {
		return fmt.Errorf("MARKET_ACCESS_KEY, MARKET_SECRET_KEY and MARKET_PARTNER_TAG must be set")
	}
	return nil
}

// ValidateMail checks the fields every alert delivery needs.
func (c Config) ValidateMail() error {
	if c.SMTPUser == "" || c.SMTPPassword == "" {
		return fmt.Errorf("SMTP_USER and SMTP_PASSWORD must be set")
	}
	if c.MailFrom == "" || c.MailTo == "" {
		return fmt.Errorf("MAIL_FROM and MAIL_TO must be set")
	}
	return nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
