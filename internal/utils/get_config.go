package utils

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix is prepended to every key when reading environment overrides,
// e.g. GREENBITE_DB_HOST.
const EnvPrefix = "GREENBITE"

type Config struct {
	// Database configuration
	DBUser     string `yaml:"DB_USER" envconfig:"DB_USER"`
	DBName     string `yaml:"DB_NAME" envconfig:"DB_NAME"`
	DBPassword string `yaml:"DB_PASSWORD" envconfig:"DB_PASSWORD"`
	DBPort     string `yaml:"DB_PORT" envconfig:"DB_PORT"`
	DBHost     string `yaml:"DB_HOST" envconfig:"DB_HOST"`
	DBTimeZone string `yaml:"DB_TIMEZONE" envconfig:"DB_TIMEZONE"`

	// Identity tokens
	JWTSecret string `yaml:"JWT_SECRET" envconfig:"JWT_SECRET"`

	// Mailing configuration
	AppURL           string `yaml:"APP_URL" envconfig:"APP_URL"`
	SMTPHost         string `yaml:"SMTP_HOST" envconfig:"SMTP_HOST"`
	SMTPPort         string `yaml:"SMTP_PORT" envconfig:"SMTP_PORT"`
	SMTPSenderName   string `yaml:"SMTP_SENDER_NAME" envconfig:"SMTP_SENDER_NAME"`
	SMTPAuthEmail    string `yaml:"SMTP_AUTH_EMAIL" envconfig:"SMTP_AUTH_EMAIL"`
	SMTPAuthPassword string `yaml:"SMTP_AUTH_PASSWORD" envconfig:"SMTP_AUTH_PASSWORD"`

	// AWS S3 configuration
	AWSS3Bucket  string `yaml:"AWS_S3_BUCKET" envconfig:"AWS_S3_BUCKET"`
	AWSS3Region  string `yaml:"AWS_S3_REGION" envconfig:"AWS_S3_REGION"`
	AWSAccessKey string `yaml:"AWS_ACCESS_KEY" envconfig:"AWS_ACCESS_KEY"`
	AWSSecretKey string `yaml:"AWS_SECRET_KEY" envconfig:"AWS_SECRET_KEY"`

	// Gemini API configuration
	GeminiAPIKey string `yaml:"GEMINI_API_KEY" envconfig:"GEMINI_API_KEY"`
	GeminiModel  string `yaml:"GEMINI_MODEL" envconfig:"GEMINI_MODEL"`

	// Recognition services
	DetectionURL     string `yaml:"DETECTION_URL" envconfig:"DETECTION_URL"`
	DetectionBackend string `yaml:"DETECTION_BACKEND" envconfig:"DETECTION_BACKEND"`
	ExtractionURL    string `yaml:"EXTRACTION_URL" envconfig:"EXTRACTION_URL"`

	// Camera
	CameraDevice       string `yaml:"CAMERA_DEVICE" envconfig:"CAMERA_DEVICE"`
	CameraSnapshotPath string `yaml:"CAMERA_SNAPSHOT_PATH" envconfig:"CAMERA_SNAPSHOT_PATH"`

	// Runtime
	AlertInterval string `yaml:"ALERT_INTERVAL" envconfig:"ALERT_INTERVAL"`
	AppPort       string `yaml:"APP_PORT" envconfig:"APP_PORT"`
	PGNotify      string `yaml:"PG_NOTIFY" envconfig:"PG_NOTIFY"`
}

var config Config

var defaults = map[string]string{
	"DB_PORT":           "5432",
	"DB_TIMEZONE":       "UTC",
	"GEMINI_MODEL":      "gemini-1.5-flash",
	"DETECTION_URL":     "http://localhost:5000",
	"DETECTION_BACKEND": "http",
	"EXTRACTION_URL":    "http://localhost:5001",
	"CAMERA_DEVICE":     "synthetic",
	"ALERT_INTERVAL":    "1h",
	"APP_PORT":          "3000",
	"PG_NOTIFY":         "false",
}

func LoadConfig() {
	if err := LoadConfigFrom("config.yaml"); err != nil {
		log.Warnf("config: %v", err)
	}
}

// LoadConfigFrom reads the YAML file at path and then applies GREENBITE_
// environment overrides. A missing file is not fatal: the environment alone
// can configure the service.
func LoadConfigFrom(path string) error {
	var loaded Config

	file, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(file, &loaded); err != nil {
			return fmt.Errorf("error parsing YAML file %s: %w", path, err)
		}
	case os.IsNotExist(err):
		log.Infof("config: %s not found, using environment only", path)
	default:
		return fmt.Errorf("error reading YAML file %s: %w", path, err)
	}

	if err := envconfig.Process(EnvPrefix, &loaded); err != nil {
		return fmt.Errorf("error processing environment: %w", err)
	}

	config = loaded
	return nil
}

func GetConfig(key string) string {
	value := lookup(key)
	if value == "" {
		return defaults[key]
	}
	return value
}

func lookup(key string) string {
	switch key {
	case "DB_USER":
		return config.DBUser
	case "DB_NAME":
		return config.DBName
	case "DB_PASSWORD":
		return config.DBPassword
	case "DB_PORT":
		return config.DBPort
	case "DB_HOST":
		return config.DBHost
	case "DB_TIMEZONE":
		return config.DBTimeZone
	case "JWT_SECRET":
		return config.JWTSecret
	case "APP_URL":
		return config.AppURL
	case "SMTP_HOST":
		return config.SMTPHost
	case "SMTP_PORT":
		return config.SMTPPort
	case "SMTP_SENDER_NAME":
		return config.SMTPSenderName
	case "SMTP_AUTH_EMAIL":
		return config.SMTPAuthEmail
	case "SMTP_AUTH_PASSWORD":
		return config.SMTPAuthPassword
	case "AWS_S3_BUCKET":
		return config.AWSS3Bucket
	case "AWS_S3_REGION":
		return config.AWSS3Region
	case "AWS_ACCESS_KEY":
		return config.AWSAccessKey
	case "AWS_SECRET_KEY":
		return config.AWSSecretKey
	case "GEMINI_API_KEY":
		return config.GeminiAPIKey
	case "GEMINI_MODEL":
		return config.GeminiModel
	case "DETECTION_URL":
		return config.DetectionURL
	case "DETECTION_BACKEND":
		return config.DetectionBackend
	case "EXTRACTION_URL":
		return config.ExtractionURL
	case "CAMERA_DEVICE":
		return config.CameraDevice
	case "CAMERA_SNAPSHOT_PATH":
		return config.CameraSnapshotPath
	case "ALERT_INTERVAL":
		return config.AlertInterval
	case "APP_PORT":
		return config.AppPort
	case "PG_NOTIFY":
		return config.PGNotify
	default:
		return ""
	}
}

// GetDurationConfig parses key as a Go duration, falling back to fallback
// when the value is missing or malformed.
func GetDurationConfig(key string, fallback time.Duration) time.Duration {
	value := GetConfig(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		log.Warnf("config: invalid duration %s=%q, using %s", key, value, fallback)
		return fallback
	}
	return d
}

func GetBoolConfig(key string) bool {
	b, err := strconv.ParseBool(GetConfig(key))
	return err == nil && b
}

// DatabaseDSN builds the postgres connection string shared by gorm and the
// pgx change listener.
func DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=%s",
		GetConfig("DB_HOST"),
		GetConfig("DB_USER"),
		GetConfig("DB_PASSWORD"),
		GetConfig("DB_NAME"),
		GetConfig("DB_PORT"),
		GetConfig("DB_TIMEZONE"),
	)
}
