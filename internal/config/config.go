package config

import (
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	JWT       JWTConfig
	Orders    OrdersConfig
	Kafka     KafkaConfig
	CutPlan   CutPlanConfig
}

type ServerConfig struct {
	Port        string
	Env         string
	CORSOrigins []string
}

type StoreConfig struct {
	Driver   string // memory or postgres
	SeedData bool
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
}

type RedisConfig struct {
	Host     string // empty disables rate limiting
	Port     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	Requests      int
	WindowSeconds int
}

type JWTConfig struct {
	Secret string
}

type OrdersConfig struct {
	NumberPrefix          string
	TaxRate               string
	ShippingFlat          string
	FreeShippingThreshold string
	StockPolicy           string // backorder or strict
	StatusPolicy          string // free or forward
}

type KafkaConfig struct {
	Brokers []string // empty disables publishing
}

type CutPlanConfig struct {
	SheetWidth  float64
	SheetLength float64
	Kerf        float64
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

func Load() *Config {
	// values already in the environment win over .env
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	SetDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	return FromViper(viper.GetViper())
}

// SetDefaults registers the default of every key
func SetDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_ENV", "development")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	v.SetDefault("STORE_DRIVER", "memory")
	v.SetDefault("SEED_DATA", true)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SCHEMA", "public")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("RATE_LIMIT_REQUESTS", 60)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	v.SetDefault("ORDER_NUMBER_PREFIX", "MP")
	v.SetDefault("TAX_RATE", "0.16")
	v.SetDefault("SHIPPING_FLAT", "500.00")
	v.SetDefault("FREE_SHIPPING_THRESHOLD", "5000.00")
	v.SetDefault("STOCK_POLICY", "backorder")
	v.SetDefault("ORDER_STATUS_POLICY", "free")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("CUTPLAN_SHEET_WIDTH", 1210.0)
	v.SetDefault("CUTPLAN_SHEET_LENGTH", 2430.0)
	v.SetDefault("CUTPLAN_KERF", 12.7)
}

// FromViper builds a Config from an already populated viper instance
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port:        v.GetString("SERVER_PORT"),
			Env:         v.GetString("SERVER_ENV"),
			CORSOrigins: splitList(v.GetString("CORS_ORIGINS")),
		},
		Store: StoreConfig{
			Driver:   strings.ToLower(v.GetString("STORE_DRIVER")),
			SeedData: v.GetBool("SEED_DATA"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Database: v.GetString("DB_DATABASE"),
			Schema:   v.GetString("DB_SCHEMA"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		RateLimit: RateLimitConfig{
			Requests:      v.GetInt("RATE_LIMIT_REQUESTS"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("JWT_SECRET"),
		},
		Orders: OrdersConfig{
			NumberPrefix:          v.GetString("ORDER_NUMBER_PREFIX"),
			TaxRate:               v.GetString("TAX_RATE"),
			ShippingFlat:          v.GetString("SHIPPING_FLAT"),
			FreeShippingThreshold: v.GetString("FREE_SHIPPING_THRESHOLD"),
			StockPolicy:           strings.ToLower(v.GetString("STOCK_POLICY")),
			StatusPolicy:          strings.ToLower(v.GetString("ORDER_STATUS_POLICY")),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(v.GetString("KAFKA_BROKERS")),
		},
		CutPlan: CutPlanConfig{
			SheetWidth:  v.GetFloat64("CUTPLAN_SHEET_WIDTH"),
			SheetLength: v.GetFloat64("CUTPLAN_SHEET_LENGTH"),
			Kerf:        v.GetFloat64("CUTPLAN_KERF"),
		},
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
