package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/Skotchmaster/storefront/internal/normalize"
)

type Config struct {
	ServiceName string `validate:"required"`
	ServerPort  int    `validate:"min=1,max=65535"`
	LogLevel    string

	StoreAPIURL  string `validate:"required,http_url"`
	StoreTimeout time.Duration

	CatalogCachePath string
	CatalogLocale    string

	WishlistEnvelopeFields []string
	CartEnvelopeFields     []string

	KafkaBrokers []string `validate:"dive,hostname_port"`
	EventsTopic  string   `validate:"required"`

	// StorefrontToken signs the visitor in at startup when set.
	StorefrontToken string
	JWTSecret       []byte
}

// Load reads .env when present, then the process environment.
func Load() Config {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		log.Printf("Notice: .env not loaded: %v. Using system environment variables", err)
	}

	return Config{
		ServiceName: EnvDefault("SERVICE_NAME", "storefront"),
		ServerPort:  EnvIntDefault("SERVER_PORT", 8080),
		LogLevel:    EnvDefault("LOG_LEVEL", "info"),

		StoreAPIURL:  EnvDefault("STORE_API_URL", "http://localhost:3000"),
		StoreTimeout: EnvDurationDefault("STORE_TIMEOUT", 5*time.Second),

		CatalogCachePath: EnvDefault("CATALOG_CACHE_PATH", "storefront-cache.db"),
		CatalogLocale:    EnvDefault("CATALOG_LOCALE", "en"),

		WishlistEnvelopeFields: CSVDefault(os.Getenv("WISHLIST_ENVELOPE_FIELDS"), normalize.WishlistFields),
		CartEnvelopeFields:     CSVDefault(os.Getenv("CART_ENVELOPE_FIELDS"), normalize.CartFields),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),
		EventsTopic:  EnvDefault("EVENTS_TOPIC", "storefront-activity"),

		StorefrontToken: os.Getenv("STOREFRONT_TOKEN"),
		JWTSecret:       []byte(os.Getenv("JWT_HS256_SECRET")),
	}
}

// Validate rejects values Load cannot repair with a default, such as a
// malformed STORE_API_URL.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func CSVDefault(v string, def []string) []string {
	if out := CSV(v); len(out) > 0 {
		return out
	}
	return append([]string(nil), def...)
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func EnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
