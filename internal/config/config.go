package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress  string
	DatabaseURI string
	// PublicBaseURL is the externally visible base of this service. It is a
	// required explicit value: provider callback URLs and emailed links are
	// built from it, and inferring it from inbound requests silently breaks
	// fulfillment behind proxies.
	PublicBaseURL string

	PaymentAPIAddress  string
	PaymentAccessToken string

	StorageEndpoint  string
	StorageRegion    string
	StorageAccessKey string
	StorageSecretKey string
	StorageBucket    string
	StorageUseSSL    bool

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string

	OrderTokenTTL    time.Duration
	DownloadTokenTTL time.Duration
	DownloadUseLimit int
	SignedURLTTL     time.Duration
	ShutdownTimeout  time.Duration
}

const (
	defaultRunAddress        = ":8080"
	defaultPaymentAPIAddress = "https://api.mercadopago.com"
	defaultSMTPPort          = 587
	defaultStorageRegion     = "us-east-1"
	defaultOrderTokenTTL     = 90 * 24 * time.Hour
	defaultDownloadTokenTTL  = 30 * 24 * time.Hour
	defaultDownloadUseLimit  = 5
	defaultSignedURLTTL      = 10 * time.Minute
	defaultShutdownTimeout   = 10 * time.Second
)

// Load parses configuration from flags and environment variables.
func Load() (*Config, error) {
	return load(os.Args[1:], os.LookupEnv)
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		RunAddress:         getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		DatabaseURI:        getString(lookup, "DATABASE_URI", ""),
		PublicBaseURL:      getString(lookup, "PUBLIC_BASE_URL", ""),
		PaymentAPIAddress:  getString(lookup, "PAYMENT_API_ADDRESS", defaultPaymentAPIAddress),
		PaymentAccessToken: getString(lookup, "PAYMENT_ACCESS_TOKEN", ""),
		StorageEndpoint:    getString(lookup, "STORAGE_ENDPOINT", ""),
		StorageRegion:      getString(lookup, "STORAGE_REGION", defaultStorageRegion),
		StorageAccessKey:   getString(lookup, "STORAGE_ACCESS_KEY", ""),
		StorageSecretKey:   getString(lookup, "STORAGE_SECRET_KEY", ""),
		StorageBucket:      getString(lookup, "STORAGE_BUCKET", ""),
		StorageUseSSL:      getBool(lookup, "STORAGE_USE_SSL", true),
		SMTPHost:           getString(lookup, "SMTP_HOST", ""),
		SMTPPort:           getInt(lookup, "SMTP_PORT", defaultSMTPPort),
		SMTPUsername:       getString(lookup, "SMTP_USERNAME", ""),
		SMTPPassword:       getString(lookup, "SMTP_PASSWORD", ""),
		MailFrom:           getString(lookup, "MAIL_FROM", ""),
		OrderTokenTTL:      getDuration(lookup, "ORDER_TOKEN_TTL", defaultOrderTokenTTL),
		DownloadTokenTTL:   getDuration(lookup, "DOWNLOAD_TOKEN_TTL", defaultDownloadTokenTTL),
		DownloadUseLimit:   getInt(lookup, "DOWNLOAD_USE_LIMIT", defaultDownloadUseLimit),
		SignedURLTTL:       getDuration(lookup, "SIGNED_URL_TTL", defaultSignedURLTTL),
		ShutdownTimeout:    getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
	}

	fs := flag.NewFlagSet("fichas", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		orderTTLStr        = cfg.OrderTokenTTL.String()
		downloadTTLStr     = cfg.DownloadTokenTTL.String()
		signedURLTTLStr    = cfg.SignedURLTTL.String()
		shutdownTimeoutStr = cfg.ShutdownTimeout.String()
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN")
	fs.StringVar(&cfg.PublicBaseURL, "base-url", cfg.PublicBaseURL, "Externally visible base URL of this service")
	fs.StringVar(&cfg.PaymentAPIAddress, "payment-api", cfg.PaymentAPIAddress, "Payment provider API base URL")
	fs.StringVar(&cfg.PaymentAccessToken, "payment-token", cfg.PaymentAccessToken, "Payment provider access token")
	fs.StringVar(&cfg.StorageBucket, "bucket", cfg.StorageBucket, "Object storage bucket with sheet files")
	fs.IntVar(&cfg.DownloadUseLimit, "download-limit", cfg.DownloadUseLimit, "Redemptions allowed per download token")
	fs.StringVar(&orderTTLStr, "order-token-ttl", orderTTLStr, "Lifetime of order access tokens")
	fs.StringVar(&downloadTTLStr, "download-token-ttl", downloadTTLStr, "Lifetime of download tokens")
	fs.StringVar(&signedURLTTLStr, "signed-url-ttl", signedURLTTLStr, "Lifetime of presigned file URLs")
	fs.StringVar(&shutdownTimeoutStr, "shutdown-timeout", shutdownTimeoutStr, "Graceful shutdown timeout")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.OrderTokenTTL, err = time.ParseDuration(orderTTLStr); err != nil {
		return nil, fmt.Errorf("invalid order token ttl: %w", err)
	}

	if cfg.DownloadTokenTTL, err = time.ParseDuration(downloadTTLStr); err != nil {
		return nil, fmt.Errorf("invalid download token ttl: %w", err)
	}

	if cfg.SignedURLTTL, err = time.ParseDuration(signedURLTTLStr); err != nil {
		return nil, fmt.Errorf("invalid signed url ttl: %w", err)
	}

	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	if tokenFile, ok := lookup("PAYMENT_ACCESS_TOKEN_FILE"); ok && tokenFile != "" {
		content, err := os.ReadFile(tokenFile)
		if err != nil {
			return nil, fmt.Errorf("read payment token file: %w", err)
		}
		cfg.PaymentAccessToken = strings.TrimSpace(string(content))
	}

	if cfg.DownloadUseLimit <= 0 {
		cfg.DownloadUseLimit = defaultDownloadUseLimit
	}

	if cfg.OrderTokenTTL <= 0 {
		cfg.OrderTokenTTL = defaultOrderTokenTTL
	}

	if cfg.DownloadTokenTTL <= 0 {
		cfg.DownloadTokenTTL = defaultDownloadTokenTTL
	}

	if cfg.SignedURLTTL <= 0 {
		cfg.SignedURLTTL = defaultSignedURLTTL
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	if cfg.DatabaseURI == "" {
		return nil, fmt.Errorf("database URI must be provided")
	}

	if cfg.PublicBaseURL == "" {
		return nil, fmt.Errorf("public base URL must be provided")
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")

	if cfg.PaymentAccessToken == "" {
		return nil, fmt.Errorf("payment access token must be provided")
	}

	return cfg, nil
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(lookup envLookup, key string, def int) int {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getBool(lookup envLookup, key string, def bool) bool {
	if v, ok := lookup(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDuration(lookup envLookup, key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
