// Package config loads runtime settings from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ironsheep/image-editor-mcp/internal/editor"
	"github.com/ironsheep/image-editor-mcp/internal/geometry"
	"github.com/ironsheep/image-editor-mcp/internal/imaging"
)

const (
	defaultMaxDisplayWidth  = 500
	defaultMaxDisplayHeight = 400
	defaultMaxPixels        = 50_000_000
	defaultThumbnailSize    = 96
	defaultHTTPAddr         = "127.0.0.1:8085"
	defaultCORSOrigins      = "*"
	defaultMaxSessions      = 32
	defaultIdleTimeout      = 30 * time.Minute
)

type Config struct {
	// logging
	LogLevel zerolog.Level

	// editor limits
	MaxDisplay    geometry.Size
	MaxPixels     int
	JPEGQuality   int
	ThumbnailSize int

	// session lifetime
	MaxSessions        int
	SessionIdleTimeout time.Duration

	// web transport
	HTTPAddr    string
	CORSOrigins []string
}

// EditorOptions converts the configuration into session options.
func (c Config) EditorOptions() editor.Options {
	opts := editor.DefaultOptions()
	opts.MaxDisplay = c.MaxDisplay
	opts.MaxPixels = c.MaxPixels
	opts.JPEGQuality = c.JPEGQuality
	opts.ThumbnailSize = c.ThumbnailSize
	return opts
}

// StoreOptions converts the configuration into session store limits.
func (c Config) StoreOptions() []editor.StoreOption {
	return []editor.StoreOption{
		editor.WithMaxSessions(c.MaxSessions),
		editor.WithIdleTimeout(c.SessionIdleTimeout),
	}
}

// LoadDotEnv reads .env files into the environment when present. Variables
// already set are left alone.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			log.Warn().Err(err).Str("file", f).Msg("Failed to load env file")
		}
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := strings.TrimSpace(os.Getenv(envVar))
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		log.Warn().Err(err).Str("var", envVar).Str("value", valStr).Int("default", defaultVal).
			Msg("Invalid setting, using default")
		return defaultVal
	}
	return val
}

func getEnvLevelOrDefault(envVar string, defaultVal zerolog.Level) zerolog.Level {
	valStr := strings.TrimSpace(os.Getenv(envVar))
	if valStr == "" {
		return defaultVal
	}
	level, err := zerolog.ParseLevel(strings.ToLower(valStr))
	if err != nil || level == zerolog.NoLevel {
		log.Warn().Err(err).Str("var", envVar).Str("value", valStr).Stringer("default", defaultVal).
			Msg("Invalid log level, using default")
		return defaultVal
	}
	return level
}

// getEnvDurationOrDefault accepts Go durations ("45m", "2h"). Zero is allowed
// and disables the setting.
func getEnvDurationOrDefault(envVar string, defaultVal time.Duration) time.Duration {
	valStr := strings.TrimSpace(os.Getenv(envVar))
	if valStr == "" {
		return defaultVal
	}
	val, err := time.ParseDuration(valStr)
	if err != nil || val < 0 {
		log.Warn().Err(err).Str("var", envVar).Str("value", valStr).Dur("default", defaultVal).
			Msg("Invalid duration, using default")
		return defaultVal
	}
	return val
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

// LoadConfig reads IMAGE_EDITOR_* variables, falling back to the defaults for
// anything unset or invalid.
func LoadConfig() Config {
	quality := getEnvIntOrDefault("IMAGE_EDITOR_JPEG_QUALITY", imaging.DefaultJPEGQuality)
	if quality > 100 {
		log.Warn().Int("value", quality).Int("default", imaging.DefaultJPEGQuality).
			Msg("IMAGE_EDITOR_JPEG_QUALITY out of range, using default")
		quality = imaging.DefaultJPEGQuality
	}

	origins := splitList(getEnvOrDefault("IMAGE_EDITOR_CORS_ORIGINS", defaultCORSOrigins))
	if len(origins) == 0 {
		origins = []string{defaultCORSOrigins}
	}

	return Config{
		LogLevel: getEnvLevelOrDefault("IMAGE_EDITOR_LOG_LEVEL", zerolog.InfoLevel),
		MaxDisplay: geometry.Size{
			W: getEnvIntOrDefault("IMAGE_EDITOR_MAX_DISPLAY_WIDTH", defaultMaxDisplayWidth),
			H: getEnvIntOrDefault("IMAGE_EDITOR_MAX_DISPLAY_HEIGHT", defaultMaxDisplayHeight),
		},
		MaxPixels:     getEnvIntOrDefault("IMAGE_EDITOR_MAX_PIXELS", defaultMaxPixels),
		JPEGQuality:   quality,
		ThumbnailSize: getEnvIntOrDefault("IMAGE_EDITOR_THUMBNAIL_SIZE", defaultThumbnailSize),

		MaxSessions:        getEnvIntOrDefault("IMAGE_EDITOR_MAX_SESSIONS", defaultMaxSessions),
		SessionIdleTimeout: getEnvDurationOrDefault("IMAGE_EDITOR_SESSION_IDLE_TIMEOUT", defaultIdleTimeout),

		HTTPAddr:    getEnvOrDefault("IMAGE_EDITOR_HTTP_ADDR", defaultHTTPAddr),
		CORSOrigins: origins,
	}
}
