// Package config loads camcorder settings from the environment and .env
// files and configures logging.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/opd-ai/camcorder"
	"github.com/sirupsen/logrus"
)

// Load reads .env files into the process environment. Variables that are
// already set win. With no paths, ".env" is used. A missing file returns an
// error that callers may ignore to run on the plain environment.
func Load(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	return godotenv.Load(paths...)
}

// GetEnv returns the value of the environment variable named by key, or
// fallback if the variable is unset or empty.
func GetEnv(key, fallback string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return fallback
}

// GetEnvInt returns the integer value of key, or fallback if the variable is
// unset, empty, or not a valid integer.
func GetEnvInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
		warnInvalid(key, s)
	}
	return fallback
}

// GetEnvUint64 is GetEnvInt for unsigned 64-bit values.
func GetEnvUint64(key string, fallback uint64) uint64 {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.ParseUint(s, 10, 64); err == nil {
			return n
		}
		warnInvalid(key, s)
	}
	return fallback
}

// GetEnvDuration parses key with time.ParseDuration.
func GetEnvDuration(key string, fallback time.Duration) time.Duration {
	if s := os.Getenv(key); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			return d
		}
		warnInvalid(key, s)
	}
	return fallback
}

// GetEnvBool parses key with strconv.ParseBool.
func GetEnvBool(key string, fallback bool) bool {
	if s := os.Getenv(key); s != "" {
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
		warnInvalid(key, s)
	}
	return fallback
}

func warnInvalid(key, value string) {
	logrus.WithFields(logrus.Fields{
		"function": "config.GetEnv",
		"key":      key,
		"value":    value,
	}).Warn("Ignoring invalid environment value")
}

// OptionsFromEnv returns camcorder.NewOptions overlaid with CAMCORDER_*
// variables.
func OptionsFromEnv() *camcorder.Options {
	opts := camcorder.NewOptions()

	opts.ElapsedTimeInterval = GetEnvDuration("CAMCORDER_ELAPSED_INTERVAL", opts.ElapsedTimeInterval)
	opts.AutoOffInterval = GetEnvDuration("CAMCORDER_AUTO_OFF_INTERVAL", opts.AutoOffInterval)
	opts.MaxPendingSamples = GetEnvInt("CAMCORDER_MAX_PENDING_SAMPLES", opts.MaxPendingSamples)
	opts.EventBuffer = GetEnvInt("CAMCORDER_EVENT_BUFFER", opts.EventBuffer)
	opts.PreviewMeter = GetEnvBool("CAMCORDER_PREVIEW_METER", opts.PreviewMeter)

	m := &opts.Movie
	m.VideoCodecID = GetEnv("CAMCORDER_VIDEO_CODEC", m.VideoCodecID)
	m.AudioCodecID = GetEnv("CAMCORDER_AUDIO_CODEC", m.AudioCodecID)
	m.AudioSampleRate = uint32(GetEnvInt("CAMCORDER_AUDIO_SAMPLE_RATE", int(m.AudioSampleRate)))
	m.AudioChannels = GetEnvInt("CAMCORDER_AUDIO_CHANNELS", m.AudioChannels)
	m.MinFreeBytes = GetEnvUint64("CAMCORDER_MIN_FREE_BYTES", m.MinFreeBytes)
	m.FilePrefix = GetEnv("CAMCORDER_FILE_PREFIX", m.FilePrefix)
	m.FinalizeTimeout = GetEnvDuration("CAMCORDER_FINALIZE_TIMEOUT", m.FinalizeTimeout)

	return opts
}

// ConfigureLogging sets the logrus level and formatter.
// level: "debug", "info", "warn", "error" (default "info").
// format: "json" or "text" (default "text").
func ConfigureLogging(level, format string) {
	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)

	if strings.ToLower(format) == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})
		return
	}
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}
