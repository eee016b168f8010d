package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("CC_TEST_STR", "hello")
	t.Setenv("CC_TEST_INT", "42")
	t.Setenv("CC_TEST_BAD_INT", "forty")
	t.Setenv("CC_TEST_DUR", "1500ms")
	t.Setenv("CC_TEST_BOOL", "false")
	t.Setenv("CC_TEST_U64", "18446744073709551615")

	assert.Equal(t, "hello", GetEnv("CC_TEST_STR", "x"))
	assert.Equal(t, "x", GetEnv("CC_TEST_UNSET", "x"))
	assert.Equal(t, 42, GetEnvInt("CC_TEST_INT", 1))
	assert.Equal(t, 1, GetEnvInt("CC_TEST_BAD_INT", 1))
	assert.Equal(t, 1500*time.Millisecond, GetEnvDuration("CC_TEST_DUR", time.Second))
	assert.Equal(t, time.Second, GetEnvDuration("CC_TEST_STR", time.Second))
	assert.False(t, GetEnvBool("CC_TEST_BOOL", true))
	assert.Equal(t, uint64(18446744073709551615), GetEnvUint64("CC_TEST_U64", 0))
}

func TestOptionsFromEnv(t *testing.T) {
	t.Setenv("CAMCORDER_ELAPSED_INTERVAL", "1s")
	t.Setenv("CAMCORDER_AUTO_OFF_INTERVAL", "2m")
	t.Setenv("CAMCORDER_MAX_PENDING_SAMPLES", "64")
	t.Setenv("CAMCORDER_AUDIO_SAMPLE_RATE", "16000")
	t.Setenv("CAMCORDER_AUDIO_CHANNELS", "2")
	t.Setenv("CAMCORDER_MIN_FREE_BYTES", "0")
	t.Setenv("CAMCORDER_FILE_PREFIX", "clip")
	t.Setenv("CAMCORDER_PREVIEW_METER", "false")

	opts := OptionsFromEnv()
	assert.Equal(t, time.Second, opts.ElapsedTimeInterval)
	assert.Equal(t, 2*time.Minute, opts.AutoOffInterval)
	assert.Equal(t, 64, opts.MaxPendingSamples)
	assert.EqualValues(t, 16000, opts.Movie.AudioSampleRate)
	assert.Equal(t, 2, opts.Movie.AudioChannels)
	assert.Zero(t, opts.Movie.MinFreeBytes)
	assert.Equal(t, "clip", opts.Movie.FilePrefix)
	assert.Equal(t, "V_VP8", opts.Movie.VideoCodecID)
	assert.False(t, opts.PreviewMeter)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("CAMCORDER_FILE_PREFIX=fromfile\nCC_TEST_PRESET=fromfile\n"), 0o644))

	t.Setenv("CC_TEST_PRESET", "fromenv")
	// Registers cleanup so the value loaded from the file does not leak.
	t.Setenv("CAMCORDER_FILE_PREFIX", "")
	require.NoError(t, os.Unsetenv("CAMCORDER_FILE_PREFIX"))

	require.NoError(t, Load(path))
	assert.Equal(t, "fromfile", os.Getenv("CAMCORDER_FILE_PREFIX"))
	assert.Equal(t, "fromenv", os.Getenv("CC_TEST_PRESET"), "existing variables win")

	assert.Error(t, Load(filepath.Join(t.TempDir(), "missing.env")))
}

func TestConfigureLogging(t *testing.T) {
	prevLevel, prevFormatter := logrus.GetLevel(), logrus.StandardLogger().Formatter
	t.Cleanup(func() {
		logrus.SetLevel(prevLevel)
		logrus.SetFormatter(prevFormatter)
	})

	ConfigureLogging("debug", "json")
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logrus.StandardLogger().Formatter)

	ConfigureLogging("nonsense", "text")
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logrus.StandardLogger().Formatter)
}
