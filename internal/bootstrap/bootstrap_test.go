package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/frame-extractor/internal/config"
	"github.com/maauso/frame-extractor/internal/storage"
)

func baseConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		SourceDir:           t.TempDir(),
		OutputDir:           filepath.Join(t.TempDir(), "out"),
		DesiredFrameRate:    "1",
		ImageFormat:         "jpg",
		JPEGQuality:         95,
		FFmpegPath:          "ffmpeg",
		S3UploadConcurrency: 4,
		LogFormat:           "text",
		LogLevel:            "info",
	}
}

func TestNewDependencies(t *testing.T) {
	ctx := context.Background()

	t.Run("local only", func(t *testing.T) {
		deps, err := NewDependencies(ctx, baseConfig(t), nil)
		require.NoError(t, err)
		require.NotNil(t, deps.Driver)
		require.NotNil(t, deps.Repository)
		require.NotNil(t, deps.Registry)
		assert.Nil(t, deps.tracer)

		assert.NoError(t, deps.Shutdown(ctx))
		assert.NoError(t, deps.PushMetrics(ctx, "run-1"))
	})

	t.Run("invalid rate falls back", func(t *testing.T) {
		cfg := baseConfig(t)
		cfg.DesiredFrameRate = "fast"

		_, err := NewDependencies(ctx, cfg, nil)
		assert.NoError(t, err)
	})

	t.Run("unsupported image format", func(t *testing.T) {
		cfg := baseConfig(t)
		cfg.ImageFormat = "gif"

		_, err := NewDependencies(ctx, cfg, nil)
		assert.Error(t, err)
	})

	t.Run("S3 enabled", func(t *testing.T) {
		cfg := baseConfig(t)
		cfg.S3Bucket = "frames"
		cfg.S3Region = "us-east-1"
		cfg.S3Endpoint = "http://localhost:9000"
		cfg.AWSAccessKeyID = "key"
		cfg.AWSSecretAccessKey = "secret"

		deps, err := NewDependencies(ctx, cfg, nil)
		require.NoError(t, err)
		assert.NotNil(t, deps.Driver)
	})
}

func TestInitStorage(t *testing.T) {
	ctx := context.Background()

	deps, err := NewDependencies(ctx, baseConfig(t), nil)
	require.NoError(t, err)

	store, err := initStorage(ctx, baseConfig(t), deps.logger)
	require.NoError(t, err)
	assert.IsType(t, &storage.LocalStorage{}, store)

	cfg := baseConfig(t)
	cfg.S3Bucket = "frames"
	cfg.S3Region = "eu-west-1"

	store, err = initStorage(ctx, cfg, deps.logger)
	require.NoError(t, err)
	assert.IsType(t, &storage.S3Storage{}, store)
}

func TestDependencies_Run(t *testing.T) {
	ctx := context.Background()
	cfg := baseConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.SourceDir, "notes.txt"), []byte("x"), 0600))

	var pushed string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pushed = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()
	cfg.PushgatewayURL = server.URL

	deps, err := NewDependencies(ctx, cfg, nil)
	require.NoError(t, err)

	summary, err := deps.Driver.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.NonVideo)
	assert.DirExists(t, cfg.OutputDir)

	require.NoError(t, deps.PushMetrics(ctx, summary.RunID))
	assert.Equal(t, "/metrics/job/frame_extractor/run_id/"+summary.RunID, pushed)
}
