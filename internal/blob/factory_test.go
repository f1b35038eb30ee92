package blob

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	appcfg "github.com/fdg312/sourdough-hub/internal/config"
)

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core), logs
}

func TestNewBlobStoreLocalForced(t *testing.T) {
	logger, logs := observedLogger()

	store, mode, err := NewBlobStore(context.Background(), appcfg.BlobConfig{
		Mode:     appcfg.BlobModeLocal,
		LocalDir: t.TempDir(),
	}, logger)
	require.NoError(t, err)
	assert.Equal(t, appcfg.BlobModeLocal, mode)
	assert.IsType(t, &FSStore{}, store)
	assert.Equal(t, 1, logs.FilterMessage("mode=local (forced)").Len())
}

func TestNewBlobStoreMemory(t *testing.T) {
	store, mode, err := NewBlobStore(context.Background(), appcfg.BlobConfig{Mode: appcfg.BlobModeMemory}, nil)
	require.NoError(t, err)
	assert.Equal(t, appcfg.BlobModeMemory, mode)
	assert.IsType(t, &MemoryStore{}, store)
}

func TestNewBlobStoreAutoEmptyS3FallsBackToLocal(t *testing.T) {
	logger, logs := observedLogger()

	store, mode, err := NewBlobStore(context.Background(), appcfg.BlobConfig{
		Mode:     appcfg.BlobModeAuto,
		LocalDir: t.TempDir(),
	}, logger)
	require.NoError(t, err)
	assert.Equal(t, appcfg.BlobModeLocal, mode)
	assert.IsType(t, &FSStore{}, store)

	notConfigured := logs.FilterField(zap.String("code", "s3_not_configured"))
	assert.Equal(t, 1, notConfigured.Len())
	assert.Equal(t, 1, logs.FilterMessage("mode=local (auto, S3 not configured)").Len())
}

func TestNewBlobStoreS3MissingRequiredReturnsError(t *testing.T) {
	store, mode, err := NewBlobStore(context.Background(), appcfg.BlobConfig{
		Mode: appcfg.BlobModeS3,
		S3:   appcfg.S3Config{Endpoint: "https://s3.example"},
	}, zap.NewNop())
	require.Error(t, err)
	assert.Nil(t, store)
	assert.Empty(t, mode)
	assert.Contains(t, err.Error(), "missing required config")
}

func TestNewBlobStoreUnknownMode(t *testing.T) {
	_, _, err := NewBlobStore(context.Background(), appcfg.BlobConfig{Mode: "ftp"}, nil)
	assert.Error(t, err)
}
