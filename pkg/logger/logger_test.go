package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	l, err := New(Config{Level: "debug", Format: "json", OutputPath: path})
	require.NoError(t, err)

	l.Info("hello", zap.String("k", "v"))
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Contains(t, string(data), `"k":"v"`)
}

func TestMultiLogger_CategoriesWriteSeparateFiles(t *testing.T) {
	dir := t.TempDir()
	ml, err := NewMultiLogger(MultiLoggerConfig{Level: "info", LogsDir: dir}, nil)
	require.NoError(t, err)

	ml.LogDownloadEvent("download_completed", zap.String("id", "abc"))
	ml.LogAppError("strategy failed", zap.String("id", "abc"))
	ml.Error().Info("below error level")
	require.NoError(t, ml.Close())

	downloads, err := os.ReadFile(ml.LogPath(CategoryDownload))
	require.NoError(t, err)
	assert.Contains(t, string(downloads), "download_completed")
	assert.Contains(t, string(downloads), `"category":"download"`)

	errs, err := os.ReadFile(ml.LogPath(CategoryError))
	require.NoError(t, err)
	assert.Contains(t, string(errs), "strategy failed")
	assert.NotContains(t, string(errs), "below error level")
}

func TestNewMultiLogger_RequiresDir(t *testing.T) {
	_, err := NewMultiLogger(MultiLoggerConfig{}, nil)
	assert.Error(t, err)
}

func TestLoggerAdapter_SingleMode(t *testing.T) {
	l := zap.NewNop()
	la := NewSingleLoggerAdapter(l)

	assert.Same(t, l, la.Download())
	assert.Same(t, l, la.Error())
	assert.Same(t, l, la.General())
	assert.Nil(t, la.GetMultiLogger())
}

func TestLoggerAdapter_MultiMode(t *testing.T) {
	general := zap.NewNop()
	ml, err := NewMultiLogger(MultiLoggerConfig{LogsDir: t.TempDir()}, general)
	require.NoError(t, err)
	defer ml.Close()

	la := NewLoggerAdapter(ml)
	assert.Same(t, general, la.General())
	assert.Same(t, ml.Download(), la.Download())
	assert.Same(t, ml, la.GetMultiLogger())
}
