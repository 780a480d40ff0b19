// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package log

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZap(t *testing.T) {
	t.Run("With unknown level falls back to debug", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := NewZap(42, buffer)
		require.Equal(t, DebugLevel, logger.LogLevel())

		logger.Debug("test debug")
		entry := decodeEntry(t, buffer)
		assert.Equal(t, "test debug", entry["msg"])
		assert.Equal(t, DebugLevel.String(), entry["level"])
	})
	t.Run("With info level drops debug entries", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := NewZap(InfoLevel, buffer)
		logger.Debug("hidden")
		require.Empty(t, buffer.String())

		logger.Infof("map %s ready", "sessions")
		entry := decodeEntry(t, buffer)
		assert.Equal(t, "map sessions ready", entry["msg"])
		assert.Equal(t, InfoLevel.String(), entry["level"])
	})
	t.Run("With warn and error levels", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := NewZap(WarningLevel, buffer)
		require.Equal(t, WarningLevel, logger.LogLevel())
		logger.Info("hidden")
		require.Empty(t, buffer.String())
		logger.Warnf("slow listener %d", 1)
		entry := decodeEntry(t, buffer)
		assert.Equal(t, "slow listener 1", entry["msg"])
		assert.Equal(t, WarningLevel.String(), entry["level"])

		buffer.Reset()
		logger.Errorf("listener %s failed", "audit")
		entry = decodeEntry(t, buffer)
		assert.Equal(t, "listener audit failed", entry["msg"])
		assert.Equal(t, ErrorLevel.String(), entry["level"])
	})
	t.Run("With panic level", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := NewZap(PanicLevel, buffer)
		require.Equal(t, PanicLevel, logger.LogLevel())
		assert.Panics(t, func() { logger.Panic("boom") })
		assert.Panics(t, func() { logger.Panicf("boom %d", 2) })
	})
	t.Run("With adds structured fields", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := NewZap(InfoLevel, buffer)
		logger.With("map", "sessions", "listener", 3, "orphan").Info("delivered")
		entry := decodeEntry(t, buffer)
		assert.Equal(t, "sessions", entry["map"])
		assert.EqualValues(t, 3, entry["listener"])
		assert.Equal(t, "orphan", entry["_"])
	})
	t.Run("With no fields returns the same logger", func(t *testing.T) {
		logger := NewZap(InfoLevel, new(bytes.Buffer))
		assert.Same(t, logger, logger.With())
		assert.Same(t, logger, logger.With(1, "skipped"))
	})
	t.Run("With outputs and std logger", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := NewZap(InfoLevel, buffer)
		require.Len(t, logger.LogOutput(), 1)
		logger.StdLogger().Print("from std")
		entry := decodeEntry(t, buffer)
		assert.Equal(t, "from std", entry["msg"])
	})
	t.Run("With file output flush", func(t *testing.T) {
		file, err := os.CreateTemp(t.TempDir(), "log")
		require.NoError(t, err)
		t.Cleanup(func() { _ = file.Close() })

		logger := NewZap(InfoLevel, file, os.Stdout)
		logger.Info("to file")
		require.NoError(t, logger.Flush())

		content, err := os.ReadFile(file.Name())
		require.NoError(t, err)
		assert.Contains(t, string(content), "to file")
	})
}

func TestDiscardLogger(t *testing.T) {
	logger := DiscardLogger
	logger.Debug("x")
	logger.Infof("x %d", 1)
	logger.Warn("x")
	logger.Errorf("x %d", 1)
	assert.Equal(t, InfoLevel, logger.LogLevel())
	assert.Equal(t, DiscardLogger, logger.With("k", "v"))
	assert.Len(t, logger.LogOutput(), 1)
	assert.NotNil(t, logger.StdLogger())
	assert.Panics(t, func() { logger.Panicf("boom %s", "now") })
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "debug", DebugLevel.String())
	assert.Equal(t, "warn", WarningLevel.String())
	assert.Equal(t, "invalid", InvalidLevel.String())
}

func decodeEntry(t *testing.T, buffer *bytes.Buffer) map[string]any {
	t.Helper()
	entry := make(map[string]any)
	require.NoError(t, json.Unmarshal(buffer.Bytes(), &entry))
	return entry
}
