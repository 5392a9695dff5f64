package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/nbyapp/nbyapp/internal/app"
	"github.com/nbyapp/nbyapp/internal/status"
)

func TestNew(t *testing.T) {
	logger, err := New(Config{Level: "debug", Development: true})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger, err = New(Config{Level: "warn"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))

	_, err = New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestStatusObserverLogsEachStepOnce(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	b := status.NewBroadcaster()
	b.Subscribe(StatusObserver(zap.New(core)))

	b.StartGeneration("OpenAI", "GPT-4o", "a todo list")
	b.AddStep("Prepared prompt", status.KindInfo)
	b.UpdateProgress(40)
	b.AddFile(app.File{Name: "index.html", Content: "<p></p>", Type: app.FileTypeHTML})
	b.AddStep("Falling back to mock generator", status.KindWarning)
	b.CompleteGeneration()

	entries := logs.AllUntimed()
	require.Len(t, entries, 5)
	assert.Equal(t, "Starting app generation with OpenAI (GPT-4o)", entries[0].Message)
	assert.Equal(t, zapcore.DebugLevel, entries[2].Level)
	assert.Equal(t, "Created file: index.html", entries[2].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[3].Level)
	assert.Equal(t, "Generation completed successfully", entries[4].Message)
	assert.Equal(t, int64(100), entries[4].ContextMap()["progress"])

	// A new job starts counting steps again
	b.StartGeneration("OpenAI", "GPT-4o", "a timer")
	assert.Equal(t, 6, logs.Len())
}
