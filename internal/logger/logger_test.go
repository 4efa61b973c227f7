package logger

import (
	"context"
	"sync"
	"testing"

	common_models "go-automation/internal/common/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recorder struct {
	mu      sync.Mutex
	records []common_models.Log
}

func (r *recorder) insert(_ context.Context, record common_models.Log) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
	return nil
}

func TestDBCoreShipsEntries(t *testing.T) {
	rec := &recorder{}
	writer := NewDBLogWriter(rec.insert, "test-app", 10)

	base, observed := observer.New(zapcore.InfoLevel)
	log := zap.New(NewDBCore(base, writer)).With(zap.String("campaign_id", "welcome"))

	log.Info("step processed", zap.String("recipient_id", "r1"), zap.Int("steps", 3))
	log.Debug("filtered out")
	writer.Close()

	assert.Equal(t, 1, observed.Len())
	require.Len(t, rec.records, 1)
	got := rec.records[0]
	assert.Equal(t, "step processed", got.Message)
	assert.Equal(t, "r1", got.RecipientID)
	assert.Equal(t, "welcome", got.CampaignID)
	assert.Equal(t, 20, got.LogLevelId)
	assert.Equal(t, "test-app", got.ApplicationId)
	assert.EqualValues(t, 3, got.Fields["steps"])
}

func TestAddLogDropsWhenFull(t *testing.T) {
	block := make(chan struct{})
	writer := NewDBLogWriter(func(context.Context, common_models.Log) error {
		<-block
		return nil
	}, "app", 1)

	for i := 0; i < 5; i++ {
		writer.AddLog(LogEntry{Level: zapcore.InfoLevel, Message: "x"})
	}
	close(block)
	writer.Close()
}

func TestMapLevelToInt(t *testing.T) {
	assert.Equal(t, 10, mapLevelToInt(zapcore.DebugLevel))
	assert.Equal(t, 40, mapLevelToInt(zapcore.ErrorLevel))
	assert.Equal(t, 20, mapLevelToInt(zapcore.DPanicLevel))
}
