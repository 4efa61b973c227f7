package logger

import (
	"context"
	"fmt"
	"sync"
	"time"

	common_models "go-automation/internal/common/models"

	"go.uber.org/zap/zapcore"
)

// LogEntry holds the data passed from Zap to our worker
type LogEntry struct {
	Level       zapcore.Level
	Message     string
	Caller      string // Function name
	RecipientID string
	CampaignID  string
	Fields      map[string]interface{}
}

// LogInserter persists one log record.
type LogInserter func(ctx context.Context, record common_models.Log) error

// DBLogWriter handles the async writing
type DBLogWriter struct {
	insert  LogInserter
	logChan chan LogEntry
	appId   string
	done    chan struct{}
	once    sync.Once
}

// NewDBLogWriter initializes the worker
func NewDBLogWriter(insert LogInserter, appId string, buffer int) *DBLogWriter {
	writer := &DBLogWriter{
		insert:  insert,
		logChan: make(chan LogEntry, buffer),
		appId:   appId,
		done:    make(chan struct{}),
	}

	// Start the background worker immediately
	go writer.processLogs()

	return writer
}

// AddLog is called by our Zap hook
func (w *DBLogWriter) AddLog(entry LogEntry) {
	select {
	case w.logChan <- entry:
	default:
		// Channel full: drop the log rather than block the engine
		fmt.Println("DB Log Channel Full! Dropping log:", entry.Message)
	}
}

// Close stops accepting logs and waits until the buffered ones are written.
func (w *DBLogWriter) Close() {
	w.once.Do(func() { close(w.logChan) })
	<-w.done
}

func (w *DBLogWriter) processLogs() {
	defer close(w.done)
	for entry := range w.logChan {
		logRecord := common_models.Log{
			Message:       entry.Message,
			Level:         entry.Level.String(),
			LogLevelId:    mapLevelToInt(entry.Level),
			Caller:        entry.Caller,
			RecipientID:   entry.RecipientID,
			CampaignID:    entry.CampaignID,
			ApplicationId: w.appId,
			CreatedOnUtc:  time.Now().UTC(),
		}
		if len(entry.Fields) > 0 {
			logRecord.Fields = entry.Fields
		}

		// Errors are ignored to keep the engine running
		_ = w.insert(context.Background(), logRecord)
	}
}

func mapLevelToInt(l zapcore.Level) int {
	switch l {
	case zapcore.DebugLevel:
		return 10
	case zapcore.InfoLevel:
		return 20
	case zapcore.WarnLevel:
		return 30
	case zapcore.ErrorLevel:
		return 40
	case zapcore.FatalLevel:
		return 50
	default:
		return 20
	}
}
