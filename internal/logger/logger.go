package logger

import (
	"context"

	common_models "go-automation/internal/common/models"
	"go-automation/internal/config"
	"go-automation/internal/database"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewLogger builds the console logger and tees every entry to engine_logs.
func NewLogger(lc fx.Lifecycle, cfg *config.Config, mongodb *database.MongodbDB) (*zap.Logger, error) {
	collection := mongodb.DB.Collection(database.LogsCollection)
	dbWriter := NewDBLogWriter(func(ctx context.Context, record common_models.Log) error {
		_, err := collection.InsertOne(ctx, record)
		return err
	}, cfg.AppId, 1000)

	logger, err := New(cfg, dbWriter)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			_ = logger.Sync()
			dbWriter.Close()
			return nil
		},
	})
	return logger, nil
}

// New builds a logger for cfg.Environment. A nil writer gives a console-only logger.
func New(cfg *config.Config, dbWriter *DBLogWriter) (*zap.Logger, error) {
	var zapConfig zap.Config
	if cfg.IsProduction() {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	// Enable Caller to get Function Name
	zapConfig.EncoderConfig.FunctionKey = "func"

	baseLogger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}
	if dbWriter == nil {
		return baseLogger, nil
	}

	// Replace the logger's core with the tee core (console and DB)
	finalCore := NewDBCore(baseLogger.Core(), dbWriter)
	return zap.New(finalCore, zap.AddCaller()), nil
}
