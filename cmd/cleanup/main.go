package main

import (
	"context"
	"flag"

	"go-automation/internal/config"
	"go-automation/internal/database"
	"go-automation/internal/features/execution"
	"go-automation/internal/logger"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

var limit = flag.Int64("limit", 1000, "maximum terminal executions handled per batch")

// Sweep applies the retention policy to terminal executions until none are
// left, then exits. Under the keep policy nothing is touched.
func Sweep(lc fx.Lifecycle, cfg *config.Config, executions execution.ExecutionService, logger *zap.Logger, shutdowner fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				exitCode := 0
				defer func() {
					if err := shutdowner.Shutdown(fx.ExitCode(exitCode)); err != nil {
						logger.Error("Failed to shutdown", zap.Error(err))
					}
				}()

				total := 0
				for {
					n, err := executions.Sweep(context.Background(), *limit)
					if err != nil {
						logger.Error("Sweep failed", zap.Error(err), zap.Int("swept", total))
						exitCode = 1
						return
					}
					total += n
					if int64(n) < *limit {
						break
					}
				}
				logger.Info("Sweep completed", zap.String("policy", cfg.RetentionPolicy), zap.Int("swept", total))
			}()
			return nil
		},
	})
}

func main() {
	flag.Parse()

	fx.New(
		fx.Provide(
			config.LoadConfig,
			database.NewDatabase,
			logger.NewLogger,
			execution.NewStateRepository,
			execution.NewDeferredRepository,
			execution.NewExecutionService,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(Sweep),
	).Run()
}
