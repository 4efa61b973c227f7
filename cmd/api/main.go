package main

import (
	"context"
	"fmt"
	"time"

	common_api "go-automation/internal/common/api"
	"go-automation/internal/config"
	"go-automation/internal/database"
	"go-automation/internal/features/audit"
	"go-automation/internal/features/campaign"
	"go-automation/internal/features/dispatch"
	"go-automation/internal/features/email_template"
	"go-automation/internal/features/execution"
	"go-automation/internal/features/facts"
	"go-automation/internal/features/rule"
	"go-automation/internal/features/scheduler"
	"go-automation/internal/features/stream"
	"go-automation/internal/features/system"
	"go-automation/internal/features/trigger"
	"go-automation/internal/lock"
	"go-automation/internal/logger"
	"go-automation/internal/middleware"

	_ "go-automation/docs" // Import swagger docs

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// @title Automation Engine API
// @version 1.0
// @description Rule evaluation, drip campaigns and their executions.
// @BasePath /

// NewFiberServer creates a new Fiber app instance
func NewFiberServer(cfg *config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(middleware.CORSMiddleware(cfg))
	app.Use(middleware.ActorMiddleware())

	return app
}

// AsRoute is a helper function to reduce boilerplate.
// It tags the constructor so Fx knows to add it to the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(common_api.Route)),    // Cast to Interface
		fx.ResultTags(`group:"routes"`), // Add to Group
	)
}

// RegisterAllRoutes takes the group "routes" (slice of interfaces)
// and calls Setup() on each one.
func RegisterAllRoutes(app *fiber.App, routes []common_api.Route, logger *zap.Logger) {
	logger.Info("Registering routes", zap.Int("count", len(routes)))
	for _, route := range routes {
		logger.Debug("Setting up route", zap.String("route", fmt.Sprintf("%T", route)))
		route.Setup(app)
	}
}

// RegisterAllRoutesWithAnnotation wraps RegisterAllRoutes with fx annotations
var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, `group:"routes"`, ``),
)

// StartServer creates a lifecycle hook to start Fiber in a goroutine
// and shut it down when the app exits.
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := fmt.Sprintf(":%s", cfg.Port)
				logger.Info("Starting server", zap.String("port", cfg.Port))
				if err := app.Listen(port); err != nil {
					logger.Fatal("Server failed to start", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.Shutdown()
		},
	})
}

// NewRedis connects to Redis when REDIS_ADDR is set and returns nil otherwise.
func NewRedis(lc fx.Lifecycle, cfg *config.Config) (*redis.Client, error) {
	if cfg.RedisAddr == "" {
		return nil, nil
	}
	rdb, err := lock.NewRedisClient(context.Background(), cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return rdb.Close()
		},
	})
	return rdb, nil
}

// NewLocker picks the Redis locker when a client exists. The in-process
// locker only serializes a single instance.
func NewLocker(rdb *redis.Client, logger *zap.Logger) lock.Locker {
	if rdb == nil {
		logger.Warn("REDIS_ADDR not set, using in-process recipient locks")
		return lock.NewMemoryLocker()
	}
	return lock.NewRedisLocker(rdb, "automation:lock:")
}

// NewFeed fans events out to websocket clients and NATS.
func NewFeed(hub *stream.Hub, publisher *trigger.Publisher) stream.Publisher {
	return stream.Fanout{hub, publisher}
}

// InitializeIndexes ensures that necessary database indexes are created
func InitializeIndexes(lc fx.Lifecycle, mongodb *database.MongodbDB, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				if err := mongodb.EnsureIndexes(ctx); err != nil {
					logger.Error("Failed to ensure indexes", zap.Error(err))
				}
			}()
			return nil
		},
	})
}

func StartScheduler(lc fx.Lifecycle, svc scheduler.SchedulerService) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return svc.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return svc.Stop()
		},
	})
}

func StartTriggerSubscriber(lc fx.Lifecycle, sub *trigger.Subscriber) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return sub.Start()
		},
		OnStop: func(ctx context.Context) error {
			return sub.Stop()
		},
	})
}

func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			database.NewDatabase,
			logger.NewLogger,
			NewFiberServer,
			NewRedis,
			NewLocker,

			// Initialize Repository
			audit.NewAuditRepository,
			email_template.NewEmailTemplateRepository,
			execution.NewStateRepository,
			execution.NewDeferredRepository,
			facts.NewContactRepository,
			rule.NewRuleRepository,
			campaign.NewCampaignRepository,
			scheduler.NewTickRepository,

			// Initialize Service
			audit.NewAuditService,
			email_template.NewEmailTemplateService,
			execution.NewExecutionService,
			facts.NewSource,
			stream.NewHub,
			trigger.NewConnection,
			trigger.NewPublisher,
			NewFeed,
			fx.Annotate(dispatch.NewSMTPMailer, fx.As(new(dispatch.Mailer))),
			fx.Annotate(dispatch.NewHTTPWebhookSender, fx.As(new(dispatch.WebhookSender))),
			func(contacts facts.ContactRepository) dispatch.Contacts { return contacts },
			dispatch.NewDispatcher,
			rule.NewRuleService,
			campaign.NewCampaignService,
			scheduler.NewSchedulerService,
			trigger.NewRouter,
			trigger.NewSubscriber,

			// Initialize Controller
			audit.NewAuditController,
			email_template.NewEmailTemplateController,
			execution.NewExecutionController,
			rule.NewRuleController,
			campaign.NewCampaignController,
			scheduler.NewSchedulerController,
			stream.NewStreamController,

			// Initialize API Routes
			AsRoute(audit.NewAuditApi),
			AsRoute(email_template.NewEmailTemplateApi),
			AsRoute(execution.NewExecutionApi),
			AsRoute(rule.NewRuleApi),
			AsRoute(campaign.NewCampaignApi),
			AsRoute(scheduler.NewSchedulerApi),
			AsRoute(stream.NewStreamApi),
			AsRoute(system.NewHealthApi),
			AsRoute(system.NewSwaggerApi),
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(
			// Register Routes & Start
			RegisterAllRoutesWithAnnotation,
			StartServer,
			StartScheduler,
			StartTriggerSubscriber,
			InitializeIndexes,
		),
	)

	app.Run()
}
