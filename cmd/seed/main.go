package main

import (
	"context"
	"errors"
	"flag"
	"os"

	"go-automation/internal/config"
	"go-automation/internal/database"
	"go-automation/internal/features/campaign"
	"go-automation/internal/features/email_template"
	"go-automation/internal/features/facts"
	"go-automation/internal/features/rule"
	"go-automation/internal/logger"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

var seedFile = flag.String("file", "cmd/seed/data/definitions.toml", "TOML file with templates, rules, campaigns and contacts")

// Seed upserts every definition of the seed file
func Seed(
	lc fx.Lifecycle,
	mongodb *database.MongodbDB,
	templateRepo email_template.EmailTemplateRepository,
	ruleRepo rule.RuleRepository,
	campaignRepo campaign.CampaignRepository,
	contactRepo facts.ContactRepository,
	logger *zap.Logger,
	shutdowner fx.Shutdowner,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				exitCode := 0
				defer func() {
					if err := shutdowner.Shutdown(fx.ExitCode(exitCode)); err != nil {
						logger.Error("Failed to shutdown", zap.Error(err))
					}
				}()

				ctx := context.Background()
				if err := seed(ctx, mongodb, templateRepo, ruleRepo, campaignRepo, contactRepo, logger); err != nil {
					logger.Error("Seeding failed", zap.Error(err))
					exitCode = 1
				}
			}()
			return nil
		},
	})
}

func seed(
	ctx context.Context,
	mongodb *database.MongodbDB,
	templateRepo email_template.EmailTemplateRepository,
	ruleRepo rule.RuleRepository,
	campaignRepo campaign.CampaignRepository,
	contactRepo facts.ContactRepository,
	logger *zap.Logger,
) error {
	logger.Info("Starting database seeding", zap.String("file", *seedFile))

	body, err := os.ReadFile(*seedFile)
	if err != nil {
		return err
	}
	defs, err := ParseDefinitions(body)
	if err != nil {
		return err
	}
	if err := mongodb.EnsureIndexes(ctx); err != nil {
		return err
	}

	for i := range defs.Templates {
		t := &defs.Templates[i]
		err := templateRepo.Update(ctx, t)
		if errors.Is(err, mongo.ErrNoDocuments) {
			err = templateRepo.Create(ctx, t)
		}
		if err != nil {
			return err
		}
		logger.Info("Seeded template", zap.String("template_id", t.TemplateID))
	}
	for i := range defs.Rules {
		if err := ruleRepo.Upsert(ctx, &defs.Rules[i]); err != nil {
			return err
		}
		logger.Info("Seeded rule", zap.String("rule_id", defs.Rules[i].ID))
	}
	for i := range defs.Campaigns {
		if err := campaignRepo.Upsert(ctx, &defs.Campaigns[i]); err != nil {
			return err
		}
		logger.Info("Seeded campaign", zap.String("campaign_id", defs.Campaigns[i].ID))
	}
	for i := range defs.Contacts {
		if err := contactRepo.Upsert(ctx, &defs.Contacts[i]); err != nil {
			return err
		}
	}

	logger.Info("Seeding completed",
		zap.Int("templates", len(defs.Templates)),
		zap.Int("rules", len(defs.Rules)),
		zap.Int("campaigns", len(defs.Campaigns)),
		zap.Int("contacts", len(defs.Contacts)),
	)
	return nil
}

func main() {
	flag.Parse()

	fx.New(
		fx.Provide(
			config.LoadConfig,
			database.NewDatabase,
			logger.NewLogger,
			email_template.NewEmailTemplateRepository,
			rule.NewRuleRepository,
			campaign.NewCampaignRepository,
			facts.NewContactRepository,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(Seed),
	).Run()
}
