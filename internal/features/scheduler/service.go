package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	common_models "go-automation/internal/common/models"
	"go-automation/internal/config"
	"go-automation/internal/database"
	"go-automation/internal/features/audit"
	"go-automation/internal/features/campaign"
	"go-automation/internal/features/execution"
	"go-automation/internal/features/rule"
	"go-automation/internal/lock"
	"go-automation/internal/metrics"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const tickLockKey = "scheduler:tick"

// RuleResumer is the part of the rule service the scheduler drives.
type RuleResumer interface {
	ResumeDeferred(ctx context.Context, batch execution.DeferredBatch) (*rule.TriggerResult, error)
	ResumeState(ctx context.Context, recipientID, campaignID string) (bool, error)
}

type CampaignResumer interface {
	Resume(ctx context.Context, recipientID, campaignID string) (*campaign.RunOutcome, error)
}

type SchedulerService interface {
	// Tick resumes every due deferred batch and waiting state once.
	Tick(ctx context.Context, source string) (*TickLog, error)
	ListTicks(ctx context.Context, limit int64) ([]TickLog, error)
	Start(ctx context.Context) error
	Stop() error
}

type SchedulerServiceImpl struct {
	Repo         TickRepository
	Executions   execution.ExecutionService
	Rules        RuleResumer
	Campaigns    CampaignResumer
	Locker       lock.Locker
	AuditService audit.AuditService
	Spec         string
	Batch        int64
	LockTTL      time.Duration
	Logger       *zap.Logger

	mu        sync.Mutex
	scheduler *cron.Cron
	now       func() time.Time
}

func NewSchedulerService(
	cfg *config.Config,
	repo TickRepository,
	executions execution.ExecutionService,
	rules rule.RuleService,
	campaigns campaign.CampaignService,
	locker lock.Locker,
	auditService audit.AuditService,
	logger *zap.Logger,
) SchedulerService {
	return &SchedulerServiceImpl{
		Repo:         repo,
		Executions:   executions,
		Rules:        rules,
		Campaigns:    campaigns,
		Locker:       locker,
		AuditService: auditService,
		Spec:         cfg.SchedulerSpec,
		Batch:        int64(cfg.SchedulerBatch),
		LockTTL:      cfg.LockTTL,
		Logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *SchedulerServiceImpl) Tick(ctx context.Context, source string) (*TickLog, error) {
	start := time.Now()
	defer func() { metrics.SchedulerTickDuration.Observe(time.Since(start).Seconds()) }()

	entry := &TickLog{
		Source:    source,
		StartTime: s.now(),
		Status:    TickRunning,
	}
	if err := s.Repo.CreateLog(ctx, entry); err != nil {
		s.Logger.Warn("Failed to create tick log", zap.Error(err))
	}

	tickErr := lock.WithLock(ctx, s.Locker, tickLockKey, s.LockTTL, func(ctx context.Context) error {
		return s.resume(ctx, entry)
	})

	end := s.now()
	entry.EndTime = &end
	switch {
	case errors.Is(tickErr, lock.ErrLockNotAcquired):
		entry.Status = TickSkipped
		tickErr = nil
	case tickErr != nil:
		entry.Status = TickFailed
		entry.Error = tickErr.Error()
	default:
		entry.Status = TickSuccess
	}
	if err := s.Repo.UpdateLog(ctx, entry); err != nil {
		s.Logger.Warn("Failed to update tick log", zap.Error(err))
	}

	if source != "cron" {
		_ = s.AuditService.LogChange(ctx, common_models.AuditActionScheduler, database.TicksCollection, entry.ID.Hex(), map[string]common_models.Change{
			"status":  {New: entry.Status},
			"resumed": {New: entry.Resumed},
			"failed":  {New: entry.Failed},
		})
	}

	s.Logger.Info("Scheduler tick finished",
		zap.String("source", source),
		zap.String("status", string(entry.Status)),
		zap.Int("processed", entry.Processed),
		zap.Int("resumed", entry.Resumed),
		zap.Int("failed", entry.Failed),
	)
	return entry, tickErr
}

// resume handles deferred batches first so queued rule actions run before
// their state is resumed on its own.
func (s *SchedulerServiceImpl) resume(ctx context.Context, entry *TickLog) error {
	now := s.now()

	batches, err := s.Executions.DueDeferred(ctx, now, s.Batch)
	if err != nil {
		return fmt.Errorf("load deferred batches: %w", err)
	}
	for _, batch := range batches {
		entry.Processed++
		_, err := s.Rules.ResumeDeferred(ctx, batch)
		s.record(entry, "deferred", err == nil, err,
			zap.String("recipient_id", batch.RecipientID),
			zap.String("campaign_id", batch.CampaignID),
			zap.String("batch_id", batch.ID),
		)
	}

	states, err := s.Executions.Due(ctx, now, s.Batch)
	if err != nil {
		return fmt.Errorf("load due executions: %w", err)
	}
	for _, st := range states {
		entry.Processed++
		fields := []zap.Field{zap.String("recipient_id", st.RecipientID), zap.String("campaign_id", st.CampaignID)}

		if strings.HasPrefix(st.CampaignID, rule.CampaignPrefix) {
			resumed, err := s.Rules.ResumeState(ctx, st.RecipientID, st.CampaignID)
			s.record(entry, "rules", resumed, err, fields...)
			continue
		}
		_, err := s.Campaigns.Resume(ctx, st.RecipientID, st.CampaignID)
		s.record(entry, "campaign", err == nil, err, fields...)
	}
	return nil
}

func (s *SchedulerServiceImpl) record(entry *TickLog, source string, resumed bool, err error, fields ...zap.Field) {
	switch {
	case err != nil:
		entry.Failed++
		metrics.SchedulerResumedTotal.WithLabelValues(source, "failed").Inc()
		s.Logger.Warn("Resume failed", append(fields, zap.String("source", source), zap.Error(err))...)
	case resumed:
		entry.Resumed++
		metrics.SchedulerResumedTotal.WithLabelValues(source, "resumed").Inc()
	default:
		metrics.SchedulerResumedTotal.WithLabelValues(source, "skipped").Inc()
	}
}

func (s *SchedulerServiceImpl) ListTicks(ctx context.Context, limit int64) ([]TickLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return s.Repo.ListLogs(ctx, limit)
}

func (s *SchedulerServiceImpl) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	logger := cron.PrintfLogger(zap.NewStdLog(s.Logger))
	s.scheduler = cron.New(cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))
	_, err := s.scheduler.AddFunc(s.Spec, func() {
		ctx := context.Background()
		if _, err := s.Tick(ctx, "cron"); err != nil {
			s.Logger.Error("Scheduled tick failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid scheduler spec %q: %w", s.Spec, err)
	}

	s.Logger.Info("Starting scheduler", zap.String("spec", s.Spec))
	s.scheduler.Start()
	return nil
}

func (s *SchedulerServiceImpl) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scheduler != nil {
		ctx := s.scheduler.Stop()
		<-ctx.Done()
	}
	return nil
}
