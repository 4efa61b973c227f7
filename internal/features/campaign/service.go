package campaign

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-automation/internal/common/api"
	common_models "go-automation/internal/common/models"
	"go-automation/internal/config"
	"go-automation/internal/database"
	"go-automation/internal/features/audit"
	"go-automation/internal/features/dispatch"
	"go-automation/internal/features/execution"
	"go-automation/internal/features/facts"
	"go-automation/internal/features/rule"
	"go-automation/internal/features/stream"
	"go-automation/internal/lock"
	"go-automation/internal/metrics"
	"go-automation/pkg/action"
	"go-automation/pkg/condition"
	factset "go-automation/pkg/facts"
	"go-automation/pkg/graph"
	"go-automation/pkg/state"
	"go-automation/pkg/validation"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const lockWait = 5 * time.Second

type CampaignService interface {
	CreateCampaign(ctx context.Context, campaign *Campaign) error
	GetCampaign(ctx context.Context, id string) (*Campaign, error)
	ListCampaigns(ctx context.Context, activeOnly bool) ([]Campaign, error)
	UpdateCampaign(ctx context.Context, campaign *Campaign) error
	DeleteCampaign(ctx context.Context, id string) error
	// Enroll starts a recipient at the campaign's start step. A recipient
	// that already finished the campaign starts over.
	Enroll(ctx context.Context, campaignID, recipientID string, data map[string]interface{}) (*RunOutcome, error)
	EnrollAudience(ctx context.Context, campaignID string, req AudienceRequest) (*AudienceResult, error)
	// Advance runs a recipient forward from its stored state.
	Advance(ctx context.Context, campaignID, recipientID string, data map[string]interface{}) (*RunOutcome, error)
	Stop(ctx context.Context, campaignID, recipientID, reason string) (*state.State, error)
	// Resume continues a waiting recipient whose resumeAt has passed.
	Resume(ctx context.Context, recipientID, campaignID string) (*RunOutcome, error)
	Transfer(ctx context.Context, campaignID, recipientID string, data map[string]interface{}) error
}

type CampaignServiceImpl struct {
	Repo         CampaignRepository
	Executions   execution.ExecutionService
	Facts        facts.Source
	Contacts     facts.ContactRepository
	Locker       lock.Locker
	Dispatcher   dispatch.Dispatcher
	Feed         stream.Publisher
	AuditService audit.AuditService
	Executor     *action.Executor
	Budget       graph.Budget
	LockTTL      time.Duration
	Logger       *zap.Logger
}

// NewCampaignService also registers the service as the dispatcher's
// enroller for sequence transfers.
func NewCampaignService(
	cfg *config.Config,
	repo CampaignRepository,
	executions execution.ExecutionService,
	source facts.Source,
	contacts facts.ContactRepository,
	locker lock.Locker,
	dispatcher dispatch.Dispatcher,
	feed stream.Publisher,
	auditService audit.AuditService,
	logger *zap.Logger,
) CampaignService {
	svc := &CampaignServiceImpl{
		Repo:         repo,
		Executions:   executions,
		Facts:        source,
		Contacts:     contacts,
		Locker:       locker,
		Dispatcher:   dispatcher,
		Feed:         feed,
		AuditService: auditService,
		Executor:     action.NewExecutor(),
		Budget:       graph.Budget{MaxSteps: cfg.RunMaxSteps, MaxDuration: cfg.RunMaxDuration},
		LockTTL:      cfg.LockTTL,
		Logger:       logger,
	}
	dispatcher.SetEnroller(svc)
	return svc
}

func validateCampaign(campaign *Campaign) error {
	if strings.HasPrefix(campaign.ID, rule.CampaignPrefix) {
		return validation.Invalid("campaign", campaign.ID, "id", "must not start with %q", rule.CampaignPrefix)
	}
	return campaign.Validate()
}

func (s *CampaignServiceImpl) CreateCampaign(ctx context.Context, campaign *Campaign) error {
	if campaign.ID == "" {
		campaign.ID = uuid.NewString()
	}
	if err := validateCampaign(campaign); err != nil {
		return err
	}
	existing, err := s.Repo.GetByID(ctx, campaign.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("campaign %s: %w", campaign.ID, api.ErrConflict)
	}

	if err := s.Repo.Create(ctx, campaign); err != nil {
		return err
	}
	_ = s.AuditService.LogChange(ctx, common_models.AuditActionCreate, database.CampaignsCollection, campaign.ID, map[string]common_models.Change{
		"campaign": {New: campaign},
	})
	return nil
}

func (s *CampaignServiceImpl) GetCampaign(ctx context.Context, id string) (*Campaign, error) {
	campaign, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, fmt.Errorf("campaign %s: %w", id, api.ErrNotFound)
	}
	return campaign, nil
}

func (s *CampaignServiceImpl) ListCampaigns(ctx context.Context, activeOnly bool) ([]Campaign, error) {
	return s.Repo.List(ctx, activeOnly)
}

func (s *CampaignServiceImpl) UpdateCampaign(ctx context.Context, campaign *Campaign) error {
	if err := validateCampaign(campaign); err != nil {
		return err
	}
	old, err := s.GetCampaign(ctx, campaign.ID)
	if err != nil {
		return err
	}
	campaign.CreatedAt = old.CreatedAt

	if err := s.Repo.Update(ctx, campaign); err != nil {
		return err
	}
	_ = s.AuditService.LogChange(ctx, common_models.AuditActionUpdate, database.CampaignsCollection, campaign.ID, map[string]common_models.Change{
		"campaign": {Old: old, New: campaign},
	})
	return nil
}

func (s *CampaignServiceImpl) DeleteCampaign(ctx context.Context, id string) error {
	old, err := s.GetCampaign(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}
	_ = s.AuditService.LogChange(ctx, common_models.AuditActionDelete, database.CampaignsCollection, id, map[string]common_models.Change{
		"campaign": {Old: old, New: "DELETED"},
	})
	return nil
}

func (s *CampaignServiceImpl) Enroll(ctx context.Context, campaignID, recipientID string, data map[string]interface{}) (*RunOutcome, error) {
	if strings.TrimSpace(recipientID) == "" {
		return nil, validation.Missing("enrollment", campaignID, "recipientId")
	}
	campaign, err := s.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	runner := s.runner()
	return s.run(ctx, campaign, recipientID, data, func(ctx context.Context) (*state.State, error) {
		existing, err := s.Executions.Load(ctx, recipientID, campaignID)
		if err != nil {
			return nil, err
		}
		if existing != nil && !existing.Status.Terminal() {
			return nil, fmt.Errorf("recipient %s already in campaign %s: %w", recipientID, campaignID, api.ErrConflict)
		}
		st, err := runner.Start(campaign.Graph, recipientID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			st.Version = existing.Version
		}
		return &st, nil
	})
}

func (s *CampaignServiceImpl) Advance(ctx context.Context, campaignID, recipientID string, data map[string]interface{}) (*RunOutcome, error) {
	campaign, err := s.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, campaign, recipientID, data, s.stored(recipientID, campaignID))
}

func (s *CampaignServiceImpl) Resume(ctx context.Context, recipientID, campaignID string) (*RunOutcome, error) {
	return s.Advance(ctx, campaignID, recipientID, nil)
}

func (s *CampaignServiceImpl) Transfer(ctx context.Context, campaignID, recipientID string, data map[string]interface{}) error {
	_, err := s.Enroll(ctx, campaignID, recipientID, data)
	return err
}

func (s *CampaignServiceImpl) stored(recipientID, campaignID string) func(context.Context) (*state.State, error) {
	return func(ctx context.Context) (*state.State, error) {
		st, err := s.Executions.Load(ctx, recipientID, campaignID)
		if err != nil {
			return nil, err
		}
		if st == nil {
			return nil, fmt.Errorf("recipient %s in campaign %s: %w", recipientID, campaignID, api.ErrNotFound)
		}
		return st, nil
	}
}

func (s *CampaignServiceImpl) runner(opts ...graph.RunnerOption) *graph.Runner {
	return graph.NewRunner(s.Executor, opts...)
}

// run loads facts, takes the recipient lock, runs the graph from the state
// produced by load, and dispatches the effects once the lock is released.
func (s *CampaignServiceImpl) run(ctx context.Context, campaign *Campaign, recipientID string, data map[string]interface{}, load func(context.Context) (*state.State, error)) (*RunOutcome, error) {
	log := s.Logger.With(zap.String("recipient_id", recipientID), zap.String("campaign_id", campaign.ID))

	loaded, err := s.Facts.Load(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	record := facts.Merge(loaded, data)

	out := &RunOutcome{}
	err = lock.WithLockWait(ctx, s.Locker, state.Key(recipientID, campaign.ID), s.LockTTL, lockWait, func(ctx context.Context) error {
		st, err := load(ctx)
		if err != nil {
			return err
		}
		out.State = *st

		version := st.Version
		runner := s.runner(graph.OnStep(func(ctx context.Context, next state.State, effects []action.Effect) error {
			next.Version = version
			if err := s.Executions.Checkpoint(ctx, &next); err != nil {
				return err
			}
			version = next.Version
			s.Feed.Publish(ctx, stream.Event{
				Type:        stream.EventCheckpoint,
				RecipientID: next.RecipientID,
				CampaignID:  next.CampaignID,
				Data:        next,
				At:          next.UpdatedAt,
			})
			return nil
		}))

		res, err := runner.Run(ctx, campaign.Graph, *st, factset.New(facts.Merge(record, st.Fields)), s.Budget)
		res.State.Version = version
		out.State = res.State
		out.Effects = res.Effects
		out.Transitions = res.Transitions
		out.Steps = res.Steps
		return err
	})
	s.countRun(out, err)
	if err != nil && !graph.IsRunaway(err) {
		log.Warn("Campaign run failed", zap.Error(err))
		return out, err
	}

	// A runaway run still checkpointed and produced effects up to the budget.
	if len(out.Effects) > 0 {
		out.Deliveries = s.Dispatcher.Dispatch(ctx, out.Effects, facts.Merge(record, out.State.Fields))
	}
	if err != nil {
		log.Error("Campaign run exceeded budget", zap.Error(err), zap.Int("steps", out.Steps))
		return out, err
	}
	log.Info("Campaign run finished",
		zap.Int("steps", out.Steps),
		zap.Int("effects", len(out.Effects)),
		zap.String("status", string(out.State.Status)),
	)
	return out, nil
}

func (s *CampaignServiceImpl) countRun(out *RunOutcome, err error) {
	outcome := string(out.State.Status)
	switch {
	case graph.IsRunaway(err):
		outcome = "runaway"
	case err != nil:
		outcome = "error"
	}
	metrics.GraphRunsTotal.WithLabelValues(outcome).Inc()
	metrics.GraphStepsProcessed.Observe(float64(out.Steps))
}

func (s *CampaignServiceImpl) Stop(ctx context.Context, campaignID, recipientID, reason string) (*state.State, error) {
	var stopped state.State
	err := lock.WithLockWait(ctx, s.Locker, state.Key(recipientID, campaignID), s.LockTTL, lockWait, func(ctx context.Context) error {
		st, err := s.stored(recipientID, campaignID)(ctx)
		if err != nil {
			return err
		}
		if st.Status.Terminal() {
			stopped = *st
			return nil
		}
		previous := st.Status
		next := st.Clone()
		next.Status = state.StatusStopped
		next.CurrentStepID = nil
		next.ResumeAt = nil
		next.UpdatedAt = s.Executor.Now()
		if err := s.Executions.Checkpoint(ctx, &next); err != nil {
			return err
		}
		stopped = next
		_ = s.AuditService.LogChange(ctx, common_models.AuditActionCampaign, database.ExecutionsCollection, next.Key(), map[string]common_models.Change{
			"status": {Old: previous, New: next.Status},
			"reason": {New: reason},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &stopped, nil
}

func (s *CampaignServiceImpl) EnrollAudience(ctx context.Context, campaignID string, req AudienceRequest) (*AudienceResult, error) {
	if _, err := s.GetCampaign(ctx, campaignID); err != nil {
		return nil, err
	}
	filter, err := facts.AudienceFilter(req.Conditions, req.ConditionLogic, s.Executor.Now())
	if err != nil {
		return nil, err
	}
	ids, err := s.Contacts.ListIDs(ctx, filter, req.Limit)
	if err != nil {
		return nil, fmt.Errorf("select audience for %s: %w", campaignID, err)
	}

	result := &AudienceResult{
		Candidates: len(ids),
		Enrolled:   []string{},
		Excluded:   []string{},
		Skipped:    []string{},
		Failed:     map[string]string{},
	}
	for _, id := range ids {
		// The store filter is a superset; the evaluator has the final say.
		ok, err := s.inAudience(ctx, id, req)
		if err != nil {
			result.Failed[id] = err.Error()
			continue
		}
		if !ok {
			result.Excluded = append(result.Excluded, id)
			continue
		}
		result.Matched++

		_, err = s.Enroll(ctx, campaignID, id, req.Facts)
		switch {
		case err == nil:
			result.Enrolled = append(result.Enrolled, id)
		case errors.Is(err, api.ErrConflict):
			result.Skipped = append(result.Skipped, id)
		default:
			result.Failed[id] = err.Error()
		}
	}
	s.Logger.Info("Audience enrolled",
		zap.String("campaign_id", campaignID),
		zap.Int("candidates", result.Candidates),
		zap.Int("matched", result.Matched),
		zap.Int("enrolled", len(result.Enrolled)),
		zap.Int("failed", len(result.Failed)),
	)
	return result, nil
}

func (s *CampaignServiceImpl) inAudience(ctx context.Context, recipientID string, req AudienceRequest) (bool, error) {
	loaded, err := s.Facts.Load(ctx, recipientID)
	if err != nil {
		return false, fmt.Errorf("load facts for %s: %w", recipientID, err)
	}
	snapshot := factset.New(facts.Merge(loaded, req.Facts))
	return condition.EvaluateAll(req.Conditions, req.ConditionLogic, snapshot, s.Executor.Now())
}
