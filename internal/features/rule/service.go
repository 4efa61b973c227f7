package rule

import (
	"context"
	"fmt"
	"time"

	"go-automation/internal/common/api"
	common_models "go-automation/internal/common/models"
	"go-automation/internal/config"
	"go-automation/internal/database"
	"go-automation/internal/features/audit"
	"go-automation/internal/features/dispatch"
	"go-automation/internal/features/execution"
	"go-automation/internal/features/facts"
	"go-automation/internal/features/stream"
	"go-automation/internal/lock"
	"go-automation/internal/metrics"
	"go-automation/pkg/action"
	factset "go-automation/pkg/facts"
	engine "go-automation/pkg/rule"
	"go-automation/pkg/state"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const lockWait = 5 * time.Second

type RuleService interface {
	CreateRule(ctx context.Context, rule *AutomationRule) error
	GetRule(ctx context.Context, id string) (*AutomationRule, error)
	ListRules(ctx context.Context, trigger string) ([]AutomationRule, error)
	UpdateRule(ctx context.Context, rule *AutomationRule) error
	DeleteRule(ctx context.Context, id string) error
	SetActive(ctx context.Context, id string, active bool) (*AutomationRule, error)
	// DryRun evaluates one rule against facts without touching any state.
	DryRun(ctx context.Context, id string, data map[string]interface{}, now time.Time) (*engine.Result, error)
	HandleTrigger(ctx context.Context, ev TriggerEvent) (*TriggerResult, error)
	// ResumeDeferred runs a batch of actions that was parked behind a wait.
	ResumeDeferred(ctx context.Context, batch execution.DeferredBatch) (*TriggerResult, error)
	// ResumeState reactivates a rule-driven state whose wait has elapsed.
	ResumeState(ctx context.Context, recipientID, campaignID string) (bool, error)
}

type RuleServiceImpl struct {
	Repo         RuleRepository
	Executions   execution.ExecutionService
	Facts        facts.Source
	Locker       lock.Locker
	Dispatcher   dispatch.Dispatcher
	Feed         stream.Publisher
	AuditService audit.AuditService
	Executor     *action.Executor
	Policy       engine.Policy
	LockTTL      time.Duration
	Logger       *zap.Logger
}

func NewRuleService(
	cfg *config.Config,
	repo RuleRepository,
	executions execution.ExecutionService,
	source facts.Source,
	locker lock.Locker,
	dispatcher dispatch.Dispatcher,
	feed stream.Publisher,
	auditService audit.AuditService,
	logger *zap.Logger,
) (RuleService, error) {
	policy, err := engine.ParsePolicy(cfg.RuleMatchPolicy)
	if err != nil {
		return nil, err
	}
	return &RuleServiceImpl{
		Repo:         repo,
		Executions:   executions,
		Facts:        source,
		Locker:       locker,
		Dispatcher:   dispatcher,
		Feed:         feed,
		AuditService: auditService,
		Executor:     action.NewExecutor(),
		Policy:       policy,
		LockTTL:      cfg.LockTTL,
		Logger:       logger,
	}, nil
}

func (s *RuleServiceImpl) CreateRule(ctx context.Context, rule *AutomationRule) error {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	if err := rule.Validate(); err != nil {
		return err
	}
	existing, err := s.Repo.GetByID(ctx, rule.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("rule %s: %w", rule.ID, api.ErrConflict)
	}

	if err := s.Repo.Create(ctx, rule); err != nil {
		return err
	}
	_ = s.AuditService.LogChange(ctx, common_models.AuditActionCreate, database.RulesCollection, rule.ID, map[string]common_models.Change{
		"rule": {New: rule},
	})
	return nil
}

func (s *RuleServiceImpl) GetRule(ctx context.Context, id string) (*AutomationRule, error) {
	rule, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, fmt.Errorf("rule %s: %w", id, api.ErrNotFound)
	}
	return rule, nil
}

func (s *RuleServiceImpl) ListRules(ctx context.Context, trigger string) ([]AutomationRule, error) {
	return s.Repo.List(ctx, trigger)
}

func (s *RuleServiceImpl) UpdateRule(ctx context.Context, rule *AutomationRule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	old, err := s.GetRule(ctx, rule.ID)
	if err != nil {
		return err
	}
	rule.CreatedAt = old.CreatedAt

	if err := s.Repo.Update(ctx, rule); err != nil {
		return err
	}
	_ = s.AuditService.LogChange(ctx, common_models.AuditActionUpdate, database.RulesCollection, rule.ID, map[string]common_models.Change{
		"rule": {Old: old, New: rule},
	})
	return nil
}

func (s *RuleServiceImpl) DeleteRule(ctx context.Context, id string) error {
	old, err := s.GetRule(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}
	_ = s.AuditService.LogChange(ctx, common_models.AuditActionDelete, database.RulesCollection, id, map[string]common_models.Change{
		"rule": {Old: old, New: "DELETED"},
	})
	return nil
}

func (s *RuleServiceImpl) SetActive(ctx context.Context, id string, active bool) (*AutomationRule, error) {
	rule, err := s.GetRule(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.Enable(ctx, id, active); err != nil {
		return nil, err
	}
	_ = s.AuditService.LogChange(ctx, common_models.AuditActionAutomation, database.RulesCollection, id, map[string]common_models.Change{
		"isActive": {Old: rule.IsActive, New: active},
	})
	rule.IsActive = active
	return rule, nil
}

func (s *RuleServiceImpl) DryRun(ctx context.Context, id string, data map[string]interface{}, now time.Time) (*engine.Result, error) {
	rule, err := s.GetRule(ctx, id)
	if err != nil {
		return nil, err
	}
	res, err := engine.Evaluate(rule.Rule, factset.New(data), now)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *RuleServiceImpl) HandleTrigger(ctx context.Context, ev TriggerEvent) (*TriggerResult, error) {
	if err := api.Validate(ev); err != nil {
		return nil, err
	}
	log := s.Logger.With(
		zap.String("recipient_id", ev.RecipientID),
		zap.String("campaign_id", ev.StateCampaign()),
		zap.String("trigger", ev.Trigger),
	)

	stored, err := s.Repo.ListActive(ctx, ev.Trigger)
	if err != nil {
		return nil, fmt.Errorf("load rules for %s: %w", ev.Trigger, err)
	}
	rules := make([]engine.Rule, 0, len(stored))
	for _, r := range stored {
		rules = append(rules, r.Rule)
	}

	loaded, err := s.Facts.Load(ctx, ev.RecipientID)
	if err != nil {
		return nil, err
	}
	record := facts.Merge(loaded, ev.Facts)

	now := s.Executor.Now()
	results, err := engine.EvaluateSet(rules, s.Policy, factset.New(record), now)
	s.countEvaluations(ev.Trigger, results, err)
	if err != nil {
		return nil, err
	}

	out := &TriggerResult{
		Trigger:     ev.Trigger,
		RecipientID: ev.RecipientID,
		CampaignID:  ev.StateCampaign(),
		Results:     results,
	}
	actions := engine.Actions(results)

	err = lock.WithLockWait(ctx, s.Locker, state.Key(ev.RecipientID, out.CampaignID), s.LockTTL, lockWait, func(ctx context.Context) error {
		st, err := s.Executions.Load(ctx, ev.RecipientID, out.CampaignID)
		if err != nil {
			return err
		}
		if st == nil {
			fresh := state.New(ev.RecipientID, out.CampaignID, nil, now)
			st = &fresh
		}
		return s.apply(ctx, st, actions, ev.Trigger, now, out)
	})
	if err != nil {
		log.Warn("Trigger failed", zap.Error(err))
		return out, err
	}

	out.Deliveries = s.Dispatcher.Dispatch(ctx, out.Effects, facts.Merge(record, out.State.Fields))
	log.Info("Trigger handled",
		zap.Int("rules", len(results)),
		zap.Int("effects", len(out.Effects)),
		zap.Int("deferred", out.Deferred),
		zap.String("status", string(out.State.Status)),
	)
	return out, nil
}

// apply runs actions against st and checkpoints the outcome. A recipient
// that is still waiting gets the actions queued behind its wait.
func (s *RuleServiceImpl) apply(ctx context.Context, st *state.State, actions []action.Action, trigger string, now time.Time, out *TriggerResult) error {
	if st.Status.Terminal() {
		return fmt.Errorf("recipient %s in %s: %w", st.RecipientID, st.CampaignID, action.ErrTerminalState)
	}
	if st.Status == state.StatusWaiting && !st.Due(now) {
		out.State = *st
		out.Deferred = len(actions)
		return s.Executions.Defer(ctx, s.deferred(*st, trigger, actions, *st.ResumeAt, now))
	}
	if st.Status == state.StatusWaiting {
		*st = st.Resumed(now)
	}

	batch, err := s.Executor.ExecuteAll(actions, *st)
	if err != nil {
		return err
	}
	if batch.Executed == 0 {
		out.State = *st
		return nil
	}
	for _, a := range actions[:batch.Executed] {
		metrics.ActionsExecutedTotal.WithLabelValues(string(a.Type)).Inc()
	}

	next := batch.State
	if err := s.Executions.Checkpoint(ctx, &next); err != nil {
		return err
	}
	out.State = next
	out.Effects = batch.Effects

	if len(batch.Remaining) > 0 && next.ResumeAt != nil {
		out.Deferred = len(batch.Remaining)
		if err := s.Executions.Defer(ctx, s.deferred(next, trigger, batch.Remaining, *next.ResumeAt, now)); err != nil {
			return err
		}
	}

	s.Feed.Publish(ctx, stream.Event{
		Type:        stream.EventCheckpoint,
		RecipientID: next.RecipientID,
		CampaignID:  next.CampaignID,
		Data:        next,
		At:          now,
	})
	return nil
}

func (s *RuleServiceImpl) deferred(st state.State, trigger string, actions []action.Action, due, now time.Time) execution.DeferredBatch {
	return execution.DeferredBatch{
		ID:          uuid.NewString(),
		RecipientID: st.RecipientID,
		CampaignID:  st.CampaignID,
		Trigger:     trigger,
		Actions:     actions,
		DueAt:       due,
		CreatedAt:   now,
	}
}

func (s *RuleServiceImpl) ResumeDeferred(ctx context.Context, batch execution.DeferredBatch) (*TriggerResult, error) {
	out := &TriggerResult{
		Trigger:     batch.Trigger,
		RecipientID: batch.RecipientID,
		CampaignID:  batch.CampaignID,
	}
	now := s.Executor.Now()

	var record map[string]interface{}
	err := lock.WithLockWait(ctx, s.Locker, state.Key(batch.RecipientID, batch.CampaignID), s.LockTTL, lockWait, func(ctx context.Context) error {
		st, err := s.Executions.Load(ctx, batch.RecipientID, batch.CampaignID)
		if err != nil {
			return err
		}
		if st == nil || st.Status.Terminal() {
			return s.Executions.CompleteDeferred(ctx, batch.ID)
		}
		if st.Status == state.StatusWaiting && !st.Due(now) {
			out.State = *st
			return nil
		}

		loaded, err := s.Facts.Load(ctx, batch.RecipientID)
		if err != nil {
			return err
		}
		record = loaded

		if err := s.apply(ctx, st, batch.Actions, batch.Trigger, now, out); err != nil {
			return err
		}
		return s.Executions.CompleteDeferred(ctx, batch.ID)
	})
	if err != nil {
		return out, err
	}

	if len(out.Effects) > 0 {
		out.Deliveries = s.Dispatcher.Dispatch(ctx, out.Effects, facts.Merge(record, out.State.Fields))
	}
	return out, nil
}

func (s *RuleServiceImpl) ResumeState(ctx context.Context, recipientID, campaignID string) (bool, error) {
	resumed := false
	err := lock.WithLockWait(ctx, s.Locker, state.Key(recipientID, campaignID), s.LockTTL, lockWait, func(ctx context.Context) error {
		st, err := s.Executions.Load(ctx, recipientID, campaignID)
		if err != nil || st == nil {
			return err
		}
		now := s.Executor.Now()
		if !st.Due(now) {
			return nil
		}
		next := st.Resumed(now)
		if err := s.Executions.Checkpoint(ctx, &next); err != nil {
			return err
		}
		resumed = true
		return nil
	})
	return resumed, err
}

func (s *RuleServiceImpl) countEvaluations(trigger string, results []engine.Result, err error) {
	for _, res := range results {
		outcome := "unmatched"
		switch {
		case res.Skipped:
			outcome = "skipped"
		case res.Matched:
			outcome = "matched"
		}
		metrics.RuleEvaluationsTotal.WithLabelValues(trigger, outcome).Inc()
	}
	if err != nil {
		metrics.RuleEvaluationsTotal.WithLabelValues(trigger, "error").Inc()
	}
}
