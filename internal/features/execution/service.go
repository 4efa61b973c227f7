package execution

import (
	"context"
	"fmt"
	"time"

	"go-automation/internal/common/api"
	"go-automation/internal/config"
	"go-automation/pkg/state"

	"go.uber.org/zap"
)

type ExecutionService interface {
	// Load returns the stored state, or nil when the pair has none.
	Load(ctx context.Context, recipientID, campaignID string) (*state.State, error)
	Get(ctx context.Context, recipientID, campaignID string) (*state.State, error)
	// Checkpoint persists st and applies retention when it is terminal.
	Checkpoint(ctx context.Context, st *state.State) error
	List(ctx context.Context, filter Filter) ([]state.State, error)
	Due(ctx context.Context, now time.Time, limit int64) ([]state.State, error)
	Defer(ctx context.Context, batch DeferredBatch) error
	DueDeferred(ctx context.Context, now time.Time, limit int64) ([]DeferredBatch, error)
	CompleteDeferred(ctx context.Context, id string) error
	// Sweep applies retention to states that are already terminal.
	Sweep(ctx context.Context, limit int64) (int, error)
	Export(ctx context.Context, filter Filter) ([]byte, string, error)
}

type ExecutionServiceImpl struct {
	States    StateRepository
	Deferred  DeferredRepository
	Retention RetentionPolicy
	Logger    *zap.Logger
}

func NewExecutionService(cfg *config.Config, states StateRepository, deferred DeferredRepository, logger *zap.Logger) (ExecutionService, error) {
	policy, err := ParseRetention(cfg.RetentionPolicy)
	if err != nil {
		return nil, err
	}
	return &ExecutionServiceImpl{
		States:    states,
		Deferred:  deferred,
		Retention: policy,
		Logger:    logger,
	}, nil
}

func (s *ExecutionServiceImpl) Load(ctx context.Context, recipientID, campaignID string) (*state.State, error) {
	return s.States.Get(ctx, recipientID, campaignID)
}

func (s *ExecutionServiceImpl) Get(ctx context.Context, recipientID, campaignID string) (*state.State, error) {
	st, err := s.States.Get(ctx, recipientID, campaignID)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, fmt.Errorf("execution %s: %w", state.Key(recipientID, campaignID), api.ErrNotFound)
	}
	return st, nil
}

func (s *ExecutionServiceImpl) Checkpoint(ctx context.Context, st *state.State) error {
	if err := s.States.Save(ctx, st); err != nil {
		return fmt.Errorf("checkpoint %s: %w", st.Key(), err)
	}
	if st.Status.Terminal() {
		return s.retain(ctx, *st)
	}
	return nil
}

func (s *ExecutionServiceImpl) retain(ctx context.Context, st state.State) error {
	var err error
	switch s.Retention {
	case RetentionArchive:
		err = s.States.Archive(ctx, st)
	case RetentionDelete:
		err = s.States.Delete(ctx, st.RecipientID, st.CampaignID)
	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("retention %s for %s: %w", s.Retention, st.Key(), err)
	}
	s.Logger.Debug("Retention applied",
		zap.String("recipient_id", st.RecipientID),
		zap.String("campaign_id", st.CampaignID),
		zap.String("policy", string(s.Retention)),
	)
	return nil
}

func (s *ExecutionServiceImpl) List(ctx context.Context, filter Filter) ([]state.State, error) {
	return s.States.List(ctx, filter)
}

func (s *ExecutionServiceImpl) Due(ctx context.Context, now time.Time, limit int64) ([]state.State, error) {
	return s.States.FindDue(ctx, now, limit)
}

func (s *ExecutionServiceImpl) Defer(ctx context.Context, batch DeferredBatch) error {
	if len(batch.Actions) == 0 {
		return nil
	}
	return s.Deferred.SaveDeferred(ctx, batch)
}

func (s *ExecutionServiceImpl) DueDeferred(ctx context.Context, now time.Time, limit int64) ([]DeferredBatch, error) {
	return s.Deferred.FindDueDeferred(ctx, now, limit)
}

func (s *ExecutionServiceImpl) CompleteDeferred(ctx context.Context, id string) error {
	return s.Deferred.DeleteDeferred(ctx, id)
}

func (s *ExecutionServiceImpl) Sweep(ctx context.Context, limit int64) (int, error) {
	if s.Retention == RetentionKeep {
		return 0, nil
	}
	states, err := s.States.FindTerminal(ctx, limit)
	if err != nil {
		return 0, err
	}
	swept := 0
	for _, st := range states {
		if err := s.retain(ctx, st); err != nil {
			return swept, err
		}
		swept++
	}
	return swept, nil
}
