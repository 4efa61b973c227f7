package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	common_models "go-automation/internal/common/models"
	"go-automation/internal/config"
	"go-automation/internal/features/campaign"
	"go-automation/internal/features/execution"
	"go-automation/internal/features/execution/executiontest"
	"go-automation/internal/features/rule"
	"go-automation/internal/lock"
	"go-automation/pkg/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

type memoryTicks struct{ logs []TickLog }

func (m *memoryTicks) CreateLog(_ context.Context, log *TickLog) error {
	m.logs = append(m.logs, *log)
	return nil
}

func (m *memoryTicks) UpdateLog(_ context.Context, log *TickLog) error {
	m.logs[len(m.logs)-1] = *log
	return nil
}

func (m *memoryTicks) ListLogs(_ context.Context, limit int64) ([]TickLog, error) {
	if int64(len(m.logs)) > limit {
		return m.logs[:limit], nil
	}
	return m.logs, nil
}

type fakeRules struct {
	batches []string
	states  []string
}

func (f *fakeRules) ResumeDeferred(_ context.Context, batch execution.DeferredBatch) (*rule.TriggerResult, error) {
	f.batches = append(f.batches, batch.ID)
	return &rule.TriggerResult{}, nil
}

func (f *fakeRules) ResumeState(_ context.Context, recipientID, campaignID string) (bool, error) {
	f.states = append(f.states, state.Key(recipientID, campaignID))
	return true, nil
}

type fakeCampaigns struct {
	resumed []string
	fail    map[string]bool
}

func (f *fakeCampaigns) Resume(_ context.Context, recipientID, campaignID string) (*campaign.RunOutcome, error) {
	if f.fail[recipientID] {
		return nil, errors.New("boom")
	}
	f.resumed = append(f.resumed, state.Key(recipientID, campaignID))
	return &campaign.RunOutcome{}, nil
}

type auditStub struct{ actions []common_models.AuditAction }

func (a *auditStub) LogChange(_ context.Context, action common_models.AuditAction, _, _ string, _ map[string]common_models.Change) error {
	a.actions = append(a.actions, action)
	return nil
}

func (a *auditStub) ListLogs(context.Context, map[string]interface{}, int64, int64) ([]common_models.AuditLog, error) {
	return nil, nil
}

type fixture struct {
	svc       *SchedulerServiceImpl
	ticks     *memoryTicks
	states    *executiontest.States
	deferred  *executiontest.Deferred
	rules     *fakeRules
	campaigns *fakeCampaigns
	audit     *auditStub
	locker    lock.Locker
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	f := fixture{
		ticks:     &memoryTicks{},
		states:    executiontest.NewStates(),
		deferred:  executiontest.NewDeferred(),
		rules:     &fakeRules{},
		campaigns: &fakeCampaigns{fail: map[string]bool{}},
		audit:     &auditStub{},
		locker:    lock.NewMemoryLocker(),
	}
	cfg := &config.Config{RetentionPolicy: "keep"}
	executions, err := execution.NewExecutionService(cfg, f.states, f.deferred, zap.NewNop())
	require.NoError(t, err)

	f.svc = &SchedulerServiceImpl{
		Repo:         f.ticks,
		Executions:   executions,
		Rules:        f.rules,
		Campaigns:    f.campaigns,
		Locker:       f.locker,
		AuditService: f.audit,
		Spec:         "@every 1m",
		Batch:        10,
		LockTTL:      time.Minute,
		Logger:       zap.NewNop(),
		now:          func() time.Time { return t0 },
	}
	return f
}

func waiting(recipientID, campaignID string, resumeAt time.Time) state.State {
	st := state.New(recipientID, campaignID, state.StringPtr("pause"), t0.Add(-time.Hour))
	st.Status = state.StatusWaiting
	st.ResumeAt = &resumeAt
	st.Version = 1
	return st
}

func TestTickRoutesDueWork(t *testing.T) {
	f := newFixture(t)
	f.states.Put(waiting("u1", "rules:signup", t0.Add(-time.Minute)))
	f.states.Put(waiting("u2", "onboarding", t0.Add(-time.Minute)))
	f.states.Put(waiting("u3", "onboarding", t0.Add(time.Hour)))
	f.deferred.Batches["b1"] = execution.DeferredBatch{ID: "b1", RecipientID: "u1", CampaignID: "rules:signup", DueAt: t0.Add(-time.Second)}
	f.deferred.Batches["b2"] = execution.DeferredBatch{ID: "b2", RecipientID: "u4", CampaignID: "rules:signup", DueAt: t0.Add(time.Hour)}

	entry, err := f.svc.Tick(context.Background(), "cron")
	require.NoError(t, err)

	assert.Equal(t, TickSuccess, entry.Status)
	assert.Equal(t, 3, entry.Processed)
	assert.Equal(t, 3, entry.Resumed)
	assert.Zero(t, entry.Failed)
	assert.Equal(t, []string{"b1"}, f.rules.batches)
	assert.Equal(t, []string{"rules:signup/u1"}, f.rules.states)
	assert.Equal(t, []string{"onboarding/u2"}, f.campaigns.resumed)
	require.Len(t, f.ticks.logs, 1)
	assert.NotNil(t, f.ticks.logs[0].EndTime)
	assert.Empty(t, f.audit.actions, "cron ticks are not audited")
}

func TestTickCountsFailures(t *testing.T) {
	f := newFixture(t)
	f.states.Put(waiting("u2", "onboarding", t0.Add(-time.Minute)))
	f.campaigns.fail["u2"] = true

	entry, err := f.svc.Tick(context.Background(), "manual")
	require.NoError(t, err)
	assert.Equal(t, TickSuccess, entry.Status)
	assert.Equal(t, 1, entry.Processed)
	assert.Equal(t, 1, entry.Failed)
	assert.Equal(t, []common_models.AuditAction{common_models.AuditActionScheduler}, f.audit.actions)
}

func TestTickSkipsWhenLocked(t *testing.T) {
	f := newFixture(t)
	f.states.Put(waiting("u2", "onboarding", t0.Add(-time.Minute)))
	held, err := f.locker.Acquire(context.Background(), tickLockKey, time.Minute)
	require.NoError(t, err)
	defer held.Release(context.Background())

	entry, err := f.svc.Tick(context.Background(), "cron")
	require.NoError(t, err)
	assert.Equal(t, TickSkipped, entry.Status)
	assert.Zero(t, entry.Processed)
	assert.Empty(t, f.campaigns.resumed)
}

func TestListTicksClampsLimit(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		_, err := f.svc.Tick(context.Background(), "cron")
		require.NoError(t, err)
	}
	ticks, err := f.svc.ListTicks(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, ticks, 3)
}

func TestStartRejectsBadSpec(t *testing.T) {
	f := newFixture(t)
	f.svc.Spec = "not a schedule"
	assert.Error(t, f.svc.Start(context.Background()))

	f.svc.Spec = "@every 1h"
	require.NoError(t, f.svc.Start(context.Background()))
	assert.NoError(t, f.svc.Stop())
}
