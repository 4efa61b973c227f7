package campaign

import (
	"context"
	"testing"
	"time"

	"go-automation/internal/common/api"
	common_models "go-automation/internal/common/models"
	"go-automation/internal/config"
	"go-automation/internal/features/dispatch"
	"go-automation/internal/features/execution"
	"go-automation/internal/features/execution/executiontest"
	"go-automation/internal/features/facts"
	"go-automation/internal/features/stream"
	"go-automation/internal/lock"
	"go-automation/pkg/action"
	"go-automation/pkg/condition"
	"go-automation/pkg/graph"
	"go-automation/pkg/state"
	"go-automation/pkg/timeframe"
	"go-automation/pkg/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type memoryCampaigns struct {
	campaigns map[string]Campaign
}

func (m *memoryCampaigns) Create(_ context.Context, c *Campaign) error {
	m.campaigns[c.ID] = *c
	return nil
}

func (m *memoryCampaigns) GetByID(_ context.Context, id string) (*Campaign, error) {
	c, ok := m.campaigns[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *memoryCampaigns) List(context.Context, bool) ([]Campaign, error) {
	out := []Campaign{}
	for _, c := range m.campaigns {
		out = append(out, c)
	}
	return out, nil
}

func (m *memoryCampaigns) Update(_ context.Context, c *Campaign) error {
	m.campaigns[c.ID] = *c
	return nil
}

func (m *memoryCampaigns) Upsert(ctx context.Context, c *Campaign) error { return m.Update(ctx, c) }

func (m *memoryCampaigns) Delete(_ context.Context, id string) error {
	delete(m.campaigns, id)
	return nil
}

type audienceContacts struct {
	ids    []string
	filter bson.M
}

func (a *audienceContacts) Get(context.Context, string) (*facts.Contact, error)         { return nil, nil }
func (a *audienceContacts) Upsert(context.Context, *facts.Contact) error                { return nil }
func (a *audienceContacts) AddTag(context.Context, string, string) error                { return nil }
func (a *audienceContacts) RemoveTag(context.Context, string, string) error             { return nil }
func (a *audienceContacts) SetField(context.Context, string, string, interface{}) error { return nil }

func (a *audienceContacts) ListIDs(_ context.Context, filter bson.M, _ int64) ([]string, error) {
	a.filter = filter
	return a.ids, nil
}

type staticFacts map[string]interface{}

func (s staticFacts) Load(context.Context, string) (map[string]interface{}, error) { return s, nil }

type recordingDispatcher struct {
	effects  []action.Effect
	enroller dispatch.Enroller
}

func (d *recordingDispatcher) Dispatch(_ context.Context, effects []action.Effect, _ map[string]interface{}) []dispatch.Delivery {
	d.effects = append(d.effects, effects...)
	out := make([]dispatch.Delivery, 0, len(effects))
	for _, e := range effects {
		out = append(out, dispatch.Delivery{EffectID: e.ID, Kind: e.Kind, Status: dispatch.DeliveryDelivered})
	}
	return out
}

func (d *recordingDispatcher) SetEnroller(e dispatch.Enroller) { d.enroller = e }

type auditStub struct{ actions []common_models.AuditAction }

func (a *auditStub) LogChange(_ context.Context, action common_models.AuditAction, _, _ string, _ map[string]common_models.Change) error {
	a.actions = append(a.actions, action)
	return nil
}

func (a *auditStub) ListLogs(context.Context, map[string]interface{}, int64, int64) ([]common_models.AuditLog, error) {
	return nil, nil
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

type fixture struct {
	svc        *CampaignServiceImpl
	repo       *memoryCampaigns
	states     *executiontest.States
	contacts   *audienceContacts
	dispatcher *recordingDispatcher
	audit      *auditStub
	clock      *clock
}

func newFixture(t *testing.T, stored staticFacts) fixture {
	t.Helper()
	f := fixture{
		repo:       &memoryCampaigns{campaigns: map[string]Campaign{}},
		states:     executiontest.NewStates(),
		contacts:   &audienceContacts{},
		dispatcher: &recordingDispatcher{},
		audit:      &auditStub{},
		clock:      &clock{now: t0},
	}
	cfg := &config.Config{RetentionPolicy: "keep", LockTTL: time.Minute, RunMaxSteps: 20, RunMaxDuration: time.Minute}
	executions, err := execution.NewExecutionService(cfg, f.states, executiontest.NewDeferred(), zap.NewNop())
	require.NoError(t, err)

	svc := NewCampaignService(cfg, f.repo, executions, stored, f.contacts, lock.NewMemoryLocker(), f.dispatcher, stream.Discard{}, f.audit, zap.NewNop())
	f.svc = svc.(*CampaignServiceImpl)
	f.svc.Executor = action.NewExecutor(action.WithClock(f.clock.Now))
	return f
}

// onboarding sends a welcome email, waits two days and tags recipients
// that opened it.
func onboarding(id string) Campaign {
	return Campaign{Graph: graph.Graph{
		ID:          id,
		Name:        "Onboarding",
		StartStepID: "welcome",
		IsActive:    true,
		Steps: []graph.Step{
			{ID: "welcome", Type: graph.StepEmail, Data: graph.EmailStep{TemplateID: "tpl-welcome"}, Connections: graph.Connections{Next: "pause"}},
			{ID: "pause", Type: graph.StepWait, Data: graph.WaitStep{Duration: 2, DurationUnit: timeframe.Days}, Connections: graph.Connections{Next: "opened"}},
			{ID: "opened", Type: graph.StepCondition, Data: graph.ConditionStep{
				Conditions: []condition.Condition{
					{ID: "c1", Type: condition.TypeEngagement, Field: "email_opened", Operator: condition.OperatorEquals, Value: true},
				},
				ConditionLogic: condition.LogicAnd,
			}, Connections: graph.Connections{Yes: "engaged"}},
			{ID: "engaged", Type: graph.StepAction, Data: graph.ActionStep{
				Action: action.Action{ID: "engaged-tag", Type: action.TypeAddTag, Data: action.AddTag{TagName: "engaged"}},
			}},
		},
	}}
}

func TestCreateCampaignValidates(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	reserved := onboarding("rules:signup")
	err := f.svc.CreateCampaign(ctx, &reserved)
	var ve *validation.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "id", ve.Field)

	broken := onboarding("c1")
	broken.StartStepID = "missing"
	require.ErrorAs(t, f.svc.CreateCampaign(ctx, &broken), &ve)
	assert.Equal(t, "startStepId", ve.Field)
	assert.Empty(t, f.repo.campaigns)

	good := onboarding("")
	require.NoError(t, f.svc.CreateCampaign(ctx, &good))
	assert.NotEmpty(t, good.ID)

	dup := onboarding(good.ID)
	assert.ErrorIs(t, f.svc.CreateCampaign(ctx, &dup), api.ErrConflict)
	assert.Equal(t, []common_models.AuditAction{common_models.AuditActionCreate}, f.audit.actions)
}

func TestCampaignCRUD(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	c := onboarding("c1")
	require.NoError(t, f.svc.CreateCampaign(ctx, &c))

	c.Name = "Renamed"
	require.NoError(t, f.svc.UpdateCampaign(ctx, &c))
	got, err := f.svc.GetCampaign(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)

	require.NoError(t, f.svc.DeleteCampaign(ctx, "c1"))
	_, err = f.svc.GetCampaign(ctx, "c1")
	assert.ErrorIs(t, err, api.ErrNotFound)
}

func TestNewCampaignServiceRegistersEnroller(t *testing.T) {
	f := newFixture(t, nil)
	assert.Same(t, f.svc, f.dispatcher.enroller)
}

func TestEnrollRunsUntilWait(t *testing.T) {
	f := newFixture(t, staticFacts{"email_opened": true})
	ctx := context.Background()
	c := onboarding("c1")
	require.NoError(t, f.svc.CreateCampaign(ctx, &c))

	out, err := f.svc.Enroll(ctx, "c1", "u1", nil)
	require.NoError(t, err)
	assert.Equal(t, state.StatusWaiting, out.State.Status)
	assert.Equal(t, "pause", out.State.Step())
	require.NotNil(t, out.State.ResumeAt)
	assert.Equal(t, t0.Add(48*time.Hour), *out.State.ResumeAt)
	require.Len(t, out.Deliveries, 1)
	assert.Equal(t, action.KindSendEmail, out.Deliveries[0].Kind)

	stored, err := f.states.Get(ctx, "u1", "c1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, out.State.Version, stored.Version)
	assert.Equal(t, state.StatusWaiting, stored.Status)

	_, err = f.svc.Enroll(ctx, "c1", "u1", nil)
	assert.ErrorIs(t, err, api.ErrConflict)
}

func TestResumeAfterWait(t *testing.T) {
	f := newFixture(t, staticFacts{"email_opened": true})
	ctx := context.Background()
	c := onboarding("c1")
	require.NoError(t, f.svc.CreateCampaign(ctx, &c))
	_, err := f.svc.Enroll(ctx, "c1", "u1", nil)
	require.NoError(t, err)

	early, err := f.svc.Resume(ctx, "u1", "c1")
	require.NoError(t, err)
	assert.Equal(t, state.StatusWaiting, early.State.Status)
	assert.Zero(t, early.Steps)

	f.clock.now = t0.Add(49 * time.Hour)
	out, err := f.svc.Resume(ctx, "u1", "c1")
	require.NoError(t, err)
	assert.Equal(t, state.StatusCompleted, out.State.Status)
	assert.Contains(t, out.State.Tags, "engaged")

	stored, err := f.states.Get(ctx, "u1", "c1")
	require.NoError(t, err)
	assert.Equal(t, out.State.Version, stored.Version)

	again, err := f.svc.Enroll(ctx, "c1", "u1", nil)
	require.NoError(t, err, "a finished recipient can start over")
	assert.Equal(t, state.StatusWaiting, again.State.Status)
}

func TestEnrollErrors(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	inactive := onboarding("off")
	inactive.IsActive = false
	require.NoError(t, f.svc.CreateCampaign(ctx, &inactive))

	_, err := f.svc.Enroll(ctx, "off", "u1", nil)
	assert.ErrorIs(t, err, graph.ErrInactive)

	_, err = f.svc.Enroll(ctx, "nope", "u1", nil)
	assert.ErrorIs(t, err, api.ErrNotFound)

	_, err = f.svc.Enroll(ctx, "off", " ", nil)
	assert.True(t, validation.IsValidation(err))

	_, err = f.svc.Advance(ctx, "off", "u1", nil)
	assert.ErrorIs(t, err, api.ErrNotFound)
}

func TestRunawayKeepsCheckpoints(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	loop := Campaign{Graph: graph.Graph{
		ID:          "loop",
		Name:        "Loop",
		StartStepID: "spin",
		IsActive:    true,
		Steps: []graph.Step{
			{ID: "spin", Type: graph.StepAction, Data: graph.ActionStep{
				Action: action.Action{ID: "spin-tag", Type: action.TypeAddTag, Data: action.AddTag{TagName: "spun"}},
			}, Connections: graph.Connections{Next: "spin"}},
		},
	}}
	require.NoError(t, f.svc.CreateCampaign(ctx, &loop))
	f.svc.Budget = graph.Budget{MaxSteps: 3}

	out, err := f.svc.Enroll(ctx, "loop", "u1", nil)
	assert.True(t, graph.IsRunaway(err))
	require.NotNil(t, out)
	assert.Equal(t, 3, out.Steps)
	assert.Equal(t, state.StatusActive, out.State.Status)

	stored, err := f.states.Get(ctx, "u1", "loop")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, out.State.Version, stored.Version)
}

func TestStop(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	c := onboarding("c1")
	require.NoError(t, f.svc.CreateCampaign(ctx, &c))
	_, err := f.svc.Enroll(ctx, "c1", "u1", nil)
	require.NoError(t, err)

	st, err := f.svc.Stop(ctx, "c1", "u1", "unsubscribed")
	require.NoError(t, err)
	assert.Equal(t, state.StatusStopped, st.Status)
	assert.Nil(t, st.ResumeAt)
	assert.Contains(t, f.audit.actions, common_models.AuditActionCampaign)

	again, err := f.svc.Stop(ctx, "c1", "u1", "twice")
	require.NoError(t, err)
	assert.Equal(t, st.Version, again.Version)

	_, err = f.svc.Stop(ctx, "c1", "ghost", "")
	assert.ErrorIs(t, err, api.ErrNotFound)
}

type recipientFacts map[string]map[string]interface{}

func (r recipientFacts) Load(_ context.Context, recipientID string) (map[string]interface{}, error) {
	return r[recipientID], nil
}

func TestEnrollAudience(t *testing.T) {
	f := newFixture(t, nil)
	f.svc.Facts = recipientFacts{
		"u1": {"plan": "pro", "score": "45"},
		"u2": {"plan": "pro", "score": 50},
		"u3": {"plan": "pro", "score": "12"},
	}
	ctx := context.Background()
	c := onboarding("c1")
	require.NoError(t, f.svc.CreateCampaign(ctx, &c))
	_, err := f.svc.Enroll(ctx, "c1", "u2", nil)
	require.NoError(t, err)

	f.contacts.ids = []string{"u1", "u2", "u3"}
	res, err := f.svc.EnrollAudience(ctx, "c1", AudienceRequest{
		Conditions: []condition.Condition{
			{ID: "plan", Type: condition.TypeAttribute, Field: "plan", Operator: condition.OperatorEquals, Value: "pro"},
			{ID: "score", Type: condition.TypeBehavior, Field: "score", Operator: condition.OperatorGreaterThan, Value: 40},
		},
		ConditionLogic: condition.LogicAnd,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Candidates)
	assert.Equal(t, 2, res.Matched)
	assert.Equal(t, []string{"u1"}, res.Enrolled)
	assert.Equal(t, []string{"u2"}, res.Skipped)
	assert.Equal(t, []string{"u3"}, res.Excluded)
	assert.Empty(t, res.Failed)

	// Numeric strings must reach the evaluator, so the store filter admits
	// string-typed scores.
	clauses := f.contacts.filter["$and"].([]bson.M)
	require.Len(t, clauses, 2)
	assert.Contains(t, clauses[1]["$or"], bson.M{"attributes.score": bson.M{"$type": bson.A{"string"}}})
}

func TestTransferEnrolls(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	c := onboarding("c1")
	require.NoError(t, f.svc.CreateCampaign(ctx, &c))

	require.NoError(t, f.dispatcher.enroller.Transfer(ctx, "c1", "u9", map[string]interface{}{"source": "transfer"}))
	stored, err := f.states.Get(ctx, "u9", "c1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, state.StatusWaiting, stored.Status)
}
