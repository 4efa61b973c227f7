package execution_test

import (
	"context"
	"testing"
	"time"

	"go-automation/internal/common/api"
	"go-automation/internal/config"
	"go-automation/internal/features/execution"
	"go-automation/internal/features/execution/executiontest"
	"go-automation/pkg/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newService(t *testing.T, policy string) (execution.ExecutionService, *executiontest.States, *executiontest.Deferred) {
	t.Helper()
	states := executiontest.NewStates()
	deferred := executiontest.NewDeferred()
	svc, err := execution.NewExecutionService(&config.Config{RetentionPolicy: policy}, states, deferred, zap.NewNop())
	require.NoError(t, err)
	return svc, states, deferred
}

func TestParseRetention(t *testing.T) {
	tests := []struct {
		in      string
		want    execution.RetentionPolicy
		wantErr bool
	}{
		{"", execution.RetentionKeep, false},
		{"keep", execution.RetentionKeep, false},
		{"ARCHIVE", execution.RetentionArchive, false},
		{" delete ", execution.RetentionDelete, false},
		{"purge", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := execution.ParseRetention(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckpointVersioning(t *testing.T) {
	svc, _, _ := newService(t, "keep")
	ctx := context.Background()

	st := state.New("r1", "c1", state.StringPtr("a"), t0)
	require.NoError(t, svc.Checkpoint(ctx, &st))
	assert.Equal(t, int64(1), st.Version)

	stale := st
	require.NoError(t, svc.Checkpoint(ctx, &st))
	assert.Equal(t, int64(2), st.Version)

	err := svc.Checkpoint(ctx, &stale)
	assert.ErrorIs(t, err, api.ErrConflict)

	fresh := state.New("r1", "c1", nil, t0)
	assert.ErrorIs(t, svc.Checkpoint(ctx, &fresh), api.ErrConflict)
}

func TestCheckpointRetention(t *testing.T) {
	tests := []struct {
		policy       string
		wantLive     bool
		wantArchived bool
	}{
		{"keep", true, false},
		{"archive", false, true},
		{"delete", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.policy, func(t *testing.T) {
			svc, states, _ := newService(t, tt.policy)
			ctx := context.Background()

			st := state.New("r1", "c1", state.StringPtr("a"), t0)
			require.NoError(t, svc.Checkpoint(ctx, &st))
			live, err := svc.Load(ctx, "r1", "c1")
			require.NoError(t, err)
			require.NotNil(t, live, "non-terminal states are never retained")

			st.Status = state.StatusCompleted
			require.NoError(t, svc.Checkpoint(ctx, &st))

			live, err = svc.Load(ctx, "r1", "c1")
			require.NoError(t, err)
			assert.Equal(t, tt.wantLive, live != nil)
			assert.Equal(t, tt.wantArchived, len(states.Archived[st.Key()]) == 1)
		})
	}
}

func TestArchiveKeepsEveryRun(t *testing.T) {
	svc, states, _ := newService(t, "archive")
	ctx := context.Background()

	for run := 0; run < 2; run++ {
		st := state.New("r1", "c1", state.StringPtr("a"), t0.Add(time.Duration(run)*time.Hour))
		require.NoError(t, svc.Checkpoint(ctx, &st))
		st.Status = state.StatusCompleted
		require.NoError(t, svc.Checkpoint(ctx, &st))
	}

	runs := states.Archived[state.Key("r1", "c1")]
	require.Len(t, runs, 2)
	assert.Equal(t, t0, runs[0].StartedAt)
	assert.Equal(t, t0.Add(time.Hour), runs[1].StartedAt)
}

func TestArchivedStateDocument(t *testing.T) {
	st := state.New("r1", "c1", nil, t0)
	st.Status = state.StatusStopped
	raw, err := bson.Marshal(execution.ArchivedState{State: st, ArchivedAt: t0.Add(time.Minute)})
	require.NoError(t, err)

	var doc bson.M
	require.NoError(t, bson.Unmarshal(raw, &doc))
	assert.Equal(t, "r1", doc["recipient_id"])
	assert.Equal(t, "c1", doc["campaign_id"])
	assert.Contains(t, doc, "archived_at")
	assert.NotContains(t, doc, "_id", "each archive insert gets its own id")
}

func TestGetMissingIsNotFound(t *testing.T) {
	svc, _, _ := newService(t, "keep")
	_, err := svc.Get(context.Background(), "r1", "nope")
	assert.ErrorIs(t, err, api.ErrNotFound)
}

func TestSweep(t *testing.T) {
	svc, states, _ := newService(t, "archive")
	done := state.New("r1", "c1", nil, t0)
	done.Status = state.StatusStopped
	states.Put(done)
	states.Put(state.New("r2", "c1", nil, t0))

	n, err := svc.Sweep(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, states.Archived, done.Key())

	keep, _, _ := newService(t, "keep")
	n, err = keep.Sweep(context.Background(), 10)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDeferredLifecycle(t *testing.T) {
	svc, _, deferred := newService(t, "keep")
	ctx := context.Background()

	require.NoError(t, svc.Defer(ctx, execution.DeferredBatch{ID: "empty", DueAt: t0}))
	assert.Empty(t, deferred.Batches, "empty batches are not stored")

	wait := execution.DeferredBatch{ID: "b1", RecipientID: "r1", CampaignID: "rules:signup", DueAt: t0.Add(48 * time.Hour)}
	wait.Actions = append(wait.Actions, mustTag(t))
	require.NoError(t, svc.Defer(ctx, wait))

	due, err := svc.DueDeferred(ctx, t0.Add(24*time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	due, err = svc.DueDeferred(ctx, t0.Add(48*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)

	require.NoError(t, svc.CompleteDeferred(ctx, "b1"))
	assert.Empty(t, deferred.Batches)
}

func TestWriteXLSX(t *testing.T) {
	waiting := state.New("r1", "c1", state.StringPtr("wait"), t0)
	waiting.Status = state.StatusWaiting
	resume := t0.Add(48 * time.Hour)
	waiting.ResumeAt = &resume
	waiting.Tags = []string{"engaged", "vip"}

	data, err := execution.WriteXLSX([]state.State{waiting})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytesReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Executions")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Recipient", rows[0][0])
	assert.Equal(t, []string{"r1", "c1", "waiting", "wait", "engaged, vip", "2024-01-03 00:00:00"}, rows[1][:6])
}
