// Package executiontest provides in-memory execution stores for tests.
package executiontest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go-automation/internal/common/api"
	"go-automation/internal/features/execution"
	"go-automation/pkg/state"
)

// States is an in-memory execution.StateRepository with the same
// optimistic version check as the Mongo store.
type States struct {
	mu       sync.Mutex
	states   map[string]state.State
	Archived map[string][]state.State
	Saves    int
}

func NewStates() *States {
	return &States{states: map[string]state.State{}, Archived: map[string][]state.State{}}
}

func (m *States) Get(_ context.Context, recipientID, campaignID string) (*state.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[state.Key(recipientID, campaignID)]
	if !ok {
		return nil, nil
	}
	st = st.Clone()
	return &st, nil
}

func (m *States) Save(_ context.Context, st *state.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.states[st.Key()]
	switch {
	case st.Version == 0 && ok:
		return fmt.Errorf("state %s already exists: %w", st.Key(), api.ErrConflict)
	case st.Version != 0 && (!ok || stored.Version != st.Version):
		return fmt.Errorf("state %s changed: %w", st.Key(), api.ErrConflict)
	}
	st.Version++
	m.states[st.Key()] = st.Clone()
	m.Saves++
	return nil
}

func (m *States) FindDue(_ context.Context, now time.Time, limit int64) ([]state.State, error) {
	return m.filter(limit, func(st state.State) bool { return st.Due(now) }), nil
}

func (m *States) FindTerminal(_ context.Context, limit int64) ([]state.State, error) {
	return m.filter(limit, func(st state.State) bool { return st.Status.Terminal() }), nil
}

func (m *States) List(_ context.Context, f execution.Filter) ([]state.State, error) {
	return m.filter(f.Limit, func(st state.State) bool {
		return (f.CampaignID == "" || st.CampaignID == f.CampaignID) &&
			(f.RecipientID == "" || st.RecipientID == f.RecipientID) &&
			(f.Status == "" || string(st.Status) == f.Status)
	}), nil
}

func (m *States) Archive(_ context.Context, st state.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Archived[st.Key()] = append(m.Archived[st.Key()], st.Clone())
	delete(m.states, st.Key())
	return nil
}

func (m *States) Delete(_ context.Context, recipientID, campaignID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, state.Key(recipientID, campaignID))
	return nil
}

// Put stores st as-is, bypassing the version check.
func (m *States) Put(st state.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[st.Key()] = st.Clone()
}

func (m *States) filter(limit int64, keep func(state.State) bool) []state.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.states))
	for k := range m.states {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []state.State
	for _, k := range keys {
		if limit > 0 && int64(len(out)) >= limit {
			break
		}
		if st := m.states[k]; keep(st) {
			out = append(out, st.Clone())
		}
	}
	return out
}

// Deferred is an in-memory execution.DeferredRepository.
type Deferred struct {
	mu      sync.Mutex
	Batches map[string]execution.DeferredBatch
}

func NewDeferred() *Deferred {
	return &Deferred{Batches: map[string]execution.DeferredBatch{}}
}

func (m *Deferred) SaveDeferred(_ context.Context, b execution.DeferredBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Batches[b.ID] = b
	return nil
}

func (m *Deferred) FindDueDeferred(_ context.Context, now time.Time, limit int64) ([]execution.DeferredBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []execution.DeferredBatch
	for _, b := range m.Batches {
		if !now.Before(b.DueAt) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueAt.Before(out[j].DueAt) })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Deferred) DeleteDeferred(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Batches, id)
	return nil
}
