package observer

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashishact/ramble/internal/store"
	"github.com/ashishact/ramble/pkg/eventbus"
)

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	s, err := store.Open(":memory:", "", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return New(s, eventbus.New())
}

func TestRegisterObserver_RejectsInvalidSchedule(t *testing.T) {
	d := newTestDispatcher(t)
	err := d.RegisterObserver(Config{
		Name:     "bad-schedule",
		Triggers: []Trigger{TriggerSchedule},
		Schedule: "not a cron expression",
	}, func(Context) (Result, error) { return Result{}, nil })
	assert.Error(t, err)
}

func TestDispatchNewClaims_RunsOnlyMatchingObservers(t *testing.T) {
	d := newTestDispatcher(t)
	var factCalls, questionCalls int

	require.NoError(t, d.RegisterObserver(Config{
		Name:            "fact-watcher",
		Triggers:        []Trigger{TriggerNewClaim},
		ClaimTypeFilter: []string{"fact"},
	}, func(Context) (Result, error) { factCalls++; return Result{}, nil }))

	require.NoError(t, d.RegisterObserver(Config{
		Name:            "question-watcher",
		Triggers:        []Trigger{TriggerNewClaim},
		ClaimTypeFilter: []string{"question"},
	}, func(Context) (Result, error) { questionCalls++; return Result{}, nil }))

	d.DispatchNewClaims([]*store.Claim{{ClaimType: "fact"}}, nil, 1000, false)

	assert.Equal(t, 1, factCalls)
	assert.Equal(t, 0, questionCalls)
}

func TestDispatchNewClaims_RunsInPriorityOrder(t *testing.T) {
	d := newTestDispatcher(t)
	var order []string

	require.NoError(t, d.RegisterObserver(Config{
		Name: "low", Triggers: []Trigger{TriggerNewClaim}, Priority: 1,
	}, func(Context) (Result, error) { order = append(order, "low"); return Result{}, nil }))

	require.NoError(t, d.RegisterObserver(Config{
		Name: "high", Triggers: []Trigger{TriggerNewClaim}, Priority: 10,
	}, func(Context) (Result, error) { order = append(order, "high"); return Result{}, nil }))

	d.DispatchNewClaims([]*store.Claim{{ClaimType: "fact"}}, nil, 1000, false)
	require.Len(t, order, 2)
	assert.Equal(t, []string{"high", "low"}, order)
}

func TestRun_PersistsOutputsAndUpdatesSuccessRate(t *testing.T) {
	d := newTestDispatcher(t)
	require.NoError(t, d.RegisterObserver(Config{
		Name:     "value-surfacer",
		Triggers: []Trigger{TriggerManual},
	}, func(ctx Context) (Result, error) {
		return Result{Outputs: []store.ObserverOutput{{OutputType: "summary", Content: "looks fine"}}}, nil
	}))

	d.DispatchManual(1000)

	outputs, err := d.store.GetObserverOutputs()
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	assert.Equal(t, "value-surfacer", outputs[0].ObserverName)

	records, err := d.store.GetObserverProgramRecords()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 1.0, records[0].SuccessRate, "a successful run keeps the EMA at its 1.0 baseline")
}

func TestRun_FailingObserverLowersSuccessRate(t *testing.T) {
	d := newTestDispatcher(t)
	require.NoError(t, d.RegisterObserver(Config{
		Name:     "flaky",
		Triggers: []Trigger{TriggerManual},
	}, func(ctx Context) (Result, error) {
		return Result{}, assert.AnError
	}))

	d.DispatchManual(1000)

	records, err := d.store.GetObserverProgramRecords()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.InDelta(t, 0.8, records[0].SuccessRate, 1e-9, "one failure should pull the EMA from 1.0 toward 0")
}
