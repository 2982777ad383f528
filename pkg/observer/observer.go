// Package observer implements the Observer Dispatcher (spec.md §4.G):
// a registry of pluggable analysis routines triggered by new claims,
// claim updates, session end, a cron-like schedule, or a manual call,
// producing ObserverOutput/Contradiction/Pattern/Value records.
// Grounded on GoKitt's extraction-program registry pattern
// (pkg/extraction's program metadata persisted via
// UpsertExtractionProgramRecord) generalized to a dispatch table with
// per-observer success-rate tracking.
package observer

import (
	"fmt"
	"sort"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/ashishact/ramble/internal/ids"
	"github.com/ashishact/ramble/internal/store"
	"github.com/ashishact/ramble/pkg/eventbus"
)

// Trigger names the event kind that fires an Observer.
type Trigger string

const (
	TriggerNewClaim    Trigger = "new_claim"
	TriggerClaimUpdate Trigger = "claim_update"
	TriggerSessionEnd  Trigger = "session_end"
	TriggerSchedule    Trigger = "schedule"
	TriggerManual      Trigger = "manual"
)

// Config describes one registered Observer.
type Config struct {
	Type            string
	Name            string
	Description     string
	Triggers        []Trigger
	Priority        int
	ClaimTypeFilter []string
	UsesLLM         bool
	// Schedule is a standard 5-field cron expression, required when
	// Triggers includes TriggerSchedule.
	Schedule string
}

func (c Config) hasTrigger(t Trigger) bool {
	for _, x := range c.Triggers {
		if x == t {
			return true
		}
	}
	return false
}

func (c Config) matchesClaimType(claimType string) bool {
	if len(c.ClaimTypeFilter) == 0 {
		return true
	}
	for _, t := range c.ClaimTypeFilter {
		if t == claimType {
			return true
		}
	}
	return false
}

// Context is passed to an Observer's Execute function.
type Context struct {
	NewClaims []*store.Claim
	SessionID *string
	Timestamp int64
}

// Result carries the records an Observer wants persisted.
type Result struct {
	Outputs        []store.ObserverOutput
	Contradictions []store.Contradiction
	Patterns       []store.Pattern
	Values         []store.Value
}

// Execute runs one observer invocation.
type Execute func(ctx Context) (Result, error)

type registered struct {
	cfg     Config
	execute Execute
	entry   cron.Schedule
}

// Dispatcher routes trigger events to registered observers in
// priority-desc, registration-asc order (spec.md §5's ordering
// guarantee #3) and persists their outputs via the Store.
type Dispatcher struct {
	store *store.Store
	bus   *eventbus.Bus

	mu  sync.Mutex
	obs []*registered
}

// New constructs a Dispatcher bound to s.
func New(s *store.Store, bus *eventbus.Bus) *Dispatcher {
	return &Dispatcher{store: s, bus: bus}
}

// RegisterObserver adds an observer to the dispatch table and syncs
// its ObserverProgramRecord (spec.md §3: persisted metadata mirrors
// code-registered programs).
func (d *Dispatcher) RegisterObserver(cfg Config, execute Execute) error {
	r := &registered{cfg: cfg, execute: execute}
	if cfg.hasTrigger(TriggerSchedule) {
		sched, err := cron.ParseStandard(cfg.Schedule)
		if err != nil {
			return fmt.Errorf("observer: invalid schedule %q for %s: %w", cfg.Schedule, cfg.Name, err)
		}
		r.entry = sched
	}

	d.mu.Lock()
	d.obs = append(d.obs, r)
	sort.SliceStable(d.obs, func(i, j int) bool { return d.obs[i].cfg.Priority > d.obs[j].cfg.Priority })
	d.mu.Unlock()

	record := &store.ObserverProgramRecord{ID: ids.New(), Name: cfg.Name, Version: cfg.Type, Active: true, SuccessRate: 1.0}
	existing, err := d.store.GetObserverProgramRecords()
	if err != nil {
		return err
	}
	for _, rec := range existing {
		if rec.Name == cfg.Name {
			record.ID = rec.ID
			record.SuccessRate = rec.SuccessRate
			break
		}
	}
	return d.store.UpsertObserverProgramRecord(record)
}

// DispatchNewClaims runs every registered observer subscribed to
// TriggerNewClaim (and TriggerClaimUpdate, when isUpdate) whose
// claimTypeFilter matches at least one of the new claims.
func (d *Dispatcher) DispatchNewClaims(claims []*store.Claim, sessionID *string, now int64, isUpdate bool) {
	trigger := TriggerNewClaim
	if isUpdate {
		trigger = TriggerClaimUpdate
	}
	d.dispatch(trigger, Context{NewClaims: claims, SessionID: sessionID, Timestamp: now}, claims)
}

// DispatchSessionEnd invokes every observer subscribed to
// TriggerSessionEnd.
func (d *Dispatcher) DispatchSessionEnd(sessionID string, now int64) {
	d.dispatch(TriggerSessionEnd, Context{SessionID: &sessionID, Timestamp: now}, nil)
}

// DispatchManual invokes every observer subscribed to TriggerManual.
func (d *Dispatcher) DispatchManual(now int64) {
	d.dispatch(TriggerManual, Context{Timestamp: now}, nil)
}

// DispatchScheduled invokes every observer subscribed to
// TriggerSchedule, on every call, whatever their Schedule says; the
// parsed schedule is only validated at registration. No queue handler
// or timer in this module calls it (spec.md §4.G).
func (d *Dispatcher) DispatchScheduled(now int64) {
	d.dispatch(TriggerSchedule, Context{Timestamp: now}, nil)
}

func (d *Dispatcher) dispatch(trigger Trigger, ctx Context, claims []*store.Claim) {
	d.mu.Lock()
	snapshot := make([]*registered, len(d.obs))
	copy(snapshot, d.obs)
	d.mu.Unlock()

	for _, r := range snapshot {
		if !r.cfg.hasTrigger(trigger) {
			continue
		}
		if len(claims) > 0 && !anyClaimMatches(r.cfg, claims) {
			continue
		}
		d.run(r, ctx)
	}
}

func anyClaimMatches(cfg Config, claims []*store.Claim) bool {
	for _, c := range claims {
		if cfg.matchesClaimType(c.ClaimType) {
			return true
		}
	}
	return false
}

// run executes one observer, persisting its outputs and updating its
// successRate. A failing observer is contained: its error lowers its
// successRate and its outputs are not persisted, but the error is
// neither returned nor logged, and peer observers still run (spec.md
// §4.G).
func (d *Dispatcher) run(r *registered, ctx Context) {
	result, err := r.execute(ctx)
	d.updateSuccessRate(r.cfg.Name, err == nil)
	if err != nil {
		return
	}

	for i := range result.Outputs {
		o := result.Outputs[i]
		if o.ID == "" {
			o.ID = ids.New()
		}
		if o.ObserverName == "" {
			o.ObserverName = r.cfg.Name
		}
		if o.CreatedAt == 0 {
			o.CreatedAt = ctx.Timestamp
		}
		if err := d.store.CreateObserverOutput(&o); err == nil {
			d.bus.Publish(eventbus.TopicClaimUpdated, o)
		}
	}
	for i := range result.Contradictions {
		c := result.Contradictions[i]
		if c.ID == "" {
			c.ID = ids.New()
		}
		if c.CreatedAt == 0 {
			c.CreatedAt = ctx.Timestamp
		}
		_ = d.store.CreateContradiction(&c)
	}
	for i := range result.Patterns {
		p := result.Patterns[i]
		if p.ID == "" {
			p.ID = ids.New()
		}
		if p.CreatedAt == 0 {
			p.CreatedAt = ctx.Timestamp
		}
		_ = d.store.CreatePattern(&p)
	}
	for i := range result.Values {
		v := result.Values[i]
		if v.ID == "" {
			v.ID = ids.New()
		}
		if v.CreatedAt == 0 {
			v.CreatedAt = ctx.Timestamp
		}
		_ = d.store.CreateValue(&v)
	}
}

// updateSuccessRate applies an exponential moving average to the named
// observer's persisted successRate.
func (d *Dispatcher) updateSuccessRate(name string, succeeded bool) {
	records, err := d.store.GetObserverProgramRecords()
	if err != nil {
		return
	}
	for _, rec := range records {
		if rec.Name != name {
			continue
		}
		sample := 0.0
		if succeeded {
			sample = 1.0
		}
		const alpha = 0.2
		rec.SuccessRate = alpha*sample + (1-alpha)*rec.SuccessRate
		_ = d.store.UpsertObserverProgramRecord(rec)
		return
	}
}
