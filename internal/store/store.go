package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	_ "github.com/asg017/sqlite-vec-go-bindings/ncruces"
	_ "github.com/ncruces/go-sqlite3/driver"

	"github.com/ashishact/ramble/internal/ids"
	"github.com/rs/zerolog"
)

// profilePattern validates the profile namespace key (spec §6): lowercase
// letters, digits and hyphens, at most 50 characters.
var profilePattern = regexp.MustCompile(`^[a-z0-9-]{1,50}$`)

// DefaultProfile is the reserved profile name that maps to the
// unsuffixed database (spec §4.A, §6).
const DefaultProfile = "default"

// Store is the single shared mutable resource in the system (spec §5).
// It wraps a *sql.DB behind a mutex, mirroring GoKitt's SQLiteStore,
// generalized from notes/entities/edges to the full conversation
// intelligence data model.
type Store struct {
	mu      sync.RWMutex
	db      *sql.DB
	profile string
	log     zerolog.Logger

	subMu sync.Mutex
	subs  map[string][]*subscription
	seq   uint64
}

type subscription struct {
	id      uint64
	table   string
	snap    func() (any, error)
	deliver chan any
}

// Open opens (creating if necessary) a profile-namespaced SQLite
// database and runs pending migrations. profile must satisfy
// profilePattern or equal DefaultProfile.
func Open(dsn, profile string, log zerolog.Logger) (*Store, error) {
	if profile == "" {
		profile = DefaultProfile
	}
	if profile != DefaultProfile && !profilePattern.MatchString(profile) {
		return nil, &StoreError{Kind: SchemaMismatch, Detail: "invalid profile name: " + profile}
	}

	path := dsn
	if profile != DefaultProfile {
		path = namespacedPath(dsn, profile)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, newBackendError("open", err)
	}
	db.SetMaxOpenConns(1) // single-writer, cooperative scheduling model (spec §5)

	s := &Store{db: db, profile: profile, log: log, subs: make(map[string][]*subscription)}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// namespacedPath computes the per-profile database file path. Two
// profiles must share no rows, not even tasks (spec §4.A); since each
// profile gets its own SQLite file, this is trivially satisfied.
func namespacedPath(dsn, profile string) string {
	if dsn == ":memory:" {
		return "file:" + profile + "?mode=memory&cache=shared"
	}
	if idx := strings.LastIndex(dsn, "."); idx > 0 {
		return dsn[:idx] + "-" + profile + dsn[idx:]
	}
	return dsn + "-" + profile
}

func (s *Store) migrate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Base schema, minus the optional vec0 virtual table which may be
	// unavailable if the sqlite-vec extension was not loaded by the
	// driver. Each statement runs independently; a genuine failure
	// (not "no such module: vec0") aborts open per spec §4.A.
	for _, stmt := range splitStatements(schema) {
		if stmt == "" {
			continue
		}
		if _, err := s.db.Exec(stmt); err != nil {
			if strings.Contains(stmt, "vec0") {
				s.log.Warn().Err(err).Msg("claim_embeddings vector index unavailable, continuing without semantic tie-break")
				continue
			}
			return newSchemaMismatch("migrate: "+stmt, err)
		}
	}

	var applied int
	row := s.db.QueryRow(`SELECT COUNT(*) FROM applied_migrations`)
	if err := row.Scan(&applied); err != nil {
		return newSchemaMismatch("read applied_migrations", err)
	}
	for _, m := range migrations {
		if m.version <= applied {
			continue
		}
		if err := m.apply(s); err != nil {
			return newSchemaMismatch(fmt.Sprintf("migration %d", m.version), err)
		}
		if _, err := s.db.Exec(`INSERT INTO applied_migrations(version, applied_at) VALUES (?, ?)`, m.version, nowMs()); err != nil {
			return newSchemaMismatch("record migration", err)
		}
	}
	return nil
}

func splitStatements(sqlText string) []string {
	parts := strings.Split(sqlText, ";\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p+";")
		}
	}
	return out
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// nowMs is overridable in tests; production code always uses wall
// clock milliseconds.
var nowMs = func() int64 {
	return time.Now().UnixMilli()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func intToBool(i int) bool { return i != 0 }

func marshalJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

func unmarshalJSON[T any](s string, out *T) {
	if s == "" {
		return
	}
	_ = json.Unmarshal([]byte(s), out)
}

// notify re-runs every subscription snapshot for table and delivers the
// result. Delivery happens on a best-effort basis: if a subscriber's
// channel is full, the newest snapshot simply replaces the pending one
// the next time the subscriber drains, which satisfies the "may be
// coalesced if the subscriber is slow" ordering guarantee (spec §5).
func (s *Store) notify(table string) {
	s.subMu.Lock()
	subs := append([]*subscription(nil), s.subs[table]...)
	s.subMu.Unlock()

	for _, sub := range subs {
		snap, err := sub.snap()
		if err != nil {
			continue
		}
		select {
		case sub.deliver <- snap:
		default:
			select {
			case <-sub.deliver:
			default:
			}
			sub.deliver <- snap
		}
	}
}

// Subscription is a live handle returned by Observe.
type Subscription struct {
	C      <-chan any
	cancel func()
}

// Close stops delivery for this subscription.
func (sub *Subscription) Close() { sub.cancel() }

// observe registers snap to be re-evaluated whenever table changes, and
// delivers an immediate synchronous snapshot to the subscriber per
// spec §4.A.
func (s *Store) observe(table string, snap func() (any, error)) (*Subscription, error) {
	first, err := snap()
	if err != nil {
		return nil, err
	}

	s.subMu.Lock()
	s.seq++
	sub := &subscription{id: s.seq, table: table, snap: snap, deliver: make(chan any, 1)}
	s.subs[table] = append(s.subs[table], sub)
	s.subMu.Unlock()

	sub.deliver <- first

	cancel := func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		list := s.subs[table]
		for i, cand := range list {
			if cand.id == sub.id {
				s.subs[table] = append(list[:i], list[i+1:]...)
				break
			}
		}
	}
	return &Subscription{C: sub.deliver, cancel: cancel}, nil
}

// newID is a small indirection so tests can observe ID allocation if
// ever needed; production always delegates to internal/ids.
var newID = ids.New
