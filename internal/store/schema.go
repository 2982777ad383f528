package store

// schema is the current (unsuffixed) table layout, generalized from
// GoKitt's internal/store/sqlite_store.go inline schema constant. Lists
// and nested shapes that the relational shape cannot express directly
// are kept as JSON text columns, per spec §9's "retain JSON-string
// representations only at the persistence boundary" guidance.
const schema = `
CREATE TABLE IF NOT EXISTS applied_migrations (
	version INTEGER PRIMARY KEY,
	applied_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	started_at INTEGER NOT NULL,
	ended_at INTEGER,
	unit_count INTEGER NOT NULL DEFAULT 0,
	summary TEXT,
	mood_trajectory TEXT
);
CREATE INDEX IF NOT EXISTS idx_sessions_active ON sessions(ended_at);

CREATE TABLE IF NOT EXISTS conversation_units (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	timestamp INTEGER NOT NULL,
	raw_text TEXT NOT NULL,
	sanitized_text TEXT NOT NULL,
	source TEXT NOT NULL,
	speaker TEXT NOT NULL,
	discourse_function TEXT NOT NULL,
	preceding_context_summary TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	processed INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_units_session ON conversation_units(session_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_units_processed ON conversation_units(processed);

CREATE TABLE IF NOT EXISTS propositions (
	id TEXT PRIMARY KEY,
	unit_id TEXT NOT NULL,
	text TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_propositions_unit ON propositions(unit_id);

CREATE TABLE IF NOT EXISTS stances (
	id TEXT PRIMARY KEY,
	proposition_id TEXT NOT NULL,
	attitude TEXT NOT NULL,
	intensity REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_stances_proposition ON stances(proposition_id);

CREATE TABLE IF NOT EXISTS spans (
	id TEXT PRIMARY KEY,
	unit_id TEXT NOT NULL,
	char_start INTEGER NOT NULL,
	char_end INTEGER NOT NULL,
	text TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_spans_unit ON spans(unit_id);

CREATE TABLE IF NOT EXISTS entity_mentions (
	id TEXT PRIMARY KEY,
	entity_id TEXT NOT NULL,
	span_id TEXT NOT NULL,
	unit_id TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_mentions_entity ON entity_mentions(entity_id);
CREATE INDEX IF NOT EXISTS idx_mentions_unit ON entity_mentions(unit_id);

CREATE TABLE IF NOT EXISTS claims (
	id TEXT PRIMARY KEY,
	statement TEXT NOT NULL,
	subject TEXT NOT NULL,
	claim_type TEXT NOT NULL,
	temporality TEXT NOT NULL,
	abstraction TEXT NOT NULL,
	source_type TEXT NOT NULL,
	initial_confidence REAL NOT NULL,
	current_confidence REAL NOT NULL,
	state TEXT NOT NULL,
	emotional_valence REAL NOT NULL DEFAULT 0,
	emotional_intensity REAL NOT NULL DEFAULT 0,
	stakes TEXT NOT NULL DEFAULT 'low',
	valid_from INTEGER NOT NULL,
	valid_until INTEGER,
	created_at INTEGER NOT NULL,
	last_confirmed INTEGER NOT NULL,
	confirmation_count INTEGER NOT NULL DEFAULT 0,
	extraction_program_id TEXT NOT NULL DEFAULT '',
	superseded_by TEXT,
	elaborates TEXT,
	memory_tier TEXT NOT NULL DEFAULT 'working',
	salience REAL NOT NULL DEFAULT 0,
	promoted_at INTEGER,
	last_accessed INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_claims_state ON claims(state);
CREATE INDEX IF NOT EXISTS idx_claims_tier ON claims(memory_tier);
CREATE INDEX IF NOT EXISTS idx_claims_temporality ON claims(temporality);
CREATE INDEX IF NOT EXISTS idx_claims_salience ON claims(salience);

CREATE TABLE IF NOT EXISTS claim_sources (
	claim_id TEXT NOT NULL,
	unit_id TEXT NOT NULL,
	PRIMARY KEY (claim_id, unit_id)
);
CREATE INDEX IF NOT EXISTS idx_claim_sources_unit ON claim_sources(unit_id);

CREATE TABLE IF NOT EXISTS entities (
	id TEXT PRIMARY KEY,
	canonical_name TEXT NOT NULL,
	canonical_key TEXT NOT NULL,
	entity_type TEXT NOT NULL,
	aliases TEXT NOT NULL DEFAULT '[]',
	mention_count INTEGER NOT NULL DEFAULT 1,
	first_mentioned INTEGER NOT NULL,
	last_referenced INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_entities_key_type ON entities(canonical_key, entity_type);

CREATE TABLE IF NOT EXISTS goals (
	id TEXT PRIMARY KEY,
	statement TEXT NOT NULL,
	goal_type TEXT NOT NULL,
	timeframe TEXT NOT NULL,
	status TEXT NOT NULL,
	parent_goal_id TEXT,
	created_at INTEGER NOT NULL,
	last_referenced INTEGER NOT NULL,
	priority INTEGER NOT NULL DEFAULT 5,
	progress_type TEXT NOT NULL,
	progress_value REAL NOT NULL DEFAULT 0,
	milestones TEXT NOT NULL DEFAULT '[]',
	blockers TEXT NOT NULL DEFAULT '[]',
	source_claim_id TEXT NOT NULL DEFAULT '',
	motivation TEXT,
	deadline INTEGER
);
CREATE INDEX IF NOT EXISTS idx_goals_parent ON goals(parent_goal_id);
CREATE INDEX IF NOT EXISTS idx_goals_status ON goals(status);

CREATE TABLE IF NOT EXISTS corrections (
	id TEXT PRIMARY KEY,
	wrong_text TEXT NOT NULL UNIQUE,
	correct_text TEXT NOT NULL,
	original_case TEXT NOT NULL,
	usage_count INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	last_used INTEGER NOT NULL,
	source_unit_id TEXT
);

CREATE TABLE IF NOT EXISTS vocabulary (
	id TEXT PRIMARY KEY,
	correct_spelling TEXT NOT NULL,
	entity_type TEXT NOT NULL,
	context_hints TEXT NOT NULL DEFAULT '[]',
	phonetic_primary TEXT NOT NULL,
	phonetic_secondary TEXT,
	usage_count INTEGER NOT NULL DEFAULT 0,
	variant_counts TEXT NOT NULL DEFAULT '{}'
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_vocab_spelling_type ON vocabulary(correct_spelling, entity_type);
CREATE INDEX IF NOT EXISTS idx_vocab_phonetic ON vocabulary(phonetic_primary);

CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	task_type TEXT NOT NULL,
	payload TEXT NOT NULL,
	status TEXT NOT NULL,
	priority TEXT NOT NULL,
	priority_value INTEGER NOT NULL,
	attempts INTEGER NOT NULL DEFAULT 0,
	max_attempts INTEGER NOT NULL,
	last_error TEXT,
	last_error_at INTEGER,
	next_retry_at INTEGER,
	backoff_config TEXT NOT NULL,
	checkpoint TEXT,
	created_at INTEGER NOT NULL,
	started_at INTEGER,
	completed_at INTEGER,
	execute_at INTEGER NOT NULL,
	group_id TEXT,
	depends_on TEXT,
	session_id TEXT
);
CREATE INDEX IF NOT EXISTS idx_tasks_dequeue ON tasks(status, priority_value DESC, execute_at, created_at);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);

CREATE TABLE IF NOT EXISTS observer_outputs (
	id TEXT PRIMARY KEY,
	observer_name TEXT NOT NULL,
	output_type TEXT NOT NULL,
	source_claim_ids TEXT NOT NULL DEFAULT '[]',
	created_at INTEGER NOT NULL,
	stale INTEGER NOT NULL DEFAULT 0,
	content TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS contradictions (
	id TEXT PRIMARY KEY,
	claim_ids TEXT NOT NULL DEFAULT '[]',
	description TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	stale INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS patterns (
	id TEXT PRIMARY KEY,
	description TEXT NOT NULL,
	source_claim_ids TEXT NOT NULL DEFAULT '[]',
	created_at INTEGER NOT NULL,
	stale INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS value_outputs (
	id TEXT PRIMARY KEY,
	statement TEXT NOT NULL,
	source_claim_ids TEXT NOT NULL DEFAULT '[]',
	created_at INTEGER NOT NULL,
	stale INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS extraction_program_records (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	version TEXT NOT NULL,
	active INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS observer_program_records (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	version TEXT NOT NULL,
	active INTEGER NOT NULL DEFAULT 1,
	success_rate REAL NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS synthesis_cache (
	id TEXT PRIMARY KEY,
	synthesis_type TEXT NOT NULL,
	cache_key TEXT NOT NULL,
	content TEXT NOT NULL,
	source_claims TEXT NOT NULL DEFAULT '[]',
	created_at INTEGER NOT NULL,
	stale INTEGER NOT NULL DEFAULT 0,
	ttl_seconds INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_synthesis_key ON synthesis_cache(synthesis_type, cache_key);

-- Optional semantic tie-break index (SPEC_FULL.md §2): one row per
-- claim with a statement embedding, loaded via the sqlite-vec
-- extension when available. Embeddings themselves are always
-- caller-supplied; this core never computes them.
CREATE VIRTUAL TABLE IF NOT EXISTS claim_embeddings USING vec0(
	claim_id TEXT PRIMARY KEY,
	embedding FLOAT[32]
);
`

// migrations are ordered, idempotent transformations applied after the
// base schema on every open. Never remove a step; only append.
var migrations = []struct {
	version int
	apply   func(*Store) error
}{
	{version: 1, apply: func(s *Store) error { return nil }}, // base schema above is migration 1
}
