// Package store provides SQLite-backed persistence for the Ramble
// conversation intelligence core. It is the unified data layer: every
// other package reaches persisted state exclusively through this
// package's Store type.
package store

// Entity kinds persisted by the Store. Every identifier is an opaque,
// client-generated string (see internal/ids); every timestamp is
// milliseconds since the Unix epoch.

// Session is a single bounded conversation session. At most one Session
// has EndedAt == nil at a time.
type Session struct {
	ID             string  `json:"id"`
	StartedAt      int64   `json:"startedAt"`
	EndedAt        *int64  `json:"endedAt,omitempty"`
	UnitCount      int     `json:"unitCount"`
	Summary        *string `json:"summary,omitempty"`
	MoodTrajectory *string `json:"moodTrajectory,omitempty"`
}

// Source is the channel a ConversationUnit arrived through.
type Source string

const (
	SourceSpeech Source = "speech"
	SourceText   Source = "text"
)

// Speaker identifies who produced a ConversationUnit.
type Speaker string

const (
	SpeakerUser  Speaker = "user"
	SpeakerAgent Speaker = "agent"
)

// DiscourseFunction classifies the speech act a unit performs.
type DiscourseFunction string

const (
	DiscourseAssert  DiscourseFunction = "assert"
	DiscourseQuest   DiscourseFunction = "question"
	DiscourseCommand DiscourseFunction = "command"
	DiscourseExpress DiscourseFunction = "express"
	DiscourseCommit  DiscourseFunction = "commit"
)

// ConversationUnit is Layer 0 of the pipeline: an immutable-after-
// processing record of one utterance.
type ConversationUnit struct {
	ID                      string            `json:"id"`
	SessionID               string            `json:"sessionId"`
	Timestamp               int64             `json:"timestamp"`
	RawText                 string            `json:"rawText"`
	SanitizedText           string            `json:"sanitizedText"`
	Source                  Source            `json:"source"`
	Speaker                 Speaker           `json:"speaker"`
	DiscourseFunction       DiscourseFunction `json:"discourseFunction"`
	PrecedingContextSummary string            `json:"precedingContextSummary"`
	CreatedAt               int64             `json:"createdAt"`
	Processed               bool              `json:"processed"`
}

// Proposition is a tokenized statement extracted from a unit.
type Proposition struct {
	ID        string `json:"id"`
	UnitID    string `json:"unitId"`
	Text      string `json:"text"`
	CreatedAt int64  `json:"createdAt"`
}

// Attitude is the stance a speaker takes toward a Proposition.
type Attitude string

const (
	AttitudeAsserted     Attitude = "asserted"
	AttitudeDenied       Attitude = "denied"
	AttitudeHypothetical Attitude = "hypothetical"
	AttitudeQuestioned   Attitude = "questioned"
	AttitudeWished       Attitude = "wished"
)

// Stance binds a Proposition to an Attitude with an intensity.
type Stance struct {
	ID            string   `json:"id"`
	PropositionID string   `json:"propositionId"`
	Attitude      Attitude `json:"attitude"`
	Intensity     float64  `json:"intensity"`
}

// Span records a provenance range within a unit's text.
type Span struct {
	ID        string `json:"id"`
	UnitID    string `json:"unitId"`
	CharStart int    `json:"charStart"`
	CharEnd   int    `json:"charEnd"`
	Text      string `json:"text"`
}

// EntityMention ties a canonical Entity to a Span.
type EntityMention struct {
	ID       string `json:"id"`
	EntityID string `json:"entityId"`
	SpanID   string `json:"spanId"`
	UnitID   string `json:"unitId"`
}

// Temporality governs a Claim's decay half-life.
type Temporality string

const (
	TemporalityEternal        Temporality = "eternal"
	TemporalitySlowlyDecaying Temporality = "slowlyDecaying"
	TemporalityFastDecaying   Temporality = "fastDecaying"
	TemporalityPointInTime    Temporality = "pointInTime"
)

// ClaimState is the lifecycle state of a Claim.
type ClaimState string

const (
	ClaimActive     ClaimState = "active"
	ClaimStale      ClaimState = "stale"
	ClaimDormant    ClaimState = "dormant"
	ClaimSuperseded ClaimState = "superseded"
)

// Stakes classifies how consequential a Claim is.
type Stakes string

const (
	StakesLow         Stakes = "low"
	StakesMedium      Stakes = "medium"
	StakesHigh        Stakes = "high"
	StakesExistential Stakes = "existential"
)

// MemoryTier is the storage tier a Claim currently occupies.
type MemoryTier string

const (
	MemoryWorking  MemoryTier = "working"
	MemoryLongTerm MemoryTier = "longTerm"
)

// Claim is derived, typed knowledge extracted from one or more units.
type Claim struct {
	ID                  string      `json:"id"`
	Statement           string      `json:"statement"`
	Subject             string      `json:"subject"`
	ClaimType           string      `json:"claimType"`
	Temporality         Temporality `json:"temporality"`
	Abstraction         string      `json:"abstraction"`
	SourceType          string      `json:"sourceType"`
	InitialConfidence   float64     `json:"initialConfidence"`
	CurrentConfidence   float64     `json:"currentConfidence"`
	State               ClaimState  `json:"state"`
	EmotionalValence    float64     `json:"emotionalValence"`
	EmotionalIntensity  float64     `json:"emotionalIntensity"`
	Stakes              Stakes      `json:"stakes"`
	ValidFrom           int64       `json:"validFrom"`
	ValidUntil          *int64      `json:"validUntil,omitempty"`
	CreatedAt           int64       `json:"createdAt"`
	LastConfirmed       int64       `json:"lastConfirmed"`
	ConfirmationCount   int         `json:"confirmationCount"`
	ExtractionProgramID string      `json:"extractionProgramId"`
	SupersededBy        *string     `json:"supersededBy,omitempty"`
	Elaborates          *string     `json:"elaborates,omitempty"`
	MemoryTier          MemoryTier  `json:"memoryTier"`
	Salience            float64     `json:"salience"`
	PromotedAt          *int64      `json:"promotedAt,omitempty"`
	LastAccessed        int64       `json:"lastAccessed"`
	// StatementEmbedding is an optional caller-supplied embedding used
	// only as a secondary TopOfMind sort key (SPEC_FULL.md §3); the
	// core never computes embeddings itself (model hosting is a
	// Non-goal).
	StatementEmbedding []float32 `json:"statementEmbedding,omitempty"`
}

// ClaimSource is a many-to-many link between a Claim and the unit(s)
// that evidenced it.
type ClaimSource struct {
	ClaimID string `json:"claimId"`
	UnitID  string `json:"unitId"`
}

// Entity is a canonical named thing referenced across units.
type Entity struct {
	ID             string   `json:"id"`
	CanonicalName  string   `json:"canonicalName"`
	EntityType     string   `json:"entityType"`
	Aliases        []string `json:"aliases"`
	MentionCount   int      `json:"mentionCount"`
	FirstMentioned int64    `json:"firstMentioned"`
	LastReferenced int64    `json:"lastReferenced"`
}

// Timeframe is a Goal's expected horizon.
type Timeframe string

const (
	TimeframeImmediate  Timeframe = "immediate"
	TimeframeShortTerm  Timeframe = "shortTerm"
	TimeframeMediumTerm Timeframe = "mediumTerm"
	TimeframeLongTerm   Timeframe = "longTerm"
	TimeframeLife       Timeframe = "life"
)

// GoalStatus is the lifecycle status of a Goal.
type GoalStatus string

const (
	GoalActive     GoalStatus = "active"
	GoalAchieved   GoalStatus = "achieved"
	GoalAbandoned  GoalStatus = "abandoned"
	GoalBlocked    GoalStatus = "blocked"
	GoalDormant    GoalStatus = "dormant"
	GoalSuperseded GoalStatus = "superseded"
)

// ProgressType describes how a Goal's progress is measured.
type ProgressType string

const (
	ProgressContinuous ProgressType = "continuous"
	ProgressBinary     ProgressType = "binary"
	ProgressMilestone  ProgressType = "milestone"
	ProgressPercentage ProgressType = "percentage"
)

// Milestone is a checkpoint within a milestone-typed Goal.
type Milestone struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Achieved    bool   `json:"achieved"`
	AchievedAt  *int64 `json:"achievedAt,omitempty"`
}

// BlockerSeverity governs whether a Blocker forces a Goal to GoalBlocked.
type BlockerSeverity string

const (
	BlockerBlocking BlockerSeverity = "blocking"
	BlockerMinor    BlockerSeverity = "minor"
)

// BlockerStatus is the lifecycle of a Blocker.
type BlockerStatus string

const (
	BlockerActive   BlockerStatus = "active"
	BlockerResolved BlockerStatus = "resolved"
)

// Blocker records an obstacle against a Goal.
type Blocker struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Severity    BlockerSeverity `json:"severity"`
	Status      BlockerStatus   `json:"status"`
	CreatedAt   int64           `json:"createdAt"`
	ResolvedAt  *int64          `json:"resolvedAt,omitempty"`
}

// Goal is a hierarchical, trackable objective.
type Goal struct {
	ID             string       `json:"id"`
	Statement      string       `json:"statement"`
	GoalType       string       `json:"goalType"`
	Timeframe      Timeframe    `json:"timeframe"`
	Status         GoalStatus   `json:"status"`
	ParentGoalID   *string      `json:"parentGoalId,omitempty"`
	CreatedAt      int64        `json:"createdAt"`
	LastReferenced int64        `json:"lastReferenced"`
	Priority       int          `json:"priority"`
	ProgressType   ProgressType `json:"progressType"`
	ProgressValue  float64      `json:"progressValue"`
	Milestones     []Milestone  `json:"milestones"`
	Blockers       []Blocker    `json:"blockers"`
	SourceClaimID  string       `json:"sourceClaimId"`
	Motivation     *string      `json:"motivation,omitempty"`
	Deadline       *int64       `json:"deadline,omitempty"`
}

// Correction is a learned wrongText -> correctText mapping.
type Correction struct {
	ID           string  `json:"id"`
	WrongText    string  `json:"wrongText"`
	CorrectText  string  `json:"correctText"`
	OriginalCase string  `json:"originalCase"`
	UsageCount   int     `json:"usageCount"`
	CreatedAt    int64   `json:"createdAt"`
	LastUsed     int64   `json:"lastUsed"`
	SourceUnitID *string `json:"sourceUnitId,omitempty"`
}

// Vocabulary is a learned spelling with phonetic codes for matching.
type Vocabulary struct {
	ID                string         `json:"id"`
	CorrectSpelling   string         `json:"correctSpelling"`
	EntityType        string         `json:"entityType"`
	ContextHints      []string       `json:"contextHints"`
	PhoneticPrimary   string         `json:"phoneticPrimary"`
	PhoneticSecondary *string        `json:"phoneticSecondary,omitempty"`
	UsageCount        int            `json:"usageCount"`
	VariantCounts     map[string]int `json:"variantCounts"`
}

// TaskStatus is the lifecycle status of a queued Task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskProcessing TaskStatus = "processing"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
	TaskPaused     TaskStatus = "paused"
)

// TaskPriority is the symbolic priority a Task was enqueued with.
type TaskPriority string

const (
	PriorityCritical TaskPriority = "critical"
	PriorityHigh     TaskPriority = "high"
	PriorityNormal   TaskPriority = "normal"
	PriorityLow      TaskPriority = "low"
)

// PriorityValue resolves a symbolic TaskPriority to its numeric weight
// (spec §4.B).
func PriorityValue(p TaskPriority) int {
	switch p {
	case PriorityCritical:
		return 100
	case PriorityHigh:
		return 75
	case PriorityNormal:
		return 50
	case PriorityLow:
		return 25
	default:
		return 50
	}
}

// BackoffConfig parameterizes Task retry backoff.
type BackoffConfig struct {
	BaseDelayMs  int64   `json:"baseDelayMs"`
	MaxDelayMs   int64   `json:"maxDelayMs"`
	Multiplier   float64 `json:"multiplier"`
	JitterFactor float64 `json:"jitterFactor"`
}

// DefaultBackoffConfig matches spec §4.B's stated defaults.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{BaseDelayMs: 1000, MaxDelayMs: 60000, Multiplier: 2, JitterFactor: 0.25}
}

// Checkpoint is the resumable progress marker a Task handler may
// advance between internal stages.
type Checkpoint struct {
	Step             string         `json:"step"`
	StepIndex        int            `json:"stepIndex"`
	TotalSteps       *int           `json:"totalSteps,omitempty"`
	IntermediateData map[string]any `json:"intermediateData,omitempty"`
	CompletedSteps   []string       `json:"completedSteps"`
}

// Task is a unit of durable, resumable, prioritized work.
type Task struct {
	ID            string        `json:"id"`
	TaskType      string        `json:"taskType"`
	Payload       string        `json:"payload"`
	Status        TaskStatus    `json:"status"`
	Priority      TaskPriority  `json:"priority"`
	PriorityValue int           `json:"priorityValue"`
	Attempts      int           `json:"attempts"`
	MaxAttempts   int           `json:"maxAttempts"`
	LastError     *string       `json:"lastError,omitempty"`
	LastErrorAt   *int64        `json:"lastErrorAt,omitempty"`
	NextRetryAt   *int64        `json:"nextRetryAt,omitempty"`
	BackoffConfig BackoffConfig `json:"backoffConfig"`
	Checkpoint    *Checkpoint   `json:"checkpoint,omitempty"`
	CreatedAt     int64         `json:"createdAt"`
	StartedAt     *int64        `json:"startedAt,omitempty"`
	CompletedAt   *int64        `json:"completedAt,omitempty"`
	ExecuteAt     int64         `json:"executeAt"`
	GroupID       *string       `json:"groupId,omitempty"`
	DependsOn     *string       `json:"dependsOn,omitempty"`
	SessionID     *string       `json:"sessionId,omitempty"`
}

// ObserverOutput is a generic reactive output written by an observer.
type ObserverOutput struct {
	ID             string   `json:"id"`
	ObserverName   string   `json:"observerName"`
	OutputType     string   `json:"outputType"`
	SourceClaimIDs []string `json:"sourceClaimIds"`
	CreatedAt      int64    `json:"createdAt"`
	Stale          bool     `json:"stale"`
	Content        string   `json:"content"`
}

// Contradiction records two claims an observer found to be in tension.
type Contradiction struct {
	ID          string   `json:"id"`
	ClaimIDs    []string `json:"claimIds"`
	Description string   `json:"description"`
	CreatedAt   int64    `json:"createdAt"`
	Stale       bool     `json:"stale"`
}

// Pattern records a recurring structure an observer detected.
type Pattern struct {
	ID             string   `json:"id"`
	Description    string   `json:"description"`
	SourceClaimIDs []string `json:"sourceClaimIds"`
	CreatedAt      int64    `json:"createdAt"`
	Stale          bool     `json:"stale"`
}

// Value records an inferred user value an observer detected.
type Value struct {
	ID             string   `json:"id"`
	Statement      string   `json:"statement"`
	SourceClaimIDs []string `json:"sourceClaimIds"`
	CreatedAt      int64    `json:"createdAt"`
	Stale          bool     `json:"stale"`
}

// ExtractionProgramRecord mirrors a code-registered extraction program.
type ExtractionProgramRecord struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Version string `json:"version"`
	Active  bool   `json:"active"`
}

// ObserverProgramRecord mirrors a code-registered observer program.
type ObserverProgramRecord struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Version     string  `json:"version"`
	Active      bool    `json:"active"`
	SuccessRate float64 `json:"successRate"`
}

// SynthesisCache holds a precomputed synthesis result with a TTL.
type SynthesisCache struct {
	ID            string   `json:"id"`
	SynthesisType string   `json:"synthesisType"`
	CacheKey      string   `json:"cacheKey"`
	Content       string   `json:"content"`
	SourceClaims  []string `json:"sourceClaims"`
	CreatedAt     int64    `json:"createdAt"`
	Stale         bool     `json:"stale"`
	TTLSeconds    int64    `json:"ttlSeconds"`
}

// Valid reports whether a cache entry may still be served as-is, given
// the current time and the most recent confirmation among its source
// claims (spec §3).
func (c SynthesisCache) Valid(now int64, maxSourceLastConfirmed int64) bool {
	if c.Stale {
		return false
	}
	if now-c.CreatedAt >= c.TTLSeconds*1000 {
		return false
	}
	return maxSourceLastConfirmed <= c.CreatedAt
}
