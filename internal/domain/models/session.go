package models

import "time"

// SessionState is the lifecycle state of an import session. InProgress
// covers the whole Validating → PersistingMovements → CalculatingSnapshots
// run; the current step is tracked separately in SessionPhase so the two
// concerns (is the session alive? what is it doing?) stay independent.
type SessionState string

const (
	SessionInProgress SessionState = "IN_PROGRESS"
	SessionCompleted  SessionState = "COMPLETED"
	SessionFailed     SessionState = "FAILED"
	SessionCancelled  SessionState = "CANCELLED"
)

// Terminal reports whether the session can no longer make progress.
func (s SessionState) Terminal() bool {
	return s == SessionCompleted || s == SessionFailed || s == SessionCancelled
}

// SessionPhase is the pipeline step a session is currently executing.
type SessionPhase string

const (
	PhaseValidating           SessionPhase = "VALIDATING"
	PhasePersistingMovements  SessionPhase = "PERSISTING_MOVEMENTS"
	PhaseCalculatingSnapshots SessionPhase = "CALCULATING_SNAPSHOTS"
	PhaseCompleted            SessionPhase = "COMPLETED"
)

// ChunkState is the lifecycle state of one date-windowed unit of work.
type ChunkState string

const (
	ChunkPending    ChunkState = "PENDING"
	ChunkInProgress ChunkState = "IN_PROGRESS"
	ChunkCompleted  ChunkState = "COMPLETED"
	ChunkFailed     ChunkState = "FAILED"
)

// ImportSession is the durable handle of one import invocation. On process
// restart the caller queries the active session for an account and resumes
// from the first non-Completed chunk; Completed chunks are never
// reprocessed.
type ImportSession struct {
	ID                 string
	AccountID          string
	FileName           string
	FilePath           string
	FileHash           string
	State              SessionState
	Phase              SessionPhase
	TotalChunks        int
	CompletedChunks    int
	TotalMovements     int
	ProcessedMovements int
	SkippedMovements   int
	MinDate            time.Time
	MaxDate            time.Time
	StartedAt          time.Time
	PersistStartedAt   *time.Time
	SnapshotsStartedAt *time.Time
	FinishedAt         *time.Time
	LastError          string
}

// ImportSessionChunk is one date-bounded unit of work inside a session.
// Chunk windows partition the session's [MinDate, MaxDate] range without
// gaps or overlaps, ordered by Number.
type ImportSessionChunk struct {
	SessionID      string
	Number         int
	StartDate      time.Time
	EndDate        time.Time
	EstimatedCount int
	ActualCount    int
	State          ChunkState
	StartedAt      *time.Time
	CompletedAt    *time.Time
	DurationMs     int64
	Error          string
}
