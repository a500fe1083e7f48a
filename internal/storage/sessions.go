package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/guttosm/foliopulse/internal/domain/models"
)

// ErrSessionNotFound is returned when no session matches the query.
var ErrSessionNotFound = errors.New("import session not found")

// SessionRepository persists import sessions and their chunks. None of
// these operations retry automatically: a failed chunk stops the
// session's forward progress and the caller decides whether to retry.
type SessionRepository interface {
	CreateSession(session *models.ImportSession, chunks []models.ImportSessionChunk) error
	GetActiveSessionByAccount(accountID string) (*models.ImportSession, error)
	GetSessionByID(id string) (*models.ImportSession, error)
	GetChunks(sessionID string) ([]models.ImportSessionChunk, error)
	UpdatePhase(sessionID string, phase models.SessionPhase) error
	MarkChunkInProgress(sessionID string, number int) error
	// MarkChunkCompletedTx writes the chunk-completed marker inside the
	// chunk's own transaction, so "rows persisted" and "chunk done" commit
	// atomically and a resumed chunk can never duplicate rows.
	MarkChunkCompletedTx(tx *sql.Tx, sessionID string, number int, actualCount int, durationMs int64) error
	MarkChunkFailed(sessionID string, number int, message string) error
	MarkFailed(sessionID string, message string) error
	MarkCancelled(sessionID string) error
	CompleteSession(sessionID string) error
	// ReactivateSession flips a failed or cancelled session back to
	// InProgress and clears its terminal markers, so an explicit resume
	// can continue from the first non-Completed chunk.
	ReactivateSession(sessionID string) error
}

type sessionRepository struct {
	db *sql.DB
}

// NewSessionRepository returns a Postgres-backed SessionRepository.
func NewSessionRepository(db *sql.DB) SessionRepository {
	return &sessionRepository{db: db}
}

// CreateSession inserts the session and its chunk rows in one transaction.
func (r *sessionRepository) CreateSession(session *models.ImportSession, chunks []models.ImportSessionChunk) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO import_sessions (
			id, account_id, file_name, file_path, file_hash,
			state, phase, total_chunks, completed_chunks,
			total_movements, processed_movements, skipped_movements,
			min_date, max_date, started_at, last_error
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		session.ID, session.AccountID, session.FileName, session.FilePath, session.FileHash,
		string(session.State), string(session.Phase), session.TotalChunks, session.CompletedChunks,
		session.TotalMovements, session.ProcessedMovements, session.SkippedMovements,
		session.MinDate, session.MaxDate, session.StartedAt, session.LastError,
	)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert session: %w", err)
	}

	for _, c := range chunks {
		_, err = tx.Exec(`
			INSERT INTO import_session_chunks (
				session_id, chunk_number, start_date, end_date,
				estimated_count, actual_count, state, duration_ms, error
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			c.SessionID, c.Number, c.StartDate, c.EndDate,
			c.EstimatedCount, c.ActualCount, string(c.State), c.DurationMs, c.Error,
		)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert chunk %d: %w", c.Number, err)
		}
	}

	return tx.Commit()
}

const sessionColumns = `
	id, account_id, file_name, file_path, file_hash,
	state, phase, total_chunks, completed_chunks,
	total_movements, processed_movements, skipped_movements,
	min_date, max_date, started_at,
	persist_started_at, snapshots_started_at, finished_at, last_error`

// GetActiveSessionByAccount returns the account's most recent session
// that has not completed successfully, or ErrSessionNotFound. Failed and
// cancelled sessions qualify: resuming after a crash, a failure or a
// cancellation all restart from the first non-Completed chunk.
func (r *sessionRepository) GetActiveSessionByAccount(accountID string) (*models.ImportSession, error) {
	row := r.db.QueryRow(`
		SELECT `+sessionColumns+`
		FROM import_sessions
		WHERE account_id = $1 AND state <> $2
		ORDER BY started_at DESC
		LIMIT 1`,
		accountID, string(models.SessionCompleted))
	return scanSession(row)
}

// GetSessionByID returns the session with the given id, or
// ErrSessionNotFound.
func (r *sessionRepository) GetSessionByID(id string) (*models.ImportSession, error) {
	row := r.db.QueryRow(`
		SELECT `+sessionColumns+`
		FROM import_sessions
		WHERE id = $1`, id)
	return scanSession(row)
}

func scanSession(row *sql.Row) (*models.ImportSession, error) {
	var s models.ImportSession
	var state, phase string
	var persistAt, snapshotsAt, finishedAt sql.NullTime
	err := row.Scan(
		&s.ID, &s.AccountID, &s.FileName, &s.FilePath, &s.FileHash,
		&state, &phase, &s.TotalChunks, &s.CompletedChunks,
		&s.TotalMovements, &s.ProcessedMovements, &s.SkippedMovements,
		&s.MinDate, &s.MaxDate, &s.StartedAt,
		&persistAt, &snapshotsAt, &finishedAt, &s.LastError,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}
	s.State = models.SessionState(state)
	s.Phase = models.SessionPhase(phase)
	if persistAt.Valid {
		s.PersistStartedAt = &persistAt.Time
	}
	if snapshotsAt.Valid {
		s.SnapshotsStartedAt = &snapshotsAt.Time
	}
	if finishedAt.Valid {
		s.FinishedAt = &finishedAt.Time
	}
	return &s, nil
}

// GetChunks returns the session's chunks ordered by chunk number.
func (r *sessionRepository) GetChunks(sessionID string) ([]models.ImportSessionChunk, error) {
	rows, err := r.db.Query(`
		SELECT session_id, chunk_number, start_date, end_date,
		       estimated_count, actual_count, state,
		       started_at, completed_at, duration_ms, error
		FROM import_session_chunks
		WHERE session_id = $1
		ORDER BY chunk_number ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var chunks []models.ImportSessionChunk
	for rows.Next() {
		var c models.ImportSessionChunk
		var state string
		var startedAt, completedAt sql.NullTime
		if err := rows.Scan(&c.SessionID, &c.Number, &c.StartDate, &c.EndDate,
			&c.EstimatedCount, &c.ActualCount, &state,
			&startedAt, &completedAt, &c.DurationMs, &c.Error); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		c.State = models.ChunkState(state)
		if startedAt.Valid {
			c.StartedAt = &startedAt.Time
		}
		if completedAt.Valid {
			c.CompletedAt = &completedAt.Time
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// UpdatePhase advances the session's phase and stamps the matching
// phase-start timestamp.
func (r *sessionRepository) UpdatePhase(sessionID string, phase models.SessionPhase) error {
	column := ""
	switch phase {
	case models.PhasePersistingMovements:
		column = "persist_started_at"
	case models.PhaseCalculatingSnapshots:
		column = "snapshots_started_at"
	}

	query := `UPDATE import_sessions SET phase = $1 WHERE id = $2`
	if column != "" {
		query = fmt.Sprintf(
			`UPDATE import_sessions SET phase = $1, %s = NOW() WHERE id = $2`, column)
	}
	res, err := r.db.Exec(query, string(phase), sessionID)
	if err != nil {
		return fmt.Errorf("update phase: %w", err)
	}
	return requireRow(res)
}

// MarkChunkInProgress transitions a chunk Pending → InProgress.
func (r *sessionRepository) MarkChunkInProgress(sessionID string, number int) error {
	res, err := r.db.Exec(`
		UPDATE import_session_chunks
		SET state = $1, started_at = NOW(), error = ''
		WHERE session_id = $2 AND chunk_number = $3`,
		string(models.ChunkInProgress), sessionID, number)
	if err != nil {
		return fmt.Errorf("mark chunk in progress: %w", err)
	}
	return requireRow(res)
}

func (r *sessionRepository) MarkChunkCompletedTx(tx *sql.Tx, sessionID string, number int, actualCount int, durationMs int64) error {
	res, err := tx.Exec(`
		UPDATE import_session_chunks
		SET state = $1, completed_at = NOW(), actual_count = $2, duration_ms = $3, error = ''
		WHERE session_id = $4 AND chunk_number = $5`,
		string(models.ChunkCompleted), actualCount, durationMs, sessionID, number)
	if err != nil {
		return fmt.Errorf("mark chunk completed: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}

	_, err = tx.Exec(`
		UPDATE import_sessions
		SET completed_chunks = completed_chunks + 1,
		    processed_movements = processed_movements + $1
		WHERE id = $2`,
		actualCount, sessionID)
	if err != nil {
		return fmt.Errorf("bump session counters: %w", err)
	}
	return nil
}

// MarkChunkFailed records the chunk error. The session halts at this
// chunk; later chunks stay Pending.
func (r *sessionRepository) MarkChunkFailed(sessionID string, number int, message string) error {
	res, err := r.db.Exec(`
		UPDATE import_session_chunks
		SET state = $1, error = $2
		WHERE session_id = $3 AND chunk_number = $4`,
		string(models.ChunkFailed), message, sessionID, number)
	if err != nil {
		return fmt.Errorf("mark chunk failed: %w", err)
	}
	return requireRow(res)
}

// MarkFailed terminates the session with an error message.
func (r *sessionRepository) MarkFailed(sessionID string, message string) error {
	res, err := r.db.Exec(`
		UPDATE import_sessions
		SET state = $1, finished_at = NOW(), last_error = $2
		WHERE id = $3`,
		string(models.SessionFailed), message, sessionID)
	if err != nil {
		return fmt.Errorf("mark session failed: %w", err)
	}
	return requireRow(res)
}

// MarkCancelled terminates the session without an error message:
// cancellation is not a failure.
func (r *sessionRepository) MarkCancelled(sessionID string) error {
	res, err := r.db.Exec(`
		UPDATE import_sessions
		SET state = $1, finished_at = NOW(), last_error = ''
		WHERE id = $2`,
		string(models.SessionCancelled), sessionID)
	if err != nil {
		return fmt.Errorf("mark session cancelled: %w", err)
	}
	return requireRow(res)
}

// CompleteSession marks the session terminal-successful.
func (r *sessionRepository) CompleteSession(sessionID string) error {
	res, err := r.db.Exec(`
		UPDATE import_sessions
		SET state = $1, phase = $2, finished_at = NOW(), last_error = ''
		WHERE id = $3`,
		string(models.SessionCompleted), string(models.PhaseCompleted), sessionID)
	if err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	return requireRow(res)
}

// ReactivateSession reopens a failed or cancelled session. Completed
// sessions stay terminal; reactivating one returns ErrSessionNotFound.
func (r *sessionRepository) ReactivateSession(sessionID string) error {
	res, err := r.db.Exec(`
		UPDATE import_sessions
		SET state = $1, finished_at = NULL, last_error = ''
		WHERE id = $2 AND state <> $3`,
		string(models.SessionInProgress), sessionID, string(models.SessionCompleted))
	if err != nil {
		return fmt.Errorf("reactivate session: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}
