// Package importer runs the chunked, resumable import pipeline: validate
// rows, plan date windows, then per chunk persist movements and compute
// snapshots inside one transaction, tracking progress in a durable
// session record.
package importer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/guttosm/foliopulse/internal/chunk"
	"github.com/guttosm/foliopulse/internal/domain/dto"
	"github.com/guttosm/foliopulse/internal/domain/models"
	"github.com/guttosm/foliopulse/internal/logger"
	"github.com/guttosm/foliopulse/internal/snapshot"
	"github.com/guttosm/foliopulse/internal/storage"
)

// Options tunes one import invocation.
type Options struct {
	FileName   string
	FilePath   string
	FileHash   string
	Broker     string
	WindowDays int // 0 means chunk.DefaultWindowDays
}

// Importer owns the pipeline. Chunks are processed strictly sequentially:
// the matcher's running state is not partitionable across chunks, and the
// one-transaction-per-chunk boundary depends on the order.
type Importer struct {
	db        *sql.DB
	movements storage.MovementRepository
	sessions  storage.SessionRepository
	snapshots storage.SnapshotRepository

	// onComplete is called after a successful import so downstream caches
	// (latest-snapshot reads) can invalidate. May be nil.
	onComplete func(accountID string)
}

// New wires an Importer over the shared database handle and repositories.
func New(db *sql.DB, movements storage.MovementRepository, sessions storage.SessionRepository,
	snapshots storage.SnapshotRepository, onComplete func(accountID string)) *Importer {
	return &Importer{
		db:         db,
		movements:  movements,
		sessions:   sessions,
		snapshots:  snapshots,
		onComplete: onComplete,
	}
}

// Run imports a parsed movement set for one account. It always returns a
// result: on failure the result carries the error list and the session
// id so the caller can resume; it never panics outward.
func (i *Importer) Run(ctx context.Context, accountID string, set models.MovementSet, opts Options) (result dto.ImportResult) {
	start := time.Now()
	result.Total = set.Len()

	defer func() {
		result.ElapsedMs = time.Since(start).Milliseconds()
		if r := recover(); r != nil {
			logger.L().Error().Str("account_id", accountID).Interface("panic", r).Msg("import panicked")
			if result.SessionID != "" {
				_ = i.sessions.MarkFailed(result.SessionID, "internal error")
			}
			result.Success = false
			result.Errors = append(result.Errors, dto.RowError{
				Message: "internal error during import",
				Kind:    dto.RowErrorUnknown,
			})
		}
	}()

	clean, rowErrors := Validate(accountID, set)
	result.Errors = rowErrors
	result.Skipped = len(rowErrors)

	minDate, maxDate, ok := clean.DateBounds()
	if !ok {
		// Nothing valid to import: a no-op, not a failure.
		result.Success = true
		result.Warnings = append(result.Warnings, "no valid movements to import")
		return result
	}

	windows, err := chunk.Plan(minDate, maxDate, clean.Histogram(), opts.WindowDays)
	if err != nil {
		result.Errors = append(result.Errors, dto.RowError{Message: err.Error(), Kind: dto.RowErrorUnknown})
		return result
	}

	// One unfinished session per account: a second Run would make the
	// most-recent-session resume lookup ambiguous.
	existing, err := i.sessions.GetActiveSessionByAccount(accountID)
	if err == nil {
		result.SessionID = existing.ID
		result.Errors = append(result.Errors, dto.RowError{
			Message: fmt.Sprintf("account %s has unfinished import session %s; resume it instead", accountID, existing.ID),
			Kind:    dto.RowErrorUnknown,
		})
		return result
	}
	if !errors.Is(err, storage.ErrSessionNotFound) {
		result.Errors = append(result.Errors, dto.RowError{Message: err.Error(), Kind: dto.RowErrorUnknown})
		return result
	}

	session := &models.ImportSession{
		ID:               uuid.NewString(),
		AccountID:        accountID,
		FileName:         opts.FileName,
		FilePath:         opts.FilePath,
		FileHash:         opts.FileHash,
		State:            models.SessionInProgress,
		Phase:            models.PhaseValidating,
		TotalChunks:      len(windows),
		TotalMovements:   set.Len(),
		SkippedMovements: len(rowErrors),
		MinDate:          minDate,
		MaxDate:          maxDate,
		StartedAt:        time.Now().UTC(),
	}
	chunks := make([]models.ImportSessionChunk, 0, len(windows))
	for _, w := range windows {
		chunks = append(chunks, models.ImportSessionChunk{
			SessionID:      session.ID,
			Number:         w.Number,
			StartDate:      w.Start,
			EndDate:        w.End,
			EstimatedCount: w.EstimatedCount,
			State:          models.ChunkPending,
		})
	}
	if err := i.sessions.CreateSession(session, chunks); err != nil {
		result.Errors = append(result.Errors, dto.RowError{Message: err.Error(), Kind: dto.RowErrorUnknown})
		return result
	}
	result.SessionID = session.ID

	logger.L().Info().
		Str("session_id", session.ID).
		Str("account_id", accountID).
		Int("chunks", len(chunks)).
		Int("movements", clean.Len()).
		Msg("import session created")

	calc := snapshot.NewBatchCalculator(accountID, opts.Broker)
	i.runChunks(ctx, session.ID, accountID, chunks, clean, calc, &result)
	return result
}

// Resume continues an account's unfinished session from the first
// non-Completed chunk, reopening it first when it ended in Failed or
// Cancelled. Completed chunks are never reprocessed; the full original
// movement set must be supplied again so pending windows can be refilled.
func (i *Importer) Resume(ctx context.Context, accountID string, set models.MovementSet, opts Options) (result dto.ImportResult) {
	start := time.Now()
	result.Total = set.Len()
	defer func() {
		result.ElapsedMs = time.Since(start).Milliseconds()
		if r := recover(); r != nil {
			logger.L().Error().Str("account_id", accountID).Interface("panic", r).Msg("resume panicked")
			if result.SessionID != "" {
				_ = i.sessions.MarkFailed(result.SessionID, "internal error")
			}
			result.Success = false
		}
	}()

	session, err := i.sessions.GetActiveSessionByAccount(accountID)
	if err != nil {
		result.Errors = append(result.Errors, dto.RowError{
			Message: fmt.Sprintf("no resumable session: %v", err),
			Kind:    dto.RowErrorUnknown,
		})
		return result
	}
	result.SessionID = session.ID

	// A failed or cancelled session is reopened so the durable record
	// reflects the restart and its last error does not outlive it.
	if session.State.Terminal() {
		if err := i.sessions.ReactivateSession(session.ID); err != nil {
			result.Errors = append(result.Errors, dto.RowError{Message: err.Error(), Kind: dto.RowErrorUnknown})
			return result
		}
		logger.L().Info().
			Str("session_id", session.ID).
			Str("previous_state", string(session.State)).
			Msg("session reactivated for resume")
		session.State = models.SessionInProgress
		session.LastError = ""
	}

	chunks, err := i.sessions.GetChunks(session.ID)
	if err != nil {
		result.Errors = append(result.Errors, dto.RowError{Message: err.Error(), Kind: dto.RowErrorUnknown})
		return result
	}

	clean, rowErrors := Validate(accountID, set)
	result.Errors = rowErrors
	result.Skipped = len(rowErrors)

	// Rebuild the running position/cash state of all completed chunks
	// from the ledger before touching the first pending chunk.
	calc := snapshot.NewBatchCalculator(accountID, opts.Broker)
	firstPending := firstNonCompleted(chunks)
	if firstPending != nil {
		persisted, err := i.movements.ListMovementsByAccount(accountID, firstPending.StartDate)
		if err != nil {
			result.Errors = append(result.Errors, dto.RowError{Message: err.Error(), Kind: dto.RowErrorUnknown})
			return result
		}
		if err := calc.Warm(ctx, persisted); err != nil {
			result.Errors = append(result.Errors, dto.RowError{Message: err.Error(), Kind: dto.RowErrorUnknown})
			return result
		}
		logger.L().Info().
			Str("session_id", session.ID).
			Int("resume_from_chunk", firstPending.Number).
			Int("replayed_movements", persisted.Len()).
			Msg("resuming import session")
	}

	i.runChunks(ctx, session.ID, accountID, chunks, clean, calc, &result)
	return result
}

func firstNonCompleted(chunks []models.ImportSessionChunk) *models.ImportSessionChunk {
	for idx := range chunks {
		if chunks[idx].State != models.ChunkCompleted {
			return &chunks[idx]
		}
	}
	return nil
}

// runChunks drives the sequential chunk loop shared by Run and Resume.
// Cancellation is polled only at chunk boundaries so an interrupted
// import always leaves whole chunks either committed or untouched.
func (i *Importer) runChunks(ctx context.Context, sessionID, accountID string,
	chunks []models.ImportSessionChunk, set models.MovementSet,
	calc *snapshot.BatchCalculator, result *dto.ImportResult) {

	for _, ch := range chunks {
		if ch.State == models.ChunkCompleted {
			continue
		}

		if err := ctx.Err(); err != nil {
			i.cancel(sessionID, result)
			return
		}

		chunkStart := time.Now()
		if err := i.sessions.MarkChunkInProgress(sessionID, ch.Number); err != nil {
			i.fail(sessionID, ch.Number, err, result)
			return
		}

		window := set.FilterWindow(ch.StartDate, ch.EndDate)
		processed, err := i.processChunk(ctx, sessionID, ch, window, calc, chunkStart)
		if err != nil {
			i.fail(sessionID, ch.Number, err, result)
			return
		}
		result.Processed += processed

		logger.L().Info().
			Str("session_id", sessionID).
			Int("chunk", ch.Number).
			Int("movements", processed).
			Dur("elapsed", time.Since(chunkStart)).
			Msg("chunk completed")

		// Drop chunk-local data and force a collection pass before the
		// next window: peak memory is traded for throughput here.
		window = models.MovementSet{}
		runtime.GC()
	}

	if err := ctx.Err(); err != nil {
		i.cancel(sessionID, result)
		return
	}

	if err := i.sessions.CompleteSession(sessionID); err != nil {
		i.fail(sessionID, 0, err, result)
		return
	}
	result.Warnings = append(result.Warnings, calc.Warnings()...)
	result.Success = true

	if i.onComplete != nil {
		i.onComplete(accountID)
	}
	logger.L().Info().Str("session_id", sessionID).Int("processed", result.Processed).Msg("import session completed")
}

// processChunk holds the resume-safety boundary: movement rows, snapshot
// rows and the chunk-completed marker commit in one transaction. A crash
// anywhere before commit leaves zero rows visible for the chunk, so
// reprocessing it whole cannot duplicate data.
func (i *Importer) processChunk(ctx context.Context, sessionID string, ch models.ImportSessionChunk,
	window models.MovementSet, calc *snapshot.BatchCalculator, chunkStart time.Time) (int, error) {

	tx, err := i.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("chunk %d: begin: %w", ch.Number, err)
	}

	if err := i.sessions.UpdatePhase(sessionID, models.PhasePersistingMovements); err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	inserted, err := i.movements.InsertMovementsTx(tx, window)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("chunk %d: persist: %w", ch.Number, err)
	}

	if err := i.sessions.UpdatePhase(sessionID, models.PhaseCalculatingSnapshots); err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	rows, err := calc.Process(ctx, window, ch.EndDate)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("chunk %d: snapshots: %w", ch.Number, err)
	}
	if err := i.snapshots.UpsertSnapshotsTx(tx, rows); err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("chunk %d: persist snapshots: %w", ch.Number, err)
	}

	duration := time.Since(chunkStart).Milliseconds()
	if err := i.sessions.MarkChunkCompletedTx(tx, sessionID, ch.Number, inserted, duration); err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("chunk %d: mark completed: %w", ch.Number, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("chunk %d: commit: %w", ch.Number, err)
	}
	return inserted, nil
}

func (i *Importer) cancel(sessionID string, result *dto.ImportResult) {
	if err := i.sessions.MarkCancelled(sessionID); err != nil {
		logger.L().Error().Str("session_id", sessionID).Err(err).Msg("mark cancelled failed")
	}
	result.Cancelled = true
	result.Success = false
	logger.L().Info().Str("session_id", sessionID).Msg("import session cancelled")
}

func (i *Importer) fail(sessionID string, chunkNumber int, cause error, result *dto.ImportResult) {
	logger.L().Error().Str("session_id", sessionID).Int("chunk", chunkNumber).Err(cause).Msg("import failed")
	if chunkNumber > 0 {
		if err := i.sessions.MarkChunkFailed(sessionID, chunkNumber, cause.Error()); err != nil {
			logger.L().Error().Str("session_id", sessionID).Err(err).Msg("mark chunk failed errored")
		}
	}
	if err := i.sessions.MarkFailed(sessionID, cause.Error()); err != nil {
		logger.L().Error().Str("session_id", sessionID).Err(err).Msg("mark session failed errored")
	}
	result.Success = false
	result.Errors = append(result.Errors, dto.RowError{Message: cause.Error(), Kind: dto.RowErrorUnknown})
}
