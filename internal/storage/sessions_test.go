package storage

import (
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/guttosm/foliopulse/internal/domain/models"
)

type dummyErr struct{}

func (dummyErr) Error() string { return "dummy" }

func newMockSessionRepo(t *testing.T) (*sessionRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	repo := &sessionRepository{db: db}
	cleanup := func() { _ = db.Close() }
	return repo, mock, cleanup
}

func sampleSession() *models.ImportSession {
	return &models.ImportSession{
		ID:             "sess-1",
		AccountID:      "acct-1",
		FileName:       "movements.json",
		FilePath:       "/data/movements.json",
		FileHash:       "abc123",
		State:          models.SessionInProgress,
		Phase:          models.PhaseValidating,
		TotalChunks:    2,
		TotalMovements: 10,
		MinDate:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		MaxDate:        time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC),
		StartedAt:      time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestCreateSession_SQLMock(t *testing.T) {
	repo, mock, done := newMockSessionRepo(t)
	defer done()

	s := sampleSession()
	chunks := []models.ImportSessionChunk{
		{SessionID: s.ID, Number: 1, StartDate: s.MinDate, EndDate: s.MinDate.AddDate(0, 0, 6), EstimatedCount: 6, State: models.ChunkPending},
		{SessionID: s.ID, Number: 2, StartDate: s.MinDate.AddDate(0, 0, 7), EndDate: s.MaxDate, EstimatedCount: 4, State: models.ChunkPending},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO import_sessions").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO import_session_chunks").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO import_session_chunks").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.CreateSession(s, chunks); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateSession_RollbackOnChunkError(t *testing.T) {
	repo, mock, done := newMockSessionRepo(t)
	defer done()

	s := sampleSession()
	chunks := []models.ImportSessionChunk{{SessionID: s.ID, Number: 1}}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO import_sessions").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO import_session_chunks").
		WillReturnError(dummyErr{})
	mock.ExpectRollback()

	if err := repo.CreateSession(s, chunks); err == nil {
		t.Fatalf("expected error on chunk insert")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func sessionRows(s *models.ImportSession) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "account_id", "file_name", "file_path", "file_hash",
		"state", "phase", "total_chunks", "completed_chunks",
		"total_movements", "processed_movements", "skipped_movements",
		"min_date", "max_date", "started_at",
		"persist_started_at", "snapshots_started_at", "finished_at", "last_error",
	}).AddRow(
		s.ID, s.AccountID, s.FileName, s.FilePath, s.FileHash,
		string(s.State), string(s.Phase), s.TotalChunks, s.CompletedChunks,
		s.TotalMovements, s.ProcessedMovements, s.SkippedMovements,
		s.MinDate, s.MaxDate, s.StartedAt,
		nil, nil, nil, s.LastError,
	)
}

func TestGetActiveSessionByAccount_SQLMock(t *testing.T) {
	repo, mock, done := newMockSessionRepo(t)
	defer done()

	s := sampleSession()
	mock.ExpectQuery("SELECT (.+) FROM import_sessions").
		WithArgs("acct-1", string(models.SessionCompleted)).
		WillReturnRows(sessionRows(s))

	out, err := repo.GetActiveSessionByAccount("acct-1")
	if err != nil {
		t.Fatalf("GetActiveSessionByAccount: %v", err)
	}
	if out.ID != s.ID || out.State != models.SessionInProgress {
		t.Fatalf("unexpected session: %+v", out)
	}
	if out.PersistStartedAt != nil || out.FinishedAt != nil {
		t.Fatalf("expected nil phase timestamps, got %+v", out)
	}
}

func TestGetActiveSessionByAccount_NotFound(t *testing.T) {
	repo, mock, done := newMockSessionRepo(t)
	defer done()

	mock.ExpectQuery("SELECT (.+) FROM import_sessions").
		WithArgs("missing", string(models.SessionCompleted)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetActiveSessionByAccount("missing")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("want ErrSessionNotFound, got %v", err)
	}
}

func TestGetActiveSessionByAccount_FindsFailedSession(t *testing.T) {
	repo, mock, done := newMockSessionRepo(t)
	defer done()

	s := sampleSession()
	s.State = models.SessionFailed
	s.LastError = "copy failed"
	mock.ExpectQuery(regexp.QuoteMeta(`state <> $2`)).
		WithArgs("acct-1", string(models.SessionCompleted)).
		WillReturnRows(sessionRows(s))

	out, err := repo.GetActiveSessionByAccount("acct-1")
	if err != nil {
		t.Fatalf("GetActiveSessionByAccount: %v", err)
	}
	if out.State != models.SessionFailed || out.LastError != "copy failed" {
		t.Fatalf("failed session must be resumable, got %+v", out)
	}
}

func TestReactivateSession_SQLMock(t *testing.T) {
	repo, mock, done := newMockSessionRepo(t)
	defer done()

	mock.ExpectExec(regexp.QuoteMeta(
		`UPDATE import_sessions SET state = $1, finished_at = NULL, last_error = '' WHERE id = $2 AND state <> $3`)).
		WithArgs(string(models.SessionInProgress), "sess-1", string(models.SessionCompleted)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.ReactivateSession("sess-1"); err != nil {
		t.Fatalf("ReactivateSession: %v", err)
	}
}

func TestReactivateSession_CompletedStaysTerminal(t *testing.T) {
	repo, mock, done := newMockSessionRepo(t)
	defer done()

	mock.ExpectExec("UPDATE import_sessions").
		WithArgs(string(models.SessionInProgress), "sess-done", string(models.SessionCompleted)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.ReactivateSession("sess-done")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("want ErrSessionNotFound for a completed session, got %v", err)
	}
}

func TestGetSessionByID_SQLMock(t *testing.T) {
	repo, mock, done := newMockSessionRepo(t)
	defer done()

	s := sampleSession()
	mock.ExpectQuery("SELECT (.+) FROM import_sessions").
		WithArgs("sess-1").
		WillReturnRows(sessionRows(s))

	out, err := repo.GetSessionByID("sess-1")
	if err != nil || out.AccountID != "acct-1" {
		t.Fatalf("GetSessionByID: out=%+v err=%v", out, err)
	}
}

func TestGetChunks_SQLMock(t *testing.T) {
	repo, mock, done := newMockSessionRepo(t)
	defer done()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	completedAt := time.Date(2024, 2, 1, 9, 5, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"session_id", "chunk_number", "start_date", "end_date",
		"estimated_count", "actual_count", "state",
		"started_at", "completed_at", "duration_ms", "error",
	}).
		AddRow("sess-1", 1, start, start.AddDate(0, 0, 6), 6, 6, string(models.ChunkCompleted), start, completedAt, int64(120), "").
		AddRow("sess-1", 2, start.AddDate(0, 0, 7), start.AddDate(0, 0, 13), 4, 0, string(models.ChunkPending), nil, nil, int64(0), "")

	mock.ExpectQuery("SELECT (.+) FROM import_session_chunks").
		WithArgs("sess-1").
		WillReturnRows(rows)

	chunks, err := repo.GetChunks("sess-1")
	if err != nil {
		t.Fatalf("GetChunks: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("want 2 chunks, got %d", len(chunks))
	}
	if chunks[0].State != models.ChunkCompleted || chunks[0].CompletedAt == nil {
		t.Fatalf("chunk 1 not completed: %+v", chunks[0])
	}
	if chunks[1].State != models.ChunkPending || chunks[1].StartedAt != nil {
		t.Fatalf("chunk 2 not pending: %+v", chunks[1])
	}
}

func TestUpdatePhase_StampsTimestampColumn(t *testing.T) {
	cases := []struct {
		name  string
		phase models.SessionPhase
		query string
	}{
		{"persisting stamps persist_started_at", models.PhasePersistingMovements,
			"UPDATE import_sessions SET phase = \\$1, persist_started_at = NOW\\(\\) WHERE id = \\$2"},
		{"calculating stamps snapshots_started_at", models.PhaseCalculatingSnapshots,
			"UPDATE import_sessions SET phase = \\$1, snapshots_started_at = NOW\\(\\) WHERE id = \\$2"},
		{"validating stamps nothing", models.PhaseValidating,
			"UPDATE import_sessions SET phase = \\$1 WHERE id = \\$2"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo, mock, done := newMockSessionRepo(t)
			defer done()

			mock.ExpectExec(tc.query).
				WithArgs(string(tc.phase), "sess-1").
				WillReturnResult(sqlmock.NewResult(0, 1))

			if err := repo.UpdatePhase("sess-1", tc.phase); err != nil {
				t.Fatalf("UpdatePhase: %v", err)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("unmet expectations: %v", err)
			}
		})
	}
}

func TestMarkChunkCompletedTx_AtomicWithCounters(t *testing.T) {
	repo, mock, done := newMockSessionRepo(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE import_session_chunks").
		WithArgs(string(models.ChunkCompleted), 42, int64(500), "sess-1", 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE import_sessions").
		WithArgs(42, "sess-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := repo.db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := repo.MarkChunkCompletedTx(tx, "sess-1", 3, 42, 500); err != nil {
		t.Fatalf("MarkChunkCompletedTx: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMarkChunkCompletedTx_UnknownChunk(t *testing.T) {
	repo, mock, done := newMockSessionRepo(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE import_session_chunks").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	tx, err := repo.db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	err = repo.MarkChunkCompletedTx(tx, "sess-1", 99, 1, 1)
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("want ErrSessionNotFound, got %v", err)
	}
	_ = tx.Rollback()
}

func TestSessionTerminalStates_SQLMock(t *testing.T) {
	cases := []struct {
		name string
		call func(r *sessionRepository) error
		args []driver.Value
	}{
		{
			name: "MarkFailed",
			call: func(r *sessionRepository) error { return r.MarkFailed("sess-1", "boom") },
			args: []driver.Value{string(models.SessionFailed), "boom", "sess-1"},
		},
		{
			name: "MarkCancelled",
			call: func(r *sessionRepository) error { return r.MarkCancelled("sess-1") },
			args: []driver.Value{string(models.SessionCancelled), "sess-1"},
		},
		{
			name: "CompleteSession",
			call: func(r *sessionRepository) error { return r.CompleteSession("sess-1") },
			args: []driver.Value{string(models.SessionCompleted), string(models.PhaseCompleted), "sess-1"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo, mock, done := newMockSessionRepo(t)
			defer done()

			mock.ExpectExec("UPDATE import_sessions").
				WithArgs(tc.args...).
				WillReturnResult(sqlmock.NewResult(0, 1))

			if err := tc.call(repo); err != nil {
				t.Fatalf("%s: %v", tc.name, err)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("unmet expectations: %v", err)
			}
		})
	}
}

func TestMarkChunkFailed_SQLMock(t *testing.T) {
	repo, mock, done := newMockSessionRepo(t)
	defer done()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE import_session_chunks")).
		WithArgs(string(models.ChunkFailed), "copy failed", "sess-1", 2).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.MarkChunkFailed("sess-1", 2, "copy failed"); err != nil {
		t.Fatalf("MarkChunkFailed: %v", err)
	}
}

func TestNewSessionRepository_Construct(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer func() { _ = db.Close() }()
	if NewSessionRepository(db) == nil {
		t.Fatalf("expected non-nil repository")
	}
}
