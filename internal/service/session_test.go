package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/guttosm/foliopulse/internal/domain/models"
	"github.com/guttosm/foliopulse/internal/storage"
)

// stubSessionRepo satisfies storage.SessionRepository for service tests.
type stubSessionRepo struct {
	active    *models.ImportSession
	byID      *models.ImportSession
	chunks    []models.ImportSessionChunk
	chunksErr error
}

func (s *stubSessionRepo) CreateSession(*models.ImportSession, []models.ImportSessionChunk) error {
	return nil
}

func (s *stubSessionRepo) GetActiveSessionByAccount(string) (*models.ImportSession, error) {
	if s.active == nil {
		return nil, storage.ErrSessionNotFound
	}
	return s.active, nil
}

func (s *stubSessionRepo) GetSessionByID(string) (*models.ImportSession, error) {
	if s.byID == nil {
		return nil, storage.ErrSessionNotFound
	}
	return s.byID, nil
}

func (s *stubSessionRepo) GetChunks(string) ([]models.ImportSessionChunk, error) {
	return s.chunks, s.chunksErr
}

func (s *stubSessionRepo) UpdatePhase(string, models.SessionPhase) error   { return nil }
func (s *stubSessionRepo) MarkChunkInProgress(string, int) error           { return nil }
func (s *stubSessionRepo) MarkChunkFailed(string, int, string) error       { return nil }
func (s *stubSessionRepo) MarkFailed(string, string) error                 { return nil }
func (s *stubSessionRepo) MarkCancelled(string) error                      { return nil }
func (s *stubSessionRepo) CompleteSession(string) error                    { return nil }
func (s *stubSessionRepo) ReactivateSession(string) error                  { return nil }
func (s *stubSessionRepo) MarkChunkCompletedTx(*sql.Tx, string, int, int, int64) error {
	return nil
}

func TestGetActiveSession(t *testing.T) {
	session := &models.ImportSession{
		ID: "sess-1", AccountID: "acct-1", State: models.SessionInProgress,
		StartedAt: time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC),
	}
	repo := &stubSessionRepo{
		active: session,
		chunks: []models.ImportSessionChunk{{SessionID: "sess-1", Number: 1}},
	}
	svc := NewSessionService(repo)

	got, chunks, err := svc.GetActiveSession(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("GetActiveSession: %v", err)
	}
	if got.ID != "sess-1" || len(chunks) != 1 {
		t.Fatalf("unexpected result: session=%+v chunks=%d", got, len(chunks))
	}
}

func TestGetActiveSession_NotFound(t *testing.T) {
	svc := NewSessionService(&stubSessionRepo{})

	_, _, err := svc.GetActiveSession(context.Background(), "acct-1")
	if !errors.Is(err, storage.ErrSessionNotFound) {
		t.Fatalf("want ErrSessionNotFound, got %v", err)
	}
}

func TestGetSession(t *testing.T) {
	repo := &stubSessionRepo{
		byID:   &models.ImportSession{ID: "sess-2", State: models.SessionCompleted},
		chunks: []models.ImportSessionChunk{{Number: 1}, {Number: 2}},
	}
	svc := NewSessionService(repo)

	got, chunks, err := svc.GetSession(context.Background(), "sess-2")
	if err != nil || got.ID != "sess-2" || len(chunks) != 2 {
		t.Fatalf("unexpected result: session=%+v chunks=%d err=%v", got, len(chunks), err)
	}
}

func TestGetSession_ChunkErrorPropagates(t *testing.T) {
	repo := &stubSessionRepo{
		byID:      &models.ImportSession{ID: "sess-2"},
		chunksErr: errors.New("list chunks failed"),
	}
	svc := NewSessionService(repo)

	_, _, err := svc.GetSession(context.Background(), "sess-2")
	if err == nil {
		t.Fatalf("expected chunk error")
	}
}
