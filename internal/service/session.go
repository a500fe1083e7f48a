package service

import (
	"context"

	"github.com/guttosm/foliopulse/internal/domain/models"
	"github.com/guttosm/foliopulse/internal/storage"
)

// SessionService exposes import-session queries to the API layer.
type SessionService interface {
	GetActiveSession(ctx context.Context, accountID string) (*models.ImportSession, []models.ImportSessionChunk, error)
	GetSession(ctx context.Context, id string) (*models.ImportSession, []models.ImportSessionChunk, error)
}

type sessionService struct {
	repo storage.SessionRepository
}

// NewSessionService returns a SessionService over the given repository.
func NewSessionService(repo storage.SessionRepository) SessionService {
	return &sessionService{repo: repo}
}

func (s *sessionService) GetActiveSession(_ context.Context, accountID string) (*models.ImportSession, []models.ImportSessionChunk, error) {
	session, err := s.repo.GetActiveSessionByAccount(accountID)
	if err != nil {
		return nil, nil, err
	}
	chunks, err := s.repo.GetChunks(session.ID)
	if err != nil {
		return nil, nil, err
	}
	return session, chunks, nil
}

func (s *sessionService) GetSession(_ context.Context, id string) (*models.ImportSession, []models.ImportSessionChunk, error) {
	session, err := s.repo.GetSessionByID(id)
	if err != nil {
		return nil, nil, err
	}
	chunks, err := s.repo.GetChunks(session.ID)
	if err != nil {
		return nil, nil, err
	}
	return session, chunks, nil
}
