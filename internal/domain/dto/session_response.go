package dto

import (
	"time"

	"github.com/guttosm/foliopulse/internal/domain/models"
)

// ChunkResponse is the API shape of one import chunk.
type ChunkResponse struct {
	Number         int        `json:"number"`
	StartDate      string     `json:"start_date" example:"2024-01-01"`
	EndDate        string     `json:"end_date" example:"2024-01-07"`
	EstimatedCount int        `json:"estimated_count"`
	ActualCount    int        `json:"actual_count"`
	State          string     `json:"state" example:"COMPLETED"`
	DurationMs     int64      `json:"duration_ms"`
	Error          string     `json:"error,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// SessionResponse is the API shape of an import session.
//
// swagger:model SessionResponse
type SessionResponse struct {
	ID                 string          `json:"id"`
	AccountID          string          `json:"account_id"`
	FileName           string          `json:"file_name,omitempty"`
	State              string          `json:"state" example:"IN_PROGRESS"`
	Phase              string          `json:"phase" example:"PERSISTING_MOVEMENTS"`
	TotalChunks        int             `json:"total_chunks"`
	CompletedChunks    int             `json:"completed_chunks"`
	TotalMovements     int             `json:"total_movements"`
	ProcessedMovements int             `json:"processed_movements"`
	SkippedMovements   int             `json:"skipped_movements"`
	MinDate            string          `json:"min_date" example:"2024-01-01"`
	MaxDate            string          `json:"max_date" example:"2024-03-15"`
	StartedAt          time.Time       `json:"started_at"`
	FinishedAt         *time.Time      `json:"finished_at,omitempty"`
	LastError          string          `json:"last_error,omitempty"`
	Chunks             []ChunkResponse `json:"chunks,omitempty"`
}

// NewSessionResponse maps a domain session (and optionally its chunks)
// into the API shape.
func NewSessionResponse(s *models.ImportSession, chunks []models.ImportSessionChunk) SessionResponse {
	resp := SessionResponse{
		ID:                 s.ID,
		AccountID:          s.AccountID,
		FileName:           s.FileName,
		State:              string(s.State),
		Phase:              string(s.Phase),
		TotalChunks:        s.TotalChunks,
		CompletedChunks:    s.CompletedChunks,
		TotalMovements:     s.TotalMovements,
		ProcessedMovements: s.ProcessedMovements,
		SkippedMovements:   s.SkippedMovements,
		MinDate:            s.MinDate.Format("2006-01-02"),
		MaxDate:            s.MaxDate.Format("2006-01-02"),
		StartedAt:          s.StartedAt,
		FinishedAt:         s.FinishedAt,
		LastError:          s.LastError,
	}
	for _, c := range chunks {
		resp.Chunks = append(resp.Chunks, ChunkResponse{
			Number:         c.Number,
			StartDate:      c.StartDate.Format("2006-01-02"),
			EndDate:        c.EndDate.Format("2006-01-02"),
			EstimatedCount: c.EstimatedCount,
			ActualCount:    c.ActualCount,
			State:          string(c.State),
			DurationMs:     c.DurationMs,
			Error:          c.Error,
			CompletedAt:    c.CompletedAt,
		})
	}
	return resp
}
