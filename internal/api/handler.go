package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/foliopulse/internal/domain/dto"
	"github.com/guttosm/foliopulse/internal/domain/models"
	"github.com/guttosm/foliopulse/internal/service"
	"github.com/guttosm/foliopulse/internal/storage"
)

// Handler provides HTTP handlers for the session and snapshot query
// surface.
//
// Responsibilities:
//   - Validate incoming HTTP query parameters
//   - Delegate to the service layer
//   - Translate domain results into response DTOs with proper status codes
type Handler struct {
	sessions  service.SessionService
	snapshots service.SnapshotService
}

// NewHandler constructs a Handler over the query services.
func NewHandler(sessions service.SessionService, snapshots service.SnapshotService) *Handler {
	return &Handler{sessions: sessions, snapshots: snapshots}
}

// GetActiveSession handles GET /api/v1/sessions/active requests.
//
// GetActiveSession godoc
// @Summary      Get the active import session for an account
// @Description  Returns the latest unfinished session (with chunk progress) used to resume an interrupted import
// @Tags         sessions
// @Produce      json
// @Param        account_id  query     string  true  "Broker account id" example(acct-123)
// @Success      200         {object}  dto.SessionResponse  "Success"
// @Failure      400         {object}  dto.ErrorResponse    "Bad Request"
// @Failure      404         {object}  dto.ErrorResponse    "Not Found"
// @Failure      500         {object}  dto.ErrorResponse    "Internal Error"
// @Router       /api/v1/sessions/active [get]
func (h *Handler) GetActiveSession(c *gin.Context) {
	accountID := strings.TrimSpace(c.Query("account_id"))
	if accountID == "" {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("account_id is required", nil))
		return
	}

	session, chunks, err := h.sessions.GetActiveSession(c.Request.Context(), accountID)
	if errors.Is(err, storage.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse("no active session for account", nil))
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("failed to fetch session", err))
		return
	}

	c.JSON(http.StatusOK, dto.NewSessionResponse(session, chunks))
}

// GetSession handles GET /api/v1/sessions/:id requests.
//
// GetSession godoc
// @Summary      Get an import session by id
// @Description  Returns one session with its per-chunk progress
// @Tags         sessions
// @Produce      json
// @Param        id   path      string  true  "Session id (UUID)"
// @Success      200  {object}  dto.SessionResponse  "Success"
// @Failure      404  {object}  dto.ErrorResponse    "Not Found"
// @Failure      500  {object}  dto.ErrorResponse    "Internal Error"
// @Router       /api/v1/sessions/{id} [get]
func (h *Handler) GetSession(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	session, chunks, err := h.sessions.GetSession(c.Request.Context(), id)
	if errors.Is(err, storage.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse("session not found", nil))
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("failed to fetch session", err))
		return
	}

	c.JSON(http.StatusOK, dto.NewSessionResponse(session, chunks))
}

// ListSnapshots handles GET /api/v1/snapshots requests.
//
// ListSnapshots godoc
// @Summary      List snapshots for one entity
// @Description  Returns date-ordered snapshots for an entity, optionally bounded by from/to; latest=true returns only the most recent row
// @Tags         snapshots
// @Produce      json
// @Param        scope       query     string  true   "Snapshot scope" Enums(TICKER_CURRENCY, BROKER_ACCOUNT, BROKER)
// @Param        entity_key  query     string  true   "Entity key" example(AAPL:USD)
// @Param        from        query     string  false  "Start date (YYYY-MM-DD)"
// @Param        to          query     string  false  "End date (YYYY-MM-DD)"
// @Param        latest      query     bool    false  "Return only the latest snapshot"
// @Success      200         {array}   dto.SnapshotResponse  "Success"
// @Failure      400         {object}  dto.ErrorResponse     "Bad Request"
// @Failure      404         {object}  dto.ErrorResponse     "Not Found"
// @Failure      500         {object}  dto.ErrorResponse     "Internal Error"
// @Router       /api/v1/snapshots [get]
func (h *Handler) ListSnapshots(c *gin.Context) {
	scope := models.SnapshotScope(strings.TrimSpace(c.Query("scope")))
	switch scope {
	case models.ScopeTickerCurrency, models.ScopeBrokerAccount, models.ScopeBroker:
	default:
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid scope", nil))
		return
	}

	entityKey := strings.TrimSpace(c.Query("entity_key"))
	if entityKey == "" {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("entity_key is required", nil))
		return
	}

	if strings.EqualFold(c.Query("latest"), "true") {
		snap, err := h.snapshots.GetLatest(c.Request.Context(), scope, entityKey)
		if errors.Is(err, storage.ErrSnapshotNotFound) {
			c.JSON(http.StatusNotFound, dto.NewErrorResponse("no snapshots for entity", nil))
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("failed to fetch snapshot", err))
			return
		}
		c.JSON(http.StatusOK, []dto.SnapshotResponse{dto.NewSnapshotResponse(*snap)})
		return
	}

	from, err := parseDateParam(c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid from date, expected YYYY-MM-DD", err))
		return
	}
	to, err := parseDateParam(c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid to date, expected YYYY-MM-DD", err))
		return
	}

	snaps, err := h.snapshots.List(c.Request.Context(), scope, entityKey, from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("failed to fetch snapshots", err))
		return
	}
	if len(snaps) == 0 {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse("no snapshots for entity", nil))
		return
	}

	out := make([]dto.SnapshotResponse, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, dto.NewSnapshotResponse(s))
	}
	c.JSON(http.StatusOK, out)
}

func parseDateParam(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
