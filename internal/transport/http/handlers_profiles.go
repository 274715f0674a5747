package httptransport

import (
	"net/http"
	"strconv"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"

	"identity-dna/internal/domain"
	id "identity-dna/pkg/domain"
	dErrors "identity-dna/pkg/domain-errors"
	"identity-dna/pkg/platform/httputil"
)

// confirmTokenHeader carries the erasure confirmation token on the
// delete request.
const confirmTokenHeader = "X-Confirm-Token"

// CreateProfileRequest is the DTO for POST /v1/profiles.
type CreateProfileRequest struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

func (r CreateProfileRequest) validate() error {
	if !govalidator.StringLength(r.UserID, "1", "100") {
		return dErrors.New(dErrors.CodeBadRequest, "userId is required")
	}
	if !govalidator.StringLength(r.Username, "1", "100") {
		return dErrors.New(dErrors.CodeBadRequest, "username is required")
	}
	return nil
}

// ChangeRecordResponse is one audit row in the history response.
type ChangeRecordResponse struct {
	Field     string            `json:"field"`
	OldValue  string            `json:"oldValue"`
	NewValue  string            `json:"newValue"`
	Source    string            `json:"source"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	ChangedAt time.Time         `json:"changedAt"`
}

func fromChangeRecords(records []domain.ChangeRecord) []ChangeRecordResponse {
	out := make([]ChangeRecordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, ChangeRecordResponse{
			Field:     rec.Field,
			OldValue:  rec.OldValue,
			NewValue:  rec.NewValue,
			Source:    rec.Source,
			Metadata:  rec.Metadata,
			ChangedAt: rec.ChangedAt,
		})
	}
	return out
}

func pathUserID(r *http.Request) (id.UserID, error) {
	raw := chi.URLParam(r, "userID")
	if raw == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "user id is required")
	}
	return id.UserID(raw), nil
}

// HandleCreateProfile handles POST /v1/profiles.
func (h *Handler) HandleCreateProfile(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[CreateProfileRequest](w, r, h.logger)
	if !ok {
		return
	}
	if err := req.validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	profile, err := h.profiles.Create(r.Context(), id.UserID(req.UserID), req.Username)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "profile created", "user_id", req.UserID)
	httputil.WriteJSON(w, http.StatusCreated, profile)
}

// HandleGetProfile handles GET /v1/profiles/{userID}. Reads go through
// the versioned cache; a degraded backend serves the last known state
// rather than an error.
func (h *Handler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUserID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	cached, err := h.reads.Sync(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cached)
}

// HandleGetVersion handles GET /v1/profiles/{userID}/version. It is the
// cheap probe downstream caches use before deciding on a full fetch.
func (h *Handler) HandleGetVersion(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUserID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	version, err := h.profiles.CurrentVersion(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int64{"version": version})
}

// HandleGetHistory handles GET /v1/profiles/{userID}/history.
func (h *Handler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUserID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	records, err := h.profiles.History(r.Context(), userID, limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"userId":  userID,
		"changes": fromChangeRecords(records),
	})
}

// HandleGetLedger handles GET /v1/profiles/{userID}/ledger. The ledger
// is the authoritative XP total; the profile copy may lag one sync.
func (h *Handler) HandleGetLedger(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUserID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.ledger.Read(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"userId":           userID,
		"xpTotal":          result.XPTotal,
		"streakMultiplier": result.StreakMultiplier,
		"currentStreak":    result.CurrentStreak,
	})
}

// HandleRequestErasure handles POST /v1/profiles/{userID}/erasure. The
// returned token must accompany the DELETE within its validity window.
func (h *Handler) HandleRequestErasure(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUserID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	token, err := h.profiles.RequestErasure(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "erasure requested", "user_id", userID)
	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"confirmToken": token})
}

// HandleDeleteProfile handles DELETE /v1/profiles/{userID}.
func (h *Handler) HandleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUserID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	token := r.Header.Get(confirmTokenHeader)
	if token == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "confirmation token header is required"))
		return
	}

	if err := h.profiles.Delete(r.Context(), userID, token); err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.reads.Invalidate(userID)
	h.logger.InfoContext(r.Context(), "profile erased", "user_id", userID)
	w.WriteHeader(http.StatusNoContent)
}
