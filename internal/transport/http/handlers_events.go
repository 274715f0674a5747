package httptransport

import (
	"net/http"
	"time"

	"github.com/asaskevich/govalidator"

	"identity-dna/internal/domain"
	id "identity-dna/pkg/domain"
	dErrors "identity-dna/pkg/domain-errors"
	"identity-dna/pkg/platform/httputil"
)

// EventRequest is the intake DTO for POST /v1/events.
type EventRequest struct {
	ID        string              `json:"id"`
	Type      string              `json:"type"`
	UserID    string              `json:"userId"`
	Source    string              `json:"source"`
	Timestamp time.Time           `json:"timestamp"`
	Payload   domain.EventPayload `json:"payload"`
}

func (r EventRequest) validate() error {
	if !govalidator.StringLength(r.Type, "1", "64") {
		return dErrors.New(dErrors.CodeBadRequest, "event type is required")
	}
	if !govalidator.StringLength(r.UserID, "1", "100") {
		return dErrors.New(dErrors.CodeBadRequest, "userId is required")
	}
	if r.Source != "" && !govalidator.StringLength(r.Source, "1", "64") {
		return dErrors.New(dErrors.CodeBadRequest, "source must be at most 64 characters")
	}
	if r.Payload.Amount < 0 {
		return dErrors.New(dErrors.CodeBadRequest, "amount must not be negative")
	}
	return nil
}

// HandleEvent handles POST /v1/events. Accepted events are queued for
// the next sync batch; 202 does not mean the profile has changed yet.
func (h *Handler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[EventRequest](w, r, h.logger)
	if !ok {
		return
	}
	if err := req.validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	// Unknown types are dropped with a warning record rather than
	// failing the caller; producers on old schemas keep working.
	if !domain.EventType(req.Type).Known() {
		h.logger.WarnContext(r.Context(), "unknown event type dropped at intake",
			"type", req.Type,
			"user_id", req.UserID,
		)
		httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "dropped"})
		return
	}

	source := id.SourceID("")
	if req.Source != "" {
		parsed, err := id.ParseSourceID(req.Source)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid source id"))
			return
		}
		source = parsed
	}

	event := domain.Event{
		ID:        req.ID,
		Type:      domain.EventType(req.Type),
		UserID:    id.UserID(req.UserID),
		Source:    source,
		Payload:   req.Payload,
		Timestamp: req.Timestamp,
	}

	if err := h.events.HandleEvent(event); err != nil {
		h.logger.WarnContext(r.Context(), "event rejected at intake",
			"type", req.Type,
			"user_id", req.UserID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}
