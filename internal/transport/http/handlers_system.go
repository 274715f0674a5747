package httptransport

import (
	"net/http"
	"time"

	"identity-dna/internal/domain"
	id "identity-dna/pkg/domain"
	"identity-dna/pkg/platform/httputil"
)

// HandleHealth handles GET /healthz. The service is "ok" when at least
// one upstream source answers; profile reads survive source outages, so
// degraded is still a 200.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	sourcesUp := true
	if h.sources != nil {
		sourcesUp = h.sources.Ping(r.Context())
		if !sourcesUp {
			status = "degraded"
		}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"status":     status,
		"sourcesUp":  sourcesUp,
		"checkedAt":  time.Now().UTC(),
	})
}

// QuarantineEntryResponse is one blocked source in the list response.
type QuarantineEntryResponse struct {
	Source         id.SourceID `json:"source"`
	SourceType     string      `json:"sourceType,omitempty"`
	Reason         string      `json:"reason"`
	ViolationCount int         `json:"violationCount"`
	Permanent      bool        `json:"permanent"`
	AutoUnblockAt  *time.Time  `json:"autoUnblockAt,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
}

func fromQuarantineEntries(entries []domain.QuarantineEntry) []QuarantineEntryResponse {
	out := make([]QuarantineEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp := QuarantineEntryResponse{
			Source:         e.Source,
			SourceType:     e.SourceType,
			Reason:         e.Reason,
			ViolationCount: e.ViolationCount,
			Permanent:      e.Permanent,
			CreatedAt:      e.CreatedAt,
		}
		if !e.AutoUnblockAt.IsZero() {
			t := e.AutoUnblockAt
			resp.AutoUnblockAt = &t
		}
		out = append(out, resp)
	}
	return out
}

// HandleListQuarantine handles GET /v1/quarantine.
func (h *Handler) HandleListQuarantine(w http.ResponseWriter, r *http.Request) {
	if h.quarantine == nil {
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"entries": []QuarantineEntryResponse{}})
		return
	}

	entries, err := h.quarantine.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"entries": fromQuarantineEntries(entries),
	})
}
