package handlers

import (
	"log/slog"
	"net/http"

	"github.com/iudanet/livedesk/internal/server/realtime"
	"github.com/iudanet/livedesk/internal/validation"
)

// RealtimeHandler открывает websocket подписки на коллекции тенанта
type RealtimeHandler struct {
	responder
	hub *realtime.Hub
}

// NewRealtimeHandler создает handler подписок
func NewRealtimeHandler(logger *slog.Logger, hub *realtime.Hub) *RealtimeHandler {
	return &RealtimeHandler{
		responder: responder{logger: logger},
		hub:       hub,
	}
}

// Serve обрабатывает GET /api/v1/realtime?collection=
// Тенант подписки берется из токена, а не из запроса.
func (h *RealtimeHandler) Serve(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFromContext(r.Context())
	if !ok {
		h.sendError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	if name := r.URL.Query().Get("collection"); name != "" {
		if _, err := validation.ValidateCollection(name); err != nil {
			h.sendError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	h.hub.ServeWS(w, r, id.TenantID, id.UserID)
}
