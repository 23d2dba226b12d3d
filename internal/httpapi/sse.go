package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const heartbeatInterval = 25 * time.Second

// handleEvents handles GET /events: a Server-Sent Events stream of the
// changes concerning the caller.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	if h.feed == nil {
		jsonError(w, "event feed unavailable", http.StatusServiceUnavailable)
		return
	}
	me := actor(r)

	rc := http.NewResponseController(w)
	// The server's write timeout would cut long-lived streams.
	_ = rc.SetWriteDeadline(time.Time{})

	stream, err := h.feed.Subscribe(r.Context(), me.ID)
	if err != nil {
		h.log.Warn("subscribe to event feed failed", zap.String("userId", me.ID), zap.Error(err))
		jsonError(w, "event feed unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		return
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		case e, ok := <-stream:
			if !ok {
				return
			}
			data, err := json.Marshal(e)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, data); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
