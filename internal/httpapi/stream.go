package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Stream sends every session and journal state as Server-Sent Events,
// starting with the current snapshot of each.
func (a *API) Stream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sessions := a.sessions.Subscribe(ctx)
	journals := a.journal.Subscribe(ctx)

	_, _ = io.WriteString(w, ": stream started\n\n")
	writeEvent(w, "session", a.sessions.State())
	writeEvent(w, "journal", a.journal.State())
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-sessions:
			if !ok {
				return
			}
			writeEvent(w, "session", s)
		case j, ok := <-journals:
			if !ok {
				return
			}
			writeEvent(w, "journal", j)
		}
		flusher.Flush()
	}
}

func writeEvent(w io.Writer, event string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
}
