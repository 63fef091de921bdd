package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kbukum/melos/errors"
	"github.com/kbukum/melos/logger"
)

// KeepAliveInterval is how often an idle stream sends a comment line. It
// stays below common proxy idle timeouts.
var KeepAliveInterval = 30 * time.Second

// EventConnected is the first frame of every stream.
const EventConnected = "connected"

// ConnectedEvent is the payload of the connected frame.
type ConnectedEvent struct {
	ClientID string `json:"client_id"`
	RunID    string `json:"run_id"`
}

// ClientPattern returns the glob matching every client watching runID.
func ClientPattern(runID string) string {
	return "run:" + runID + ":*"
}

// ClientID returns a fresh client ID watching runID.
func ClientID(runID string) string {
	return "run:" + runID + ":" + uuid.NewString()
}

// ValidRunID reports whether runID can be embedded in a client ID without
// changing the meaning of ClientPattern.
func ValidRunID(runID string) bool {
	return runID != "" && !strings.ContainsAny(runID, `*?[]\:/`)
}

// Handler serves GET /runs/:run/events. Each request becomes a client of hub
// watching the run named by the path.
func Handler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		runID := c.Param("run")
		if !ValidRunID(runID) {
			appErr := errors.InvalidInput("run", fmt.Sprintf("%q is not a valid run id", runID))
			c.AbortWithStatusJSON(appErr.HTTPStatus(), appErr.ToResponse())
			return
		}
		ServeSSE(hub, c.Writer, c.Request, runID, ClientID(runID))
	}
}

// ServeSSE streams frames for one client until the request ends or the hub
// closes the client.
func ServeSSE(hub *Hub, w http.ResponseWriter, r *http.Request, runID, clientID string) {
	log := logger.Get(logger.ComponentSSE).WithFields(logger.Fields("client_id", clientID, logger.FieldRunID, runID))

	flusher, ok := w.(http.Flusher)
	if !ok {
		log.Error("streaming not supported by response writer")
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	// Long-lived stream: lift the server's write deadline.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		log.Debug("could not clear write deadline", logger.ErrorFields("serve", err))
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	client := NewClient(clientID)
	if !hub.Register(client) {
		http.Error(w, "event hub stopped", http.StatusServiceUnavailable)
		return
	}
	defer hub.Unregister(client)

	hello, _ := json.Marshal(ConnectedEvent{ClientID: clientID, RunID: runID})
	writeFrame(w, Frame{Event: EventConnected, Data: hello})
	flusher.Flush()
	log.Debug("client connected", logger.Fields("remote_addr", r.RemoteAddr))

	keepAlive := time.NewTicker(KeepAliveInterval)
	defer keepAlive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			log.Debug("client disconnected")
			return
		case f, ok := <-client.Frames():
			if !ok {
				return
			}
			writeFrame(w, f)
			flusher.Flush()
		case <-keepAlive.C:
			_, _ = fmt.Fprintf(w, ": keepalive %d\n\n", time.Now().Unix())
			flusher.Flush()
		}
	}
}

func writeFrame(w http.ResponseWriter, f Frame) {
	if f.Event != "" {
		_, _ = fmt.Fprintf(w, "event: %s\n", f.Event)
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", f.Data)
}
