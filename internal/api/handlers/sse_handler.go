package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/zatekoja/salonbooking/backend/internal/domain/providers"
	"github.com/zatekoja/salonbooking/backend/internal/infrastructure/observability"
)

const sseHeartbeatInterval = 30 * time.Second

// SSEHandler streams live salon updates (new reviews, rating changes) over
// Server-Sent Events
type SSEHandler struct {
	eventBus  providers.EventBus
	heartbeat time.Duration

	mu      sync.Mutex
	clients map[string]int // channel -> connected clients
}

// NewSSEHandler creates a new SSE handler
func NewSSEHandler(eventBus providers.EventBus) *SSEHandler {
	return &SSEHandler{
		eventBus:  eventBus,
		heartbeat: sseHeartbeatInterval,
		clients:   make(map[string]int),
	}
}

// StreamSalonUpdates handles GET /api/salons/{id}/events
func (h *SSEHandler) StreamSalonUpdates(w http.ResponseWriter, r *http.Request) {
	salonID := r.PathValue("id")
	if salonID == "" {
		respondWithError(w, http.StatusBadRequest, "salon ID is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	logger := observability.LoggerFromContext(r.Context()).With().Str("salon_id", salonID).Logger()
	channel := providers.GetSalonChannel(salonID)

	events, err := h.eventBus.Subscribe(r.Context(), channel)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to subscribe to salon channel")
		respondWithError(w, http.StatusServiceUnavailable, "live updates are unavailable")
		return
	}

	h.register(channel, 1)
	defer h.register(channel, -1)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	h.sendEvent(w, "connected", map[string]interface{}{
		"salon_id":  salonID,
		"timestamp": time.Now().UTC(),
	})
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			logger.Debug().Msg("Client disconnected from salon stream")
			return
		case <-ticker.C:
			h.sendEvent(w, "heartbeat", map[string]interface{}{"timestamp": time.Now().UTC()})
			flusher.Flush()
		case event, ok := <-events:
			if !ok {
				return
			}
			if event == nil || event.SalonID != salonID {
				continue
			}
			h.sendEvent(w, string(event.EventType), event)
			flusher.Flush()
		}
	}
}

func (h *SSEHandler) register(channel string, delta int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[channel] += delta
	if h.clients[channel] <= 0 {
		delete(h.clients, channel)
	}
}

func (h *SSEHandler) sendEvent(w http.ResponseWriter, eventType string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "data: %s\n\n", payload)
}

// ClientCount returns the number of connected stream clients
func (h *SSEHandler) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	count := 0
	for _, n := range h.clients {
		count += n
	}
	return count
}
