package handler

import (
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/catalog_sync/internal/sse"
	"github.com/GTDGit/catalog_sync/internal/utils"
)

const sseKeepAlive = 30 * time.Second

// SSEHandler streams pipeline events to admin clients.
type SSEHandler struct {
	hub    *sse.Hub
	secret string
	role   string
}

func NewSSEHandler(hub *sse.Hub, secret, role string) *SSEHandler {
	return &SSEHandler{hub: hub, secret: secret, role: role}
}

// Stream handles GET /v1/admin/events?token=<jwt>[&catalog=1,2].
// EventSource cannot set headers, so the token travels in the query. A
// Last-Event-ID header resumes from the hub history.
func (h *SSEHandler) Stream(c *gin.Context) {
	claims, err := utils.ValidateJWT(c.Query("token"), h.secret)
	if err != nil {
		utils.Error(c, http.StatusUnauthorized, utils.ErrInvalidToken.Error(), "Missing, invalid or expired token")
		return
	}
	if h.role != "" && !slices.Contains(claims.Roles, h.role) {
		utils.Error(c, http.StatusForbidden, "FORBIDDEN", "Token lacks the "+h.role+" role")
		return
	}
	catalogs, err := parseCatalogFilter(c.Query("catalog"))
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "INVALID_CATALOG_FILTER", err.Error())
		return
	}
	lastID, _ := strconv.ParseUint(c.GetHeader("Last-Event-ID"), 10, 64)

	clientID := claims.Subject + "/" + uuid.NewString()[:8]
	client := h.hub.Register(clientID, catalogs, lastID)
	defer h.hub.Unregister(clientID)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	fmt.Fprintf(c.Writer, "retry: 5000\n\n")
	c.Writer.Flush()

	log.Info().Str("client_id", clientID).Uint64("last_event_id", lastID).Msg("Admin event stream started")

	keepAlive := time.NewTicker(sseKeepAlive)
	defer keepAlive.Stop()
	c.Stream(func(w io.Writer) bool {
		select {
		case msg, ok := <-client.Events:
			if !ok {
				return false
			}
			fmt.Fprintf(w, "id: %d\nevent: pipeline\ndata: %s\n\n", msg.ID, msg.Data)
			return true
		case <-keepAlive.C:
			fmt.Fprint(w, ": ping\n\n")
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func parseCatalogFilter(raw string) (map[int]bool, error) {
	if raw == "" {
		return nil, nil
	}
	out := map[int]bool{}
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || id < 1 {
			return nil, fmt.Errorf("catalog filter must be a comma-separated list of ids, got %q", part)
		}
		out[id] = true
	}
	return out, nil
}
