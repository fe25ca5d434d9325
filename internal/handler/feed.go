package handler

import (
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stanrainier/stan-finance-tracker/internal/feed"
	"github.com/stanrainier/stan-finance-tracker/internal/models"
)

var feedCollections = map[string]bool{
	models.CollectionAccounts:     true,
	models.CollectionTransactions: true,
	models.CollectionPayables:     true,
	models.CollectionReceivables:  true,
}

// FeedHandler streams the current user's changes as Server-Sent Events.
type FeedHandler struct {
	Hub       *feed.Hub
	Heartbeat time.Duration
}

func NewFeedHandler(hub *feed.Hub) *FeedHandler {
	return &FeedHandler{Hub: hub, Heartbeat: 25 * time.Second}
}

// Stream serves GET /api/feed?collections=accounts,payables. Each event is
// sent as "change" with the JSON-encoded feed.Event; a "ping" keeps idle
// connections open through proxies.
func (h *FeedHandler) Stream(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var collections []string
	for _, name := range strings.Split(c.Query("collections"), ",") {
		name = strings.TrimSpace(name)
		if feedCollections[name] {
			collections = append(collections, name)
		}
	}

	sub, unsubscribe := h.Hub.Subscribe(user.UID, collections...)
	defer unsubscribe()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ticker := time.NewTicker(h.Heartbeat)
	defer ticker.Stop()

	ctx := c.Request.Context()
	c.SSEvent("ready", gin.H{"uid": user.UID})
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-sub.C:
			if !ok {
				return false
			}
			c.SSEvent("change", ev)
			return true
		case <-ticker.C:
			c.SSEvent("ping", time.Now().UnixMilli())
			return true
		}
	})
}
