package handlers

import (
	"net/http"
	"strings"

	"fleet-manager/internal/errs"
	"fleet-manager/internal/websocket"
	"fleet-manager/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// EventsHandler serves the live change feed.
type EventsHandler struct {
	hub *websocket.Manager
}

func NewEventsHandler(hub *websocket.Manager) *EventsHandler {
	return &EventsHandler{hub: hub}
}

// Subscribe upgrades the request to a WebSocket that receives change events.
// ?resources=, ?truckIds= and ?actions= accept repeated or comma separated
// values.
func (h *EventsHandler) Subscribe(c *gin.Context) {
	if !c.IsWebsocket() {
		utils.HandleError(c, errs.InvalidArgument("websocket upgrade required"))
		return
	}

	filters := websocket.EventFilters{
		Resources: queryList(c, "resources"),
		TruckIDs:  queryList(c, "truckIds"),
		Actions:   queryList(c, "actions"),
	}

	conn, err := h.hub.Upgrade(c.Writer, c.Request)
	if err != nil {
		// The upgrader has already written the error response.
		logrus.WithError(err).WithField("request_id", c.GetString("request_id")).Warn("websocket upgrade failed")
		c.Abort()
		return
	}

	clientID, err := h.hub.Register(conn, filters)
	if err != nil {
		logrus.WithError(err).Warn("event client rejected")
		conn.Close()
		c.Abort()
		return
	}

	logrus.WithFields(logrus.Fields{
		"client_id":  clientID,
		"request_id": c.GetString("request_id"),
		"user_id":    c.GetString("user_id"),
	}).Info("event client connected")
}

func (h *EventsHandler) Stats(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, utils.MsgFetched, h.hub.Stats())
}

func queryList(c *gin.Context, key string) []string {
	var out []string
	for _, v := range c.QueryArray(key) {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
