package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/smartcommerce/notification-service/realtime"
	"github.com/smartcommerce/notification-service/utils"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // tighten per deployment
	},
}

type WSController struct {
	Hub *realtime.Hub
}

func NewWSController(hub *realtime.Hub) *WSController {
	return &WSController{Hub: hub}
}

// Client frames on the live channel
type wsClientFrame struct {
	Action string `json:"action"` // join_group | leave_group
	Group  string `json:"group"`
}

// Connect -> the live notification channel. The connection auto-joins the
// caller's user group and role groups, then may request other groups subject
// to the hub's authorization rules. Denied joins get no reply at all.
func (wc *WSController) Connect(c *gin.Context) {
	userID := currentUserID(c)
	if userID == 0 {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	roles := currentRoles(c)

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	wc.Hub.Register(ws, userID, roles)
	defer wc.Hub.Unregister(ws)

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			break
		}

		var frame wsClientFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			continue
		}

		switch frame.Action {
		case "join_group":
			if err := wc.Hub.JoinGroup(ws, frame.Group); err != nil {
				if errors.Is(err, realtime.ErrGroupDenied) {
					// Security boundary: refuse silently
					utils.InfoLogger.Printf("group join denied: user=%d group=%s", userID, frame.Group)
				}
				continue
			}
			wc.Hub.Send(ws, realtime.Message{
				Event: realtime.EventGroupJoined,
				Data:  gin.H{"group": frame.Group},
			})
		case "leave_group":
			wc.Hub.LeaveGroup(ws, frame.Group)
			wc.Hub.Send(ws, realtime.Message{
				Event: realtime.EventGroupLeft,
				Data:  gin.H{"group": frame.Group},
			})
		}
	}
}
