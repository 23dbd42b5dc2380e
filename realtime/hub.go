package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/smartcommerce/notification-service/utils"
)

// Event types
const (
	EventNewNotification    = "new_notification"
	EventUnreadCountChanged = "unread_count_changed"
	EventGroupJoined        = "group_joined"
	EventGroupLeft          = "group_left"
)

// RoleAdmin gates admin_* groups.
const RoleAdmin = "admin"

// ErrGroupDenied -> join refused by the authorization rules. Callers log it;
// the requester is never told why.
var ErrGroupDenied = errors.New("group join denied")

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// OrderAuthorizer answers whether a user owns an order. The order service
// owns this; a standalone deployment denies everything.
type OrderAuthorizer interface {
	OwnsOrder(userID uint, orderID string) bool
}

// DenyAllOrders is the standalone default for the order-ownership check.
type DenyAllOrders struct{}

func (DenyAllOrders) OwnsOrder(uint, string) bool { return false }

type client struct {
	userID uint
	roles  []string
	groups map[string]bool
}

// Hub tracks which connection belongs to which groups and pushes live events
// to them. Publishing goes through the backplane so every instance's
// connections are reached, then comes back in via deliverLocal.
type Hub struct {
	clients   map[*websocket.Conn]*client
	groups    map[string]map[*websocket.Conn]bool
	mutex     sync.Mutex
	backplane Backplane
	orders    OrderAuthorizer
}

func NewHub(backplane Backplane, orders OrderAuthorizer) *Hub {
	if orders == nil {
		orders = DenyAllOrders{}
	}
	h := &Hub{
		clients:   make(map[*websocket.Conn]*client),
		groups:    make(map[string]map[*websocket.Conn]bool),
		backplane: backplane,
		orders:    orders,
	}
	backplane.Subscribe(h.deliverLocal)
	return h
}

// UserGroup -> canonical group name for a user's own connections
func UserGroup(userID uint) string {
	return fmt.Sprintf("user_%d", userID)
}

// Register adds a connection. Every authenticated connection auto-joins its
// own user group and one role group per role it holds.
func (h *Hub) Register(conn *websocket.Conn, userID uint, roles []string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	c := &client{userID: userID, roles: roles, groups: make(map[string]bool)}
	h.clients[conn] = c

	h.joinLocked(conn, c, UserGroup(userID))
	for _, role := range roles {
		h.joinLocked(conn, c, "role_"+role)
	}
}

// Unregister drops a connection from every group and closes it.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	c, ok := h.clients[conn]
	if !ok {
		return
	}
	for group := range c.groups {
		h.leaveLocked(conn, group)
	}
	delete(h.clients, conn)
	conn.Close()
}

// JoinGroup applies the prefix rules and adds the connection on success:
//
//	user_{id}  - only the matching user
//	role_{name} - only holders of that role
//	order_{id} - only the order's owner (delegated check)
//	admin_*    - only the admin role
//	anything else is denied
func (h *Hub) JoinGroup(conn *websocket.Conn, group string) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	c, ok := h.clients[conn]
	if !ok {
		return ErrGroupDenied
	}
	if !h.authorized(c, group) {
		return ErrGroupDenied
	}
	h.joinLocked(conn, c, group)
	return nil
}

func (h *Hub) LeaveGroup(conn *websocket.Conn, group string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	c, ok := h.clients[conn]
	if !ok {
		return
	}
	delete(c.groups, group)
	h.leaveLocked(conn, group)
}

func (h *Hub) authorized(c *client, group string) bool {
	switch {
	case strings.HasPrefix(group, "user_"):
		id, err := strconv.ParseUint(strings.TrimPrefix(group, "user_"), 10, 32)
		return err == nil && uint(id) == c.userID
	case strings.HasPrefix(group, "role_"):
		return hasRole(c.roles, strings.TrimPrefix(group, "role_"))
	case strings.HasPrefix(group, "order_"):
		return h.orders.OwnsOrder(c.userID, strings.TrimPrefix(group, "order_"))
	case strings.HasPrefix(group, "admin_"):
		return hasRole(c.roles, RoleAdmin)
	}
	return false
}

func hasRole(roles []string, want string) bool {
	for _, r := range roles {
		if r == want {
			return true
		}
	}
	return false
}

func (h *Hub) joinLocked(conn *websocket.Conn, c *client, group string) {
	c.groups[group] = true
	if h.groups[group] == nil {
		h.groups[group] = make(map[*websocket.Conn]bool)
	}
	h.groups[group][conn] = true
}

func (h *Hub) leaveLocked(conn *websocket.Conn, group string) {
	if members, ok := h.groups[group]; ok {
		delete(members, conn)
		if len(members) == 0 {
			delete(h.groups, group)
		}
	}
}

// InGroup reports whether the connection currently belongs to the group.
func (h *Hub) InGroup(conn *websocket.Conn, group string) bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	c, ok := h.clients[conn]
	return ok && c.groups[group]
}

// Publish broadcasts an event to a group cluster-wide.
func (h *Hub) Publish(ctx context.Context, group, event string, data interface{}) {
	env := Envelope{Group: group, Event: event, Data: data}
	if err := h.backplane.Publish(ctx, env); err != nil {
		utils.ErrorLogger.Printf("backplane publish failed for group %s: %v", group, err)
		// Local connections still get the event
		h.deliverLocal(env)
	}
}

// BroadcastNotification pushes a freshly created notification to its owner's
// live connections.
func (h *Hub) BroadcastNotification(ctx context.Context, userID uint, notification interface{}) {
	h.Publish(ctx, UserGroup(userID), EventNewNotification, notification)
}

// BroadcastUnreadCount pushes the recomputed unread count after a read-state
// change.
func (h *Hub) BroadcastUnreadCount(ctx context.Context, userID uint, count int64) {
	h.Publish(ctx, UserGroup(userID), EventUnreadCountChanged, map[string]interface{}{
		"user_id": userID,
		"count":   count,
	})
}

// Send writes one message to a single connection. All writes to a
// connection go through the hub mutex; gorilla connections do not allow
// concurrent writers.
func (h *Hub) Send(conn *websocket.Conn, msg Message) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	data, err := json.Marshal(msg)
	if err != nil {
		utils.ErrorLogger.Printf("Error marshaling message: %v", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		utils.ErrorLogger.Printf("Error sending message to client: %v", err)
	}
}

// deliverLocal writes a broadcast to the local members of its group.
func (h *Hub) deliverLocal(env Envelope) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	members, ok := h.groups[env.Group]
	if !ok || len(members) == 0 {
		return
	}

	data, err := json.Marshal(Message{Event: env.Event, Data: env.Data})
	if err != nil {
		utils.ErrorLogger.Printf("Error marshaling message: %v", err)
		return
	}

	for conn := range members {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			utils.ErrorLogger.Printf("Error sending message to client: %v", err)
			continue
		}
	}
}
