package messaging

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/sudo-init-do/tradelink/internal/utils"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxInboundSize = 512
)

type Handler struct {
	svc      *Service
	hub      *Hub
	upgrader websocket.Upgrader
	log      logrus.FieldLogger
}

// NewHandler builds the conversation endpoints. origins restricts
// websocket upgrades; empty or "*" allows any origin.
func NewHandler(svc *Service, hub *Hub, origins []string, log logrus.FieldLogger) *Handler {
	return &Handler{
		svc: svc,
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(origins),
		},
		log: log,
	}
}

func originChecker(origins []string) func(*http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || len(allowed) == 0 || allowed[origin]
	}
}

func (h *Handler) fail(c echo.Context, err error) error {
	code := StatusCode(err)
	if code == http.StatusInternalServerError {
		h.log.WithError(err).WithField("path", c.Path()).Error("conversation request failed")
		return c.JSON(code, echo.Map{"error": "internal error"})
	}
	return c.JSON(code, echo.Map{"error": err.Error()})
}

func userID(c echo.Context) string {
	uid, _ := c.Get("user_id").(string)
	return uid
}

// GET /conversations
func (h *Handler) ListConversations(c echo.Context) error {
	convs, err := h.svc.ListConversations(c.Request().Context(), userID(c))
	if err != nil {
		return h.fail(c, err)
	}
	if convs == nil {
		convs = []Conversation{}
	}
	return c.JSON(http.StatusOK, convs)
}

// GET /conversations/:id
func (h *Handler) GetConversation(c echo.Context) error {
	conv, err := h.svc.GetConversation(c.Request().Context(), userID(c), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, conv)
}

// GET /conversations/:id/messages?since=RFC3339&limit=N
func (h *Handler) ListMessages(c echo.Context) error {
	var since *time.Time
	if raw := c.QueryParam("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "since must be an RFC3339 timestamp"})
		}
		since = &t
	}
	limit := parseLimit(c.QueryParam("limit"), 100, 500)
	msgs, err := h.svc.ListMessages(c.Request().Context(), userID(c), c.Param("id"), since, limit)
	if err != nil {
		return h.fail(c, err)
	}
	if msgs == nil {
		msgs = []Message{}
	}
	return c.JSON(http.StatusOK, msgs)
}

type sendMessageRequest struct {
	Kind          string `json:"kind" validate:"omitempty,oneof=text image file"`
	Content       string `json:"content" validate:"max=4000"`
	AttachmentURL string `json:"attachment_url" validate:"omitempty,url"`
}

// POST /conversations/:id/messages
func (h *Handler) SendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := utils.BindAndValidate(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": utils.ErrorMessage(err)})
	}
	m, err := h.svc.SendMessage(c.Request().Context(), userID(c), c.Param("id"), req.Kind, req.Content, req.AttachmentURL)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, m)
}

// GET /conversations/:id/unread
func (h *Handler) UnreadCount(c echo.Context) error {
	n, err := h.svc.UnreadCount(c.Request().Context(), userID(c), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"unread": n})
}

// POST /conversations/:id/messages/:message_id/read
func (h *Handler) MarkRead(c echo.Context) error {
	m, err := h.svc.MarkRead(c.Request().Context(), userID(c), c.Param("id"), c.Param("message_id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

// GET /conversations/:id/ws
func (h *Handler) Connect(c echo.Context) error {
	uid := userID(c)
	conv, err := h.svc.GetConversation(c.Request().Context(), uid, c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.log.WithError(err).WithField("conversation_id", conv.ID).Warn("websocket upgrade failed")
		return nil
	}

	client := &Client{Conn: conn, Send: make(chan []byte, 64), Room: conv.ID, UserID: uid}
	h.hub.Register(client)

	// the request context ends when this handler returns
	ctx := context.WithoutCancel(c.Request().Context())
	h.svc.Presence(ctx, conv.ID, uid, EventPresenceJoin)

	go h.writePump(client)
	go h.readPump(ctx, client)
	return nil
}

func (h *Handler) writePump(c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only keeps the connection alive; messages are sent over HTTP.
func (h *Handler) readPump(ctx context.Context, c *Client) {
	defer func() {
		h.hub.Unregister(c)
		c.Conn.Close()
		h.svc.Presence(ctx, c.Room, c.UserID, EventPresenceLeave)
	}()
	c.Conn.SetReadLimit(maxInboundSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.WithError(err).WithField("conversation_id", c.Room).Debug("websocket closed")
			}
			return
		}
	}
}

func parseLimit(raw string, def, ceiling int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if n > ceiling {
		return ceiling
	}
	return n
}
