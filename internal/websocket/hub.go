package chatws

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"sync"
	"time"

	websocket "github.com/gofiber/contrib/websocket"

	"github.com/AbhigyanRaj/TruCare/internal/chat"
	"github.com/AbhigyanRaj/TruCare/internal/models"
	"github.com/AbhigyanRaj/TruCare/internal/services"
)

// ChatService is the slice of the chat application that connected clients
// drive. Narrowed to an interface so connection tests can stub it.
type ChatService interface {
	SendMessage(ctx context.Context, actorID int64, role string, conversationID string, body string) (*models.ChatMessage, error)
	MarkConversationRead(ctx context.Context, actorID int64, role string, conversationID string) error
	ListMessages(ctx context.Context, actorID int64, role string, conversationID string) ([]models.ChatMessage, error)
}

// Hub tracks connected clients by user id. Message fan-out itself happens
// through the chat broker; the hub only owns connection lifecycle.
type Hub struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
}

// Client is one websocket connection. It holds at most one live message
// subscription per open chat window plus a roster watcher for unread
// badges; all of them are torn down when the connection drops.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	userID  int64
	role    string
	send    chan []byte
	broker  *chat.Broker
	watcher *chat.CountWatcher

	mu      sync.Mutex
	msgSubs map[string]*chat.MessageSubscription
	wg      sync.WaitGroup
}

type frame struct {
	Type           string               `json:"type"`
	ConversationID string               `json:"conversation_id,omitempty"`
	Body           string               `json:"body,omitempty"`
	Messages       []models.ChatMessage `json:"messages,omitempty"`
	Message        *models.ChatMessage  `json:"message,omitempty"`
	Unread         *int                 `json:"unread,omitempty"`
	Error          string               `json:"error,omitempty"`
	Timestamp      string               `json:"timestamp,omitempty"`
}

type inboundFrame struct {
	Type            string   `json:"type"`
	ConversationID  string   `json:"conversation_id"`
	Body            string   `json:"body"`
	ConversationIDs []string `json:"conversation_ids"`
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

func NewClient(hub *Hub, conn *websocket.Conn, userID int64, role string, broker *chat.Broker) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		userID:  userID,
		role:    role,
		send:    make(chan []byte, 32),
		broker:  broker,
		watcher: chat.NewCountWatcher(broker),
		msgSubs: make(map[string]*chat.MessageSubscription),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			key := clientKey(client.userID)
			set, ok := h.clients[key]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[key] = set
			}
			set[client] = struct{}{}
		case client := <-h.unregister:
			key := clientKey(client.userID)
			set, ok := h.clients[key]
			if !ok {
				continue
			}
			if _, exists := set[client]; exists {
				delete(set, client)
				close(client.send)
			}
			if len(set) == 0 {
				delete(h.clients, key)
			}
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
	client.wg.Add(1)
	go client.forwardCounts()
}

func (h *Hub) Unregister(client *Client) {
	client.teardown()
	h.unregister <- client
}

// ReadPump processes inbound frames until the connection closes:
//
//	send  — append a message; acked per message with "sent" or "error"
//	open  — mark read and attach a live snapshot feed for one conversation
//	close — detach the conversation's snapshot feed
//	watch — replace the unread-badge roster (diffed, not resubscribed)
func (c *Client) ReadPump(service ChatService) {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var incoming inboundFrame
		if err := json.Unmarshal(payload, &incoming); err != nil {
			c.writeError("", "invalid frame")
			continue
		}

		switch incoming.Type {
		case "send":
			c.handleSend(service, incoming)
		case "open":
			c.handleOpen(service, incoming.ConversationID)
		case "close":
			c.detachMessages(incoming.ConversationID)
		case "watch":
			c.watcher.SetRoster(incoming.ConversationIDs)
		default:
			c.writeError(incoming.ConversationID, "unsupported frame type")
		}
	}
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

func (c *Client) handleSend(service ChatService, incoming inboundFrame) {
	message, err := service.SendMessage(
		context.Background(),
		c.userID,
		c.role,
		incoming.ConversationID,
		incoming.Body,
	)
	if err != nil {
		c.writeError(incoming.ConversationID, "failed to send message")
		return
	}
	c.writeFrame(frame{
		Type:           "sent",
		ConversationID: message.ConversationID,
		Message:        message,
		Timestamp:      services.FormatChatTimestamp(message.CreatedAt),
	})
}

func (c *Client) handleOpen(service ChatService, conversationID string) {
	if err := service.MarkConversationRead(context.Background(), c.userID, c.role, conversationID); err != nil {
		c.writeError(conversationID, "failed to open conversation")
		return
	}

	sub := c.broker.SubscribeMessages(conversationID)
	c.mu.Lock()
	if previous, ok := c.msgSubs[conversationID]; ok {
		previous.Unsubscribe()
	}
	c.msgSubs[conversationID] = sub
	c.mu.Unlock()

	c.wg.Add(1)
	go c.forwardMessages(conversationID, sub)

	messages, err := service.ListMessages(context.Background(), c.userID, c.role, conversationID)
	if err != nil {
		c.writeError(conversationID, "failed to load messages")
		return
	}
	c.writeFrame(frame{Type: "messages", ConversationID: conversationID, Messages: messages})
}

func (c *Client) detachMessages(conversationID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sub, ok := c.msgSubs[conversationID]; ok {
		sub.Unsubscribe()
		delete(c.msgSubs, conversationID)
	}
}

func (c *Client) forwardMessages(conversationID string, sub *chat.MessageSubscription) {
	defer c.wg.Done()
	for messages := range sub.C {
		c.writeFrame(frame{Type: "messages", ConversationID: conversationID, Messages: messages})
	}
}

func (c *Client) forwardCounts() {
	defer c.wg.Done()
	for counts := range c.watcher.Updates() {
		unread := counts.UnreadFor(c.role)
		c.writeFrame(frame{Type: "unread", ConversationID: counts.ConversationID, Unread: &unread})
	}
}

func (c *Client) teardown() {
	c.mu.Lock()
	for id, sub := range c.msgSubs {
		sub.Unsubscribe()
		delete(c.msgSubs, id)
	}
	c.mu.Unlock()
	// Closing the watcher ends forwardCounts; unsubscribing above ends the
	// forwardMessages goroutines. Both must be joined before the hub closes
	// c.send, or a buffered update could land on a closed channel.
	c.watcher.Close()
	c.wg.Wait()
}

func (c *Client) writeFrame(f frame) {
	encoded, err := json.Marshal(f)
	if err != nil {
		log.Printf("chat hub encode frame: %v", err)
		return
	}
	select {
	case c.send <- encoded:
	default:
		// slow consumer; drop the frame rather than block the broker
	}
}

func (c *Client) writeError(conversationID string, message string) {
	c.writeFrame(frame{
		Type:           "error",
		ConversationID: conversationID,
		Error:          message,
		Timestamp:      services.FormatChatTimestamp(time.Now().UTC()),
	})
}

func clientKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}
