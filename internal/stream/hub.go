package stream

import (
	"context"
	"net/http"
	"sync"
	"time"

	"signalcatch/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const pollInterval = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin policy is enforced by the CORS layer in front of us.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans newly ingested signals out to connected dashboard sockets.
// It tails the signals table rather than hooking the ingestion path, so
// the worker process stays decoupled from the API process.
type Hub struct {
	db      *gorm.DB
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	lastID  uint
}

// NewHub creates a hub tailing the given handle.
func NewHub(db *gorm.DB) *Hub {
	return &Hub{
		db:      db,
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// Run polls for new signals until ctx is done, broadcasting each batch.
func (h *Hub) Run(ctx context.Context) {
	// Start from the current head; clients only get live data.
	var head models.Signal
	if err := h.db.Order("id DESC").First(&head).Error; err == nil {
		h.lastID = head.ID
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-ticker.C:
			h.broadcastNew()
		}
	}
}

func (h *Hub) broadcastNew() {
	var signals []models.Signal
	if err := h.db.Where("id > ?", h.lastID).Order("id").Limit(100).Find(&signals).Error; err != nil {
		log.Errorf("signal feed poll failed: %v", err)
		return
	}
	if len(signals) == 0 {
		return
	}
	h.lastID = signals[len(signals)-1].ID

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteJSON(signals); err != nil {
			log.Debugf("dropping slow feed client: %v", err)
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
}

// Handler upgrades the request and registers the socket with the hub.
func (h *Hub) Handler(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warnf("websocket upgrade failed: %v", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	// Reader goroutine notices the close and unregisters.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.mu.Lock()
				delete(h.clients, conn)
				h.mu.Unlock()
				conn.Close()
				return
			}
		}
	}()
}
