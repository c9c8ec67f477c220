package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/avvvet/tap-services/internal/comm"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const writeWait = 10 * time.Second

// client serializes writes; gorilla connections allow one concurrent writer.
type client struct {
	conn    *websocket.Conn
	ownerID string
	mu      sync.Mutex
	seen    map[string]bool // scan ids already sent in the history frame
}

func (c *client) write(m *comm.WSMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeLocked(m)
}

func (c *client) writeLocked(m *comm.WSMessage) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(m)
}

// writeScan skips scans the client already received with its history.
func (c *client) writeScan(scanID string, m *comm.WSMessage) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.seen[scanID] {
		return false, nil
	}
	return true, c.writeLocked(m)
}

type Ws struct {
	connMap sync.Map // socketId -> *client
}

func NewWs() *Ws {
	return &Ws{}
}

// Open registers the socket and sends the history frame before any live
// scan can reach it. history runs after registration, so a scan is either
// part of the history or delivered afterwards, never both.
func (s *Ws) Open(socketId, ownerID string, conn *websocket.Conn, history func() []comm.FeedItem) error {
	c := &client{conn: conn, ownerID: ownerID, seen: map[string]bool{}}
	c.mu.Lock()
	defer c.mu.Unlock()

	s.connMap.Store(socketId, c)

	items := history()
	if items == nil {
		items = []comm.FeedItem{}
	}
	for _, it := range items {
		c.seen[it.ScanID] = true
	}

	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return c.writeLocked(&comm.WSMessage{Type: "history", Data: data, SocketId: socketId})
}

func (s *Ws) RemoveConnection(socketId string) {
	s.connMap.Delete(socketId)
}

// Send writes to a single socket.
func (s *Ws) Send(socketId string, m *comm.WSMessage) error {
	v, ok := s.connMap.Load(socketId)
	if !ok {
		return nil
	}
	return v.(*client).write(m)
}

// DeliverScan sends item as a scan frame to the owner's sockets, leaving out
// sockets that already have it in their history. It returns how many got it.
func (s *Ws) DeliverScan(item comm.FeedItem) int {
	data, err := json.Marshal(item)
	if err != nil {
		log.Errorf("Error %s", err)
		return 0
	}
	m := &comm.WSMessage{Type: "scan", Data: data}

	sent := 0
	s.connMap.Range(func(key, value any) bool {
		c := value.(*client)
		if c.ownerID != item.OwnerID {
			return true
		}
		ok, err := c.writeScan(item.ScanID, m)
		if err != nil {
			log.Warnf("write to socket %s: %s", key, err)
			return true
		}
		if ok {
			sent++
		}
		return true
	})
	return sent
}

func (s *Ws) Count() int {
	n := 0
	s.connMap.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
