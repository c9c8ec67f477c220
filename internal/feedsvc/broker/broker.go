package broker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/avvvet/tap-services/internal/comm"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

type FeedStore interface {
	Save(ctx context.Context, item comm.FeedItem) error
}

type Deliverer interface {
	DeliverScan(item comm.FeedItem) int
}

type Broker struct {
	Conn    *nats.Conn
	store   FeedStore
	sockets Deliverer
	ttl     time.Duration
}

// NewBroker wires scan notices to the feed. store may be nil.
func NewBroker(conn *nats.Conn, store FeedStore, sockets Deliverer, ttl time.Duration) *Broker {
	return &Broker{
		Conn:    conn,
		store:   store,
		sockets: sockets,
		ttl:     ttl,
	}
}

// Subscribe uses a plain subscription: every feed instance holds its own
// sockets and needs every notice.
func (b *Broker) Subscribe(topic string) (*nats.Subscription, error) {
	sub, err := b.Conn.Subscribe(topic, b.handleMessage)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (b *Broker) handleMessage(msgNats *nats.Msg) {
	b.HandleScan(msgNats.Data)
}

// HandleScan stores the notice in the feed history and pushes it to the
// owner's open dashboards. Notices of unassigned chips are dropped.
func (b *Broker) HandleScan(data []byte) {
	notice := comm.ScanNotice{}
	if err := json.Unmarshal(data, &notice); err != nil {
		log.Errorf("Error malformed scan notice %s", err)
		return
	}
	if notice.OwnerID == "" {
		return
	}

	item := notice.FeedItem(b.ttl)

	if b.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := b.store.Save(ctx, item)
		cancel()
		if err != nil {
			log.Errorf("Error [FeedStore.Save] %s", err)
		}
	}

	n := b.sockets.DeliverScan(item)
	log.Debugf("scan %s delivered to %d sockets", notice.ScanID, n)
}
