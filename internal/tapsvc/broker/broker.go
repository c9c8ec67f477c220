package broker

import (
	"context"
	"encoding/json"

	"github.com/avvvet/tap-services/internal/comm"
	log "github.com/sirupsen/logrus"
)

// Publisher is satisfied by *nats.Conn.
type Publisher interface {
	Publish(subject string, data []byte) error
}

type Broker struct {
	Conn Publisher
}

func NewBroker(conn Publisher) *Broker {
	return &Broker{Conn: conn}
}

// PublishScan hands a recorded scan to the live feed service.
func (b *Broker) PublishScan(_ context.Context, notice comm.ScanNotice) error {
	payload, err := json.Marshal(notice)
	if err != nil {
		return err
	}

	if err := b.Conn.Publish(comm.ScanSubject, payload); err != nil {
		log.Errorf("Error publishing to topic %s: %s", comm.ScanSubject, err)
		return err
	}
	return nil
}
