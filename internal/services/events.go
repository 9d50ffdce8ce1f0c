package services

import (
	"time"

	"fleet-manager/internal/models"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EventPublisher receives change events after successful writes.
type EventPublisher interface {
	Publish(event models.ChangeEvent) error
}

// eventSupport is embedded next to cacheSupport. Publishing is a no-op until
// a publisher is set.
type eventSupport struct {
	publisher EventPublisher
}

func (e *eventSupport) SetEventPublisher(publisher EventPublisher) {
	e.publisher = publisher
}

func (e *eventSupport) publish(event models.ChangeEvent) {
	if e.publisher == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := e.publisher.Publish(event); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"resource": event.Resource,
			"action":   event.Action,
			"id":       event.ID,
		}).Warn("change event dropped")
	}
}

func hexRef(ref *primitive.ObjectID) string {
	if ref == nil {
		return ""
	}
	return ref.Hex()
}
