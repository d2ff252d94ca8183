package events

import (
	"time"

	"github.com/gofrs/uuid"
)

// Verb is a lifecycle step of a mutation
type Verb string

const (
	Creating   Verb = "creating"
	Created    Verb = "created"
	Updating   Verb = "updating"
	Updated    Verb = "updated"
	Destroying Verb = "destroying"
	Destroyed  Verb = "destroyed"
)

// IsPreMutation reports whether v is published before the mutation it guards
func (v Verb) IsPreMutation() bool {
	switch v {
	case Creating, Updating, Destroying:
		return true
	}
	return false
}

// Name returns the event name of verb for entityType, e.g. "product.created"
func Name(entityType string, verb Verb) string {
	return entityType + "." + string(verb)
}

// Event is an immutable record of one lifecycle step of one entity
type Event struct {
	id         uuid.UUID
	entityType string
	verb       Verb
	entity     interface{}
	occurredAt time.Time
}

// NewEvent records verb happening to entity
func NewEvent(entityType string, verb Verb, entity interface{}) Event {
	return Event{
		id:         uuid.Must(uuid.NewV4()),
		entityType: entityType,
		verb:       verb,
		entity:     entity,
		occurredAt: time.Now().UTC(),
	}
}

func (e Event) ID() uuid.UUID         { return e.id }
func (e Event) Name() string          { return Name(e.entityType, e.verb) }
func (e Event) EntityType() string    { return e.entityType }
func (e Event) Verb() Verb            { return e.verb }
func (e Event) Entity() interface{}   { return e.entity }
func (e Event) OccurredAt() time.Time { return e.occurredAt }
