package enums

import "slices"

// OutboxAggregateType names the entity an outbox event is about.
type OutboxAggregateType string

const (
	AggregateOrder OutboxAggregateType = "order"
	AggregateUser  OutboxAggregateType = "user"
)

func (a OutboxAggregateType) IsValid() bool {
	return slices.Contains([]OutboxAggregateType{AggregateOrder, AggregateUser}, a)
}

// OutboxEventType doubles as the event_type attribute on published messages.
type OutboxEventType string

const (
	EventOrderCreated       OutboxEventType = "order.created"
	EventOrderCancelled     OutboxEventType = "order.cancelled"
	EventOrderStatusChanged OutboxEventType = "order.status_changed"
	EventUserDeactivated    OutboxEventType = "user.deactivated"
)

var publishedEvents = []OutboxEventType{
	EventOrderCreated,
	EventOrderCancelled,
	EventOrderStatusChanged,
	EventUserDeactivated,
}

func (e OutboxEventType) IsValid() bool {
	return slices.Contains(publishedEvents, e)
}
