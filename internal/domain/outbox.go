package domain

import "time"

// OutboxMessage is written in the same transaction as the state change it announces.
type OutboxMessage struct {
	MessageID  string
	RoutingKey string
	Body       []byte
	CreatedAt  time.Time
}
