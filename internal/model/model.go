// Package model defines the domain types used across the application.
package model

import "time"

// GlobalConfigID is the key of the single filter configuration row.
const GlobalConfigID = "global"

// LinkNotFound is stored when a message carries no recognizable URL.
const LinkNotFound = "not found"

// Promotion is one accepted, structured message.
type Promotion struct {
	ID         string
	Title      string
	Price      *float64
	Link       string
	Source     string
	CapturedAt time.Time
}

// FilterConfig holds the operator-editable monitoring rules.
type FilterConfig struct {
	Keywords []string
	Channels []string
}

// Event is a single inbound message from any source.
type Event struct {
	SourceID  string
	Text      string
	MessageID int64
	// ChatID is the Telegram chat the message was posted in, 0 for other sources.
	ChatID int64
}
