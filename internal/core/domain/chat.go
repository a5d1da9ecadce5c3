package domain

import (
	"sort"
	"time"
)

// MessageKind tags the payload of a chat message. Only text is produced by
// the storefront.
type MessageKind int

const (
	MessageText MessageKind = iota
	MessageImage
	MessageFile
)

// Conversation pairs one customer with one admin.
type Conversation struct {
	ID           int       `json:"id"`
	CustomerID   int       `json:"customerId"`
	CustomerName string    `json:"customerName,omitempty"`
	AdminID      int       `json:"adminId"`
	AdminName    string    `json:"adminName,omitempty"`
	LastMessage  string    `json:"lastMessage,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Message is a single chat line.
type Message struct {
	ID             int         `json:"id"`
	ConversationID int         `json:"conversationId"`
	SenderID       int         `json:"senderId"`
	Content        string      `json:"content"`
	IsRead         bool        `json:"isRead"`
	Type           MessageKind `json:"type"`
	CreatedAt      time.Time   `json:"createdAt"`
}

// SortMessages orders messages by creation time, oldest first, keeping the
// backend order for equal timestamps.
func SortMessages(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
}
