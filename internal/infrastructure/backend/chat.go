package backend

import (
	"context"
	"net/http"

	"github.com/marketplace/storefront/internal/core/domain"
)

type messageBody struct {
	Content string             `json:"content"`
	Type    domain.MessageKind `json:"type"`
}

func (c *Client) ListConversations(ctx context.Context) ([]domain.Conversation, error) {
	var out []domain.Conversation
	if err := c.do(ctx, request{method: http.MethodGet, path: "conversations"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateConversation(ctx context.Context) (*domain.Conversation, error) {
	var out domain.Conversation
	if err := c.do(ctx, request{method: http.MethodPost, path: "conversations"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListMessages returns the conversation's messages oldest first.
func (c *Client) ListMessages(ctx context.Context, conversationID int) ([]domain.Message, error) {
	var out []domain.Message
	if err := c.do(ctx, request{method: http.MethodGet, path: pathf("conversations/%d/messages", conversationID)}, &out); err != nil {
		return nil, notFound(err)
	}
	domain.SortMessages(out)
	return out, nil
}

func (c *Client) SendMessage(ctx context.Context, conversationID int, content string) (*domain.Message, error) {
	r, err := jsonRequest(http.MethodPost, pathf("conversations/%d/messages", conversationID), messageBody{Content: content, Type: domain.MessageText})
	if err != nil {
		return nil, err
	}
	var out domain.Message
	if err := c.do(ctx, r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
