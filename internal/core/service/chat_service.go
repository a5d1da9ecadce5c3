package service

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/marketplace/storefront/internal/core/domain"
	"github.com/marketplace/storefront/internal/core/forms"
	"github.com/marketplace/storefront/internal/core/querycache"
	"github.com/marketplace/storefront/internal/core/session"
)

const (
	defaultConversationPoll = 10 * time.Second
	defaultMessagePoll      = 3 * time.Second
)

// ChatService backs the support chat. Conversations poll less often than
// the open conversation's messages.
type ChatService struct {
	cache             *querycache.Cache
	conversationEvery time.Duration
	messageEvery      time.Duration
	logger            zerolog.Logger
}

func NewChatService(cache *querycache.Cache, conversationEvery, messageEvery time.Duration, logger zerolog.Logger) *ChatService {
	if conversationEvery <= 0 {
		conversationEvery = defaultConversationPoll
	}
	if messageEvery <= 0 {
		messageEvery = defaultMessagePoll
	}
	return &ChatService{
		cache:             cache,
		conversationEvery: conversationEvery,
		messageEvery:      messageEvery,
		logger:            logger,
	}
}

func conversationsKey(sess *session.Session) querycache.Key {
	return querycache.NewKey(querycache.ResConversations, sess.Scope())
}

func messagesKey(sess *session.Session, conversationID int) querycache.Key {
	return querycache.NewKey(querycache.ResMessages, conversationID, sess.Scope())
}

func (s *ChatService) ListConversations(ctx context.Context, sess *session.Session) ([]domain.Conversation, error) {
	if err := requireAuth(sess); err != nil {
		return nil, err
	}
	key := conversationsKey(sess)
	return querycache.Query(ctx, s.cache, key, querycache.PolicyFor(key.Resource), sess.Gateway().ListConversations)
}

// StartConversation opens a conversation between the customer and support.
func (s *ChatService) StartConversation(ctx context.Context, sess *session.Session) (*domain.Conversation, error) {
	if err := requireAuth(sess); err != nil {
		return nil, err
	}
	var conv *domain.Conversation
	err := s.cache.Mutate(ctx, querycache.Mutation{Kind: querycache.ConversationCreate}, func(ctx context.Context) error {
		var err error
		conv, err = sess.Gateway().CreateConversation(ctx)
		return err
	})
	return conv, err
}

// ListMessages returns a conversation's messages, oldest first.
func (s *ChatService) ListMessages(ctx context.Context, sess *session.Session, conversationID int) ([]domain.Message, error) {
	if err := requireAuth(sess); err != nil {
		return nil, err
	}
	key := messagesKey(sess, conversationID)
	return querycache.Query(ctx, s.cache, key, querycache.PolicyFor(key.Resource), s.messageFetcher(sess, conversationID))
}

func (s *ChatService) Send(ctx context.Context, sess *session.Session, conversationID int, form forms.Message) (*domain.Message, error) {
	if err := forms.Validate(form); err != nil {
		return nil, err
	}
	if err := requireAuth(sess); err != nil {
		return nil, err
	}
	var msg *domain.Message
	m := querycache.Mutation{Kind: querycache.MessageSend, Args: querycache.Args{ID: strconv.Itoa(conversationID)}}
	err := s.cache.Mutate(ctx, m, func(ctx context.Context) error {
		var err error
		msg, err = sess.Gateway().SendMessage(ctx, conversationID, form.Content)
		return err
	})
	return msg, err
}

func (s *ChatService) refreshConversations(ctx context.Context, sess *session.Session) ([]domain.Conversation, error) {
	return querycache.Refresh(ctx, s.cache, conversationsKey(sess), sess.Gateway().ListConversations)
}

func (s *ChatService) refreshMessages(ctx context.Context, sess *session.Session, conversationID int) ([]domain.Message, error) {
	return querycache.Refresh(ctx, s.cache, messagesKey(sess, conversationID), s.messageFetcher(sess, conversationID))
}

func (s *ChatService) messageFetcher(sess *session.Session, conversationID int) querycache.Fetcher[[]domain.Message] {
	return func(ctx context.Context) ([]domain.Message, error) {
		msgs, err := sess.Gateway().ListMessages(ctx, conversationID)
		if err != nil {
			return nil, err
		}
		domain.SortMessages(msgs)
		return msgs, nil
	}
}
