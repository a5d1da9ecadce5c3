package service

import (
	"context"
	"errors"
	"sync"

	"github.com/marketplace/storefront/internal/core/domain"
	"github.com/marketplace/storefront/internal/core/forms"
	"github.com/marketplace/storefront/internal/core/notify"
	"github.com/marketplace/storefront/internal/core/poll"
	"github.com/marketplace/storefront/internal/core/session"
	"github.com/marketplace/storefront/internal/pkg/metrics"
)

// Frame types pushed to the chat widget.
const (
	FrameConversations = "conversations"
	FrameMessages      = "messages"
	FrameNotifications = "notifications"
	FrameError         = "error"
	FrameClosed        = "closed"
)

const chatLoadFailure = "Không thể tải dữ liệu trò chuyện"

var ErrNoActiveConversation = errors.New("no conversation is open")

// ChatFrame is one update pushed to the widget.
type ChatFrame struct {
	Type           string                `json:"type"`
	ConversationID int                   `json:"conversationId,omitempty"`
	Conversations  []domain.Conversation `json:"conversations,omitempty"`
	Messages       []domain.Message      `json:"messages,omitempty"`
	Notifications  []notify.Notification `json:"notifications,omitempty"`
	Error          string                `json:"error,omitempty"`
}

// Emit delivers a frame to the widget. Calls are serialised.
type Emit func(ChatFrame) error

// ChatWidget is one mounted chat widget. Its polling lives until Unmount,
// the mount context ends, or the session signs out, whichever comes first.
type ChatWidget struct {
	svc     *ChatService
	sess    *session.Session
	release func()
	ctx     context.Context
	cancel  context.CancelFunc

	emitMu sync.Mutex
	emit   Emit

	mu       sync.Mutex
	convPoll *poll.Handle
	msgPoll  *poll.Handle
	active   int
	closed   bool

	once sync.Once
	done chan struct{}
}

// Mount starts the conversation feed for a signed-in visitor.
func (s *ChatService) Mount(ctx context.Context, sess *session.Session, emit Emit) (*ChatWidget, error) {
	if err := requireAuth(sess); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	w := &ChatWidget{
		svc:     s,
		sess:    sess,
		release: sess.Retain(),
		ctx:     ctx,
		cancel:  cancel,
		emit:    emit,
		done:    make(chan struct{}),
	}
	metrics.ChatSubscriptions.Inc()

	w.mu.Lock()
	w.convPoll = poll.Start(ctx, s.conversationEvery, w.tickConversations, poll.Options{OnError: w.onError(FrameConversations)})
	w.mu.Unlock()

	go w.watch(sess.Done())
	s.logger.Debug().Str("sid", sess.ID()).Msg("chat widget mounted")
	return w, nil
}

func (w *ChatWidget) watch(signedOut <-chan struct{}) {
	select {
	case <-signedOut:
		_ = w.send(ChatFrame{Type: FrameClosed, Error: "session ended"})
		w.Unmount()
	case <-w.ctx.Done():
		w.Unmount()
	}
}

// Open switches the message feed to conversationID.
func (w *ChatWidget) Open(conversationID int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return context.Canceled
	}
	if w.msgPoll != nil {
		w.msgPoll.Stop()
	}
	w.active = conversationID
	w.msgPoll = poll.Start(w.ctx, w.svc.messageEvery, func(ctx context.Context) error {
		return w.tickMessages(ctx, conversationID)
	}, poll.Options{OnError: w.onError(FrameMessages)})
	return nil
}

// Start creates a new conversation and opens it.
func (w *ChatWidget) Start() error {
	ctx, col := notify.WithCollector(w.ctx)
	conv, err := w.svc.StartConversation(ctx, w.sess)
	w.flush(col)
	if err != nil {
		return err
	}
	if err := w.tickConversations(w.ctx); err != nil {
		w.svc.logger.Debug().Err(err).Msg("conversation refresh after start failed")
	}
	return w.Open(conv.ID)
}

// Send posts content to the open conversation and pushes the refreshed
// message list straight away.
func (w *ChatWidget) Send(content string) error {
	w.mu.Lock()
	active := w.active
	w.mu.Unlock()
	if active == 0 {
		return ErrNoActiveConversation
	}

	ctx, col := notify.WithCollector(w.ctx)
	_, err := w.svc.Send(ctx, w.sess, active, forms.Message{Content: content})
	w.flush(col)
	if err != nil {
		return err
	}
	return w.tickMessages(w.ctx, active)
}

// Unmount stops all polling. It is safe to call more than once.
func (w *ChatWidget) Unmount() {
	w.once.Do(func() {
		w.cancel()

		w.mu.Lock()
		w.closed = true
		convPoll, msgPoll := w.convPoll, w.msgPoll
		w.mu.Unlock()

		if convPoll != nil {
			convPoll.Stop()
		}
		if msgPoll != nil {
			msgPoll.Stop()
		}
		w.release()
		metrics.ChatSubscriptions.Dec()
		close(w.done)
		w.svc.logger.Debug().Str("sid", w.sess.ID()).Msg("chat widget unmounted")
	})
}

// Done is closed once the widget has stopped.
func (w *ChatWidget) Done() <-chan struct{} {
	return w.done
}

func (w *ChatWidget) tickConversations(ctx context.Context) error {
	convs, err := w.svc.refreshConversations(ctx, w.sess)
	if err != nil {
		metrics.PollTicksTotal.WithLabelValues(FrameConversations, "error").Inc()
		return err
	}
	metrics.PollTicksTotal.WithLabelValues(FrameConversations, "ok").Inc()
	return w.send(ChatFrame{Type: FrameConversations, Conversations: convs})
}

func (w *ChatWidget) tickMessages(ctx context.Context, conversationID int) error {
	msgs, err := w.svc.refreshMessages(ctx, w.sess, conversationID)
	if err != nil {
		metrics.PollTicksTotal.WithLabelValues(FrameMessages, "error").Inc()
		return err
	}
	metrics.PollTicksTotal.WithLabelValues(FrameMessages, "ok").Inc()
	return w.send(ChatFrame{Type: FrameMessages, ConversationID: conversationID, Messages: msgs})
}

func (w *ChatWidget) onError(feed string) func(error) {
	return func(err error) {
		w.svc.logger.Warn().Err(err).Str("sid", w.sess.ID()).Str("feed", feed).Msg("chat poll failed")
		msg := chatLoadFailure
		if m, ok := domain.BackendMessage(err); ok {
			msg = m
		}
		_ = w.send(ChatFrame{Type: FrameError, Error: msg})
	}
}

func (w *ChatWidget) flush(col *notify.Collector) {
	if items := col.Drain(); len(items) > 0 {
		_ = w.send(ChatFrame{Type: FrameNotifications, Notifications: items})
	}
}

func (w *ChatWidget) send(f ChatFrame) error {
	w.emitMu.Lock()
	defer w.emitMu.Unlock()
	return w.emit(f)
}
