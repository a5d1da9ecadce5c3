package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/marketplace/storefront/internal/core/domain"
	"github.com/marketplace/storefront/internal/core/notify"
)

type frameSink chan ChatFrame

func (s frameSink) emit(f ChatFrame) error {
	select {
	case s <- f:
	default:
	}
	return nil
}

// next waits for the first frame of type typ that satisfies ok.
func (s frameSink) next(t *testing.T, typ string, ok func(ChatFrame) bool) ChatFrame {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case f := <-s:
			if f.Type == typ && (ok == nil || ok(f)) {
				return f
			}
		case <-deadline:
			t.Fatalf("no %q frame received", typ)
		}
	}
}

func newChatService(h *harness) *ChatService {
	return NewChatService(h.cache, 20*time.Millisecond, 10*time.Millisecond, zerolog.Nop())
}

func TestChatWidget_GuestCannotMount(t *testing.T) {
	h := newHarness(t)
	_, err := newChatService(h).Mount(context.Background(), h.guest("g"), frameSink(make(chan ChatFrame, 1)).emit)
	if !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestChatWidget_StartSendAndPoll(t *testing.T) {
	h := newHarness(t)
	h.admin("support")
	sess, _ := h.customer("cust")
	sink := frameSink(make(chan ChatFrame, 256))

	w, err := newChatService(h).Mount(context.Background(), sess, sink.emit)
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	defer w.Unmount()

	sink.next(t, FrameConversations, nil)
	if err := w.Send("xin chào"); !errors.Is(err, ErrNoActiveConversation) {
		t.Fatalf("expected ErrNoActiveConversation, got %v", err)
	}

	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	conv := sink.next(t, FrameConversations, func(f ChatFrame) bool { return len(f.Conversations) == 1 }).Conversations[0]

	if err := w.Send("xin chào"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	sink.next(t, FrameMessages, func(f ChatFrame) bool {
		return f.ConversationID == conv.ID && len(f.Messages) == 1 && f.Messages[0].Content == "xin chào"
	})

	// A reply written elsewhere shows up on a later tick.
	h.fb.AddMessage(conv.ID, conv.AdminID, "Chúng tôi có thể giúp gì?")
	sink.next(t, FrameMessages, func(f ChatFrame) bool { return len(f.Messages) == 2 })
}

func TestChatWidget_PollErrorsBecomeFrames(t *testing.T) {
	h := newHarness(t)
	sess, _ := h.customer("cust")
	h.fb.Fail("GET /conversations", 500, "Máy chủ bận")
	sink := frameSink(make(chan ChatFrame, 256))

	w, err := newChatService(h).Mount(context.Background(), sess, sink.emit)
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	defer w.Unmount()

	f := sink.next(t, FrameError, nil)
	if f.Error != "Máy chủ bận" {
		t.Fatalf("expected backend message, got %q", f.Error)
	}
	h.fb.Fail("GET /conversations", 0, "")
	sink.next(t, FrameConversations, nil)
}

func TestChatWidget_LogoutStopsPolling(t *testing.T) {
	h := newHarness(t)
	sess, _ := h.customer("cust")
	sink := frameSink(make(chan ChatFrame, 256))

	w, err := newChatService(h).Mount(context.Background(), sess, sink.emit)
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	sink.next(t, FrameConversations, nil)

	NewAuthService(notify.ContextNotifier{}, zerolog.Nop()).Logout(context.Background(), sess)

	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("widget still running after logout")
	}
	sink.next(t, FrameClosed, nil)

	calls := h.fb.Calls("GET /conversations")
	time.Sleep(80 * time.Millisecond)
	if got := h.fb.Calls("GET /conversations"); got != calls {
		t.Fatalf("polling continued after logout: %d -> %d calls", calls, got)
	}
}

func TestChatWidget_LogoutAfterEvictionStopsPolling(t *testing.T) {
	h := newHarnessWithLive(t, 2)
	sess, _ := h.customer("cust")
	sink := frameSink(make(chan ChatFrame, 256))

	w, err := newChatService(h).Mount(context.Background(), sess, sink.emit)
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	sink.next(t, FrameConversations, nil)

	h.customer("visitor-a")
	h.customer("visitor-b")

	again := h.manager.Open(context.Background(), "cust")
	if again != sess {
		t.Fatalf("a mounted widget's session must survive eviction")
	}
	NewAuthService(notify.ContextNotifier{}, zerolog.Nop()).Logout(context.Background(), again)

	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("widget still running after logout")
	}
	if sess.IsAuthenticated() || sess.Gateway().Bearer() != "" {
		t.Fatalf("mounted session still holds the token after logout")
	}
	calls := h.fb.Calls("GET /conversations")
	time.Sleep(80 * time.Millisecond)
	if got := h.fb.Calls("GET /conversations"); got != calls {
		t.Fatalf("polling continued after logout: %d -> %d calls", calls, got)
	}
}

func TestChatWidget_UnmountReleasesSession(t *testing.T) {
	h := newHarnessWithLive(t, 1)
	sess, _ := h.customer("cust")

	w, err := newChatService(h).Mount(context.Background(), sess, frameSink(make(chan ChatFrame, 256)).emit)
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	w.Unmount()
	h.customer("visitor-a")

	again := h.manager.Open(context.Background(), "cust")
	if again == sess {
		t.Fatalf("an unmounted session must be evictable again")
	}
	if !again.IsAuthenticated() || again.Scope() != sess.Scope() {
		t.Fatalf("rehydrated session lost its sign-in: scope %q, want %q", again.Scope(), sess.Scope())
	}
}

func TestChatWidget_CancelledContextUnmounts(t *testing.T) {
	h := newHarness(t)
	sess, _ := h.customer("cust")
	ctx, cancel := context.WithCancel(context.Background())

	w, err := newChatService(h).Mount(ctx, sess, frameSink(make(chan ChatFrame, 256)).emit)
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	cancel()
	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("widget still running after cancel")
	}
	if err := w.Open(1); err == nil {
		t.Fatalf("expected Open to fail on a closed widget")
	}
}
