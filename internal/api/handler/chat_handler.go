package handler

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/marketplace/storefront/internal/core/domain"
	"github.com/marketplace/storefront/internal/core/forms"
	"github.com/marketplace/storefront/internal/core/service"
)

// Client frame types accepted on the chat websocket.
const (
	clientOpen  = "open"
	clientStart = "start"
	clientSend  = "send"
)

const (
	writeWait    = 10 * time.Second
	maxFrameSize = 8 << 10
)

const (
	chatNoConversation = "Vui lòng chọn một cuộc trò chuyện"
	chatUnknownFrame   = "Yêu cầu không hợp lệ"
	chatFailure        = "Đã có lỗi xảy ra, vui lòng thử lại"
)

var errUnknownFrame = errors.New("unknown frame type")

type ChatHandler struct {
	chat     *service.ChatService
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewChatHandler(chat *service.ChatService, log zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		chat: chat,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		log: log,
	}
}

// clientFrame is a command sent by the widget.
type clientFrame struct {
	Type           string `json:"type"`
	ConversationID int    `json:"conversationId,omitempty"`
	Content        string `json:"content,omitempty"`
}

// ListConversations lists the visitor's support conversations.
//
// @Summary      List conversations
// @Tags         chat
// @Produce      json
// @Success      200  {array}  domain.Conversation
// @Router       /chat/conversations [get]
func (h *ChatHandler) ListConversations(c echo.Context) error {
	sess, err := sessionOf(c)
	if err != nil {
		return err
	}
	list, err := h.chat.ListConversations(c.Request().Context(), sess)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, list)
}

// StartConversation opens a new support conversation.
//
// @Summary      Start conversation
// @Tags         chat
// @Produce      json
// @Success      201  {object}  domain.Conversation
// @Router       /chat/conversations [post]
func (h *ChatHandler) StartConversation(c echo.Context) error {
	sess, err := sessionOf(c)
	if err != nil {
		return err
	}
	conv, err := h.chat.StartConversation(c.Request().Context(), sess)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, conv)
}

// ListMessages returns a conversation's messages, oldest first.
//
// @Summary      List messages
// @Tags         chat
// @Produce      json
// @Param        id   path   int  true  "Conversation id"
// @Success      200  {array}  domain.Message
// @Router       /chat/conversations/{id}/messages [get]
func (h *ChatHandler) ListMessages(c echo.Context) error {
	sess, err := sessionOf(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	msgs, err := h.chat.ListMessages(c.Request().Context(), sess, id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, msgs)
}

// SendMessage posts a text message.
//
// @Summary      Send message
// @Tags         chat
// @Accept       json
// @Produce      json
// @Param        id    path  int            true  "Conversation id"
// @Param        body  body  forms.Message  true  "Message"
// @Success      201  {object}  domain.Message
// @Router       /chat/conversations/{id}/messages [post]
func (h *ChatHandler) SendMessage(c echo.Context) error {
	sess, err := sessionOf(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req forms.Message
	if err := bind(c, &req); err != nil {
		return err
	}
	msg, err := h.chat.Send(c.Request().Context(), sess, id, req)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, msg)
}

// Widget upgrades to a websocket and runs the chat widget for as long as the
// socket stays open. Polling stops when the socket closes or the visitor
// signs out.
//
// @Summary      Chat widget socket
// @Tags         chat
// @Success      101
// @Failure      401  {object}  map[string]string
// @Router       /chat/ws [get]
func (h *ChatHandler) Widget(c echo.Context) error {
	sess, err := sessionOf(c)
	if err != nil {
		return err
	}
	if !sess.IsAuthenticated() {
		return domain.ErrUnauthenticated
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already answered the client.
		h.log.Debug().Err(err).Msg("chat upgrade failed")
		return nil
	}
	defer conn.Close()
	conn.SetReadLimit(maxFrameSize)

	var writeMu sync.Mutex
	write := func(f service.ChatFrame) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(f)
	}

	w, err := h.chat.Mount(c.Request().Context(), sess, write)
	if err != nil {
		_ = write(service.ChatFrame{Type: service.FrameError, Error: chatFailure})
		return nil
	}
	defer w.Unmount()

	// Unblock the read loop once the widget stops on its own (sign-out).
	go func() {
		<-w.Done()
		writeMu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"),
			time.Now().Add(writeWait))
		writeMu.Unlock()
		_ = conn.Close()
	}()

	for {
		var in clientFrame
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debug().Err(err).Str("sid", sess.ID()).Msg("chat socket closed")
			}
			return nil
		}
		if err := h.dispatch(w, in); err != nil {
			_ = write(service.ChatFrame{Type: service.FrameError, Error: chatErrorMessage(err)})
		}
	}
}

func (h *ChatHandler) dispatch(w *service.ChatWidget, in clientFrame) error {
	switch in.Type {
	case clientOpen:
		if in.ConversationID <= 0 {
			return service.ErrNoActiveConversation
		}
		return w.Open(in.ConversationID)
	case clientStart:
		return w.Start()
	case clientSend:
		return w.Send(in.Content)
	default:
		return errUnknownFrame
	}
}

func chatErrorMessage(err error) string {
	var fe forms.Errors
	switch {
	case errors.As(err, &fe):
		return fe.Error()
	case errors.Is(err, service.ErrNoActiveConversation):
		return chatNoConversation
	case errors.Is(err, errUnknownFrame):
		return chatUnknownFrame
	}
	if msg, ok := domain.BackendMessage(err); ok {
		return msg
	}
	return chatFailure
}
