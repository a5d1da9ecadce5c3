package querycache

import (
	"context"

	"github.com/marketplace/storefront/internal/core/domain"
	"github.com/marketplace/storefront/internal/core/notify"
	"github.com/marketplace/storefront/internal/pkg/metrics"
)

// MutationKind names a write the storefront can issue.
type MutationKind string

const (
	CategoryCreate     MutationKind = "category.create"
	CategoryUpdate     MutationKind = "category.update"
	CategoryDelete     MutationKind = "category.delete"
	ProductCreate      MutationKind = "product.create"
	ProductUpdate      MutationKind = "product.update"
	ProductDelete      MutationKind = "product.delete"
	CartAdd            MutationKind = "cart.add"
	CartUpdate         MutationKind = "cart.update"
	CartRemove         MutationKind = "cart.remove"
	CartCleanup        MutationKind = "cart.cleanup"
	InvoiceCreate      MutationKind = "invoice.create"
	InvoiceAddress     MutationKind = "invoice.address"
	InvoiceAdvance     MutationKind = "invoice.advance"
	InvoiceCancel      MutationKind = "invoice.cancel"
	AccountCreate      MutationKind = "account.create"
	AccountUpdate      MutationKind = "account.update"
	AccountStatus      MutationKind = "account.status"
	AccountRole        MutationKind = "account.role"
	AccountDelete      MutationKind = "account.delete"
	ConversationCreate MutationKind = "conversation.create"
	MessageSend        MutationKind = "message.send"
)

// Placeholders substituted in invalidation templates.
const (
	argID    = "{id}"
	argScope = "{scope}"
)

// invalidations declares, per mutation kind, every read key whose data the
// write may change.
var invalidations = map[MutationKind][]Pattern{
	CategoryCreate: {Match(ResCategories)},
	CategoryUpdate: {Match(ResCategories), Match(ResCategory, argID)},
	CategoryDelete: {Match(ResCategories), Match(ResCategory, argID)},

	ProductCreate: {Match(ResProducts)},
	ProductUpdate: {Match(ResProducts), Match(ResProduct, argID)},
	ProductDelete: {Match(ResProducts), Match(ResProduct, argID)},

	CartAdd:     {Match(ResCart, argScope)},
	CartUpdate:  {Match(ResCart, argScope)},
	CartRemove:  {Match(ResCart, argScope)},
	CartCleanup: {Match(ResCart, argScope)},

	InvoiceCreate:  {Match(ResInvoices)},
	InvoiceAddress: {Match(ResInvoices), Match(ResInvoice, argID, wildcard)},
	InvoiceAdvance: {Match(ResInvoices), Match(ResInvoice, argID, wildcard)},
	InvoiceCancel:  {Match(ResInvoices), Match(ResInvoice, argID, wildcard)},

	AccountCreate: {Match(ResUsers)},
	AccountUpdate: {Match(ResUsers), Match(ResUser, argID)},
	AccountStatus: {Match(ResUsers), Match(ResUser, argID)},
	AccountRole:   {Match(ResUsers), Match(ResUser, argID)},
	AccountDelete: {Match(ResUsers), Match(ResUser, argID)},

	ConversationCreate: {Match(ResConversations)},
	MessageSend:        {Match(ResMessages, argID), Match(ResConversations)},
}

type messages struct {
	ok   string
	fail string
}

// mutationMessages are the toasts for each kind. An empty ok message means
// the write succeeds silently.
var mutationMessages = map[MutationKind]messages{
	CategoryCreate:     {"Thêm danh mục thành công", "Thêm danh mục thất bại"},
	CategoryUpdate:     {"Cập nhật danh mục thành công", "Cập nhật danh mục thất bại"},
	CategoryDelete:     {"Xóa danh mục thành công", "Xóa danh mục thất bại"},
	ProductCreate:      {"Thêm sản phẩm thành công", "Thêm sản phẩm thất bại"},
	ProductUpdate:      {"Cập nhật sản phẩm thành công", "Cập nhật sản phẩm thất bại"},
	ProductDelete:      {"Xóa sản phẩm thành công", "Xóa sản phẩm thất bại"},
	CartAdd:            {"Đã thêm vào giỏ hàng", "Không thể thêm vào giỏ hàng"},
	CartUpdate:         {"", "Không thể cập nhật số lượng"},
	CartRemove:         {"Đã xóa sản phẩm khỏi giỏ hàng", "Không thể xóa sản phẩm khỏi giỏ hàng"},
	InvoiceCreate:      {"", "Không thể tạo đơn hàng"},
	InvoiceAddress:     {"", "Không thể cập nhật địa chỉ giao hàng"},
	InvoiceAdvance:     {"Cập nhật trạng thái đơn hàng thành công", "Cập nhật trạng thái đơn hàng thất bại"},
	InvoiceCancel:      {"Đã hủy đơn hàng", "Hủy đơn hàng thất bại"},
	AccountCreate:      {"Tạo tài khoản thành công", "Tạo tài khoản thất bại"},
	AccountUpdate:      {"Cập nhật tài khoản thành công", "Cập nhật tài khoản thất bại"},
	AccountStatus:      {"Cập nhật trạng thái tài khoản thành công", "Cập nhật trạng thái tài khoản thất bại"},
	AccountRole:        {"Cập nhật vai trò thành công", "Cập nhật vai trò thất bại"},
	AccountDelete:      {"Xóa tài khoản thành công", "Xóa tài khoản thất bại"},
	ConversationCreate: {"", "Không thể bắt đầu cuộc trò chuyện"},
	MessageSend:        {"", "Gửi tin nhắn thất bại"},
}

const genericFailure = "Đã có lỗi xảy ra, vui lòng thử lại"

// Args fills the placeholders of a mutation's invalidation templates.
type Args struct {
	ID    string
	Scope string
}

// Mutation is one write together with what it touches.
type Mutation struct {
	Kind MutationKind
	Args Args
}

// Invalidations resolves the declared patterns for m.
func Invalidations(m Mutation) []Pattern {
	templates := invalidations[m.Kind]
	out := make([]Pattern, 0, len(templates))
	for _, t := range templates {
		p := Pattern{Resource: t.Resource, Params: make([]string, len(t.Params))}
		for i, param := range t.Params {
			switch param {
			case argID:
				p.Params[i] = m.Args.ID
			case argScope:
				p.Params[i] = m.Args.Scope
			default:
				p.Params[i] = param
			}
		}
		out = append(out, p)
	}
	return out
}

// Mutate runs a pessimistic write. The cache is only touched after fn
// succeeds; on failure the backend's message, when there is one, is shown to
// the user and the error is returned unchanged.
func (c *Cache) Mutate(ctx context.Context, m Mutation, fn func(ctx context.Context) error) error {
	msgs := mutationMessages[m.Kind]

	if err := fn(ctx); err != nil {
		metrics.MutationsTotal.WithLabelValues(string(m.Kind), "error").Inc()
		c.log.Warn().Err(err).Str("mutation", string(m.Kind)).Str("id", m.Args.ID).Msg("mutation failed")

		msg := msgs.fail
		if backendMsg, ok := domain.BackendMessage(err); ok {
			msg = backendMsg
		}
		if msg == "" {
			msg = genericFailure
		}
		notify.Error(ctx, c.notifier, msg, nil)
		return err
	}

	removed := c.Invalidate(Invalidations(m)...)
	metrics.MutationsTotal.WithLabelValues(string(m.Kind), "ok").Inc()
	c.log.Debug().Str("mutation", string(m.Kind)).Str("id", m.Args.ID).Int("invalidated", removed).Msg("mutation applied")

	if msgs.ok != "" {
		notify.Success(ctx, c.notifier, msgs.ok)
	}
	return nil
}
