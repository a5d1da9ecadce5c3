package querycache

import (
	"fmt"
	"strings"
)

// Resource names used as the first segment of every key.
const (
	ResProducts      = "products"
	ResProduct       = "product"
	ResCategories    = "categories"
	ResCategory      = "category"
	ResCart          = "cart"
	ResInvoices      = "invoices"
	ResInvoice       = "invoice"
	ResUsers         = "users"
	ResUser          = "user"
	ResConversations = "conversations"
	ResMessages      = "messages"
)

const (
	sep      = "|"
	wildcard = "*"
)

// Key identifies one cached remote resource.
type Key struct {
	Resource string
	Params   []string
}

// NewKey builds a key; params are formatted with fmt.Sprint.
func NewKey(resource string, params ...any) Key {
	k := Key{Resource: resource}
	for _, p := range params {
		k.Params = append(k.Params, fmt.Sprint(p))
	}
	return k
}

func (k Key) String() string {
	if len(k.Params) == 0 {
		return k.Resource
	}
	return k.Resource + sep + strings.Join(k.Params, sep)
}

// Pattern selects keys for invalidation. A "*" param matches any value and a
// pattern with fewer params than a key matches on the shared prefix.
type Pattern struct {
	Resource string
	Params   []string
}

// Match builds a pattern; params are formatted with fmt.Sprint.
func Match(resource string, params ...any) Pattern {
	return Pattern(NewKey(resource, params...))
}

// Matches reports whether k is selected by p.
func (p Pattern) Matches(k Key) bool {
	if p.Resource != k.Resource {
		return false
	}
	if len(p.Params) > len(k.Params) {
		return false
	}
	for i, want := range p.Params {
		if want != wildcard && want != k.Params[i] {
			return false
		}
	}
	return true
}

func (p Pattern) String() string {
	return Key(p).String()
}
