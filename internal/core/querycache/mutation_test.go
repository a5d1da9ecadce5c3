package querycache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInvalidations_ResolvePlaceholders(t *testing.T) {
	got := Invalidations(Mutation{Kind: CartUpdate, Args: Args{Scope: "visitor-9"}})
	assert.Equal(t, []Pattern{{Resource: ResCart, Params: []string{"visitor-9"}}}, got)

	got = Invalidations(Mutation{Kind: InvoiceAdvance, Args: Args{ID: "12"}})
	assert.Equal(t, []Pattern{
		{Resource: ResInvoices, Params: []string{}},
		{Resource: ResInvoice, Params: []string{"12", "*"}},
	}, got)
}

func TestInvalidations_EveryKindIsDeclared(t *testing.T) {
	kinds := []MutationKind{
		CategoryCreate, CategoryUpdate, CategoryDelete,
		ProductCreate, ProductUpdate, ProductDelete,
		CartAdd, CartUpdate, CartRemove, CartCleanup,
		InvoiceCreate, InvoiceAddress, InvoiceAdvance, InvoiceCancel,
		AccountCreate, AccountUpdate, AccountStatus, AccountRole, AccountDelete,
		ConversationCreate, MessageSend,
	}
	for _, k := range kinds {
		assert.NotEmpty(t, Invalidations(Mutation{Kind: k}), "kind %s has no invalidation", k)
	}
}

func TestPattern_Matches(t *testing.T) {
	cases := []struct {
		p    Pattern
		k    Key
		want bool
	}{
		{Match(ResInvoices), NewKey(ResInvoices, "v1"), true},
		{Match(ResInvoices), NewKey(ResInvoices, "admin", 2), true},
		{Match(ResInvoice, 5, "*"), NewKey(ResInvoice, 5, "v1"), true},
		{Match(ResInvoice, 5, "*"), NewKey(ResInvoice, 6, "v1"), false},
		{Match(ResCart, "v1"), NewKey(ResCart, "v2"), false},
		{Match(ResCategory, 1), NewKey(ResCategories), false},
		{Match(ResCategory, 1, "x"), NewKey(ResCategory, 1), false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.p.Matches(tc.k), "%s vs %s", tc.p, tc.k)
	}
}
