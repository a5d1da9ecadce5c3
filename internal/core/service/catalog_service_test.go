package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/marketplace/storefront/internal/core/domain"
	"github.com/marketplace/storefront/internal/core/forms"
	"github.com/marketplace/storefront/internal/core/notify"
	"github.com/marketplace/storefront/internal/core/querycache"
)

func newCatalogService(h *harness) *CatalogService {
	return NewCatalogService(h.cache, h.images, zerolog.Nop())
}

func jpeg(name string) *domain.Upload {
	return &domain.Upload{Filename: name, ContentType: "image/jpeg", Data: []byte{0xff, 0xd8, 0xff}}
}

func TestCatalog_CreateCategoryWithoutImageNeverCallsBackend(t *testing.T) {
	h := newHarness(t)
	admin, _ := h.admin("admin")

	_, err := newCatalogService(h).CreateCategory(context.Background(), admin, forms.CategoryCreate{Name: "Sách", Status: 1})
	var fe forms.Errors
	if !errors.As(err, &fe) {
		t.Fatalf("expected forms.Errors, got %v", err)
	}
	if _, ok := fe["image"]; !ok {
		t.Fatalf("expected an image error, got %v", fe)
	}
	if calls := h.fb.Calls("POST /categories"); calls != 0 {
		t.Fatalf("expected no network call, got %d", calls)
	}
}

func TestCatalog_UpdateCategoryWithoutImageKeepsImage(t *testing.T) {
	h := newHarness(t)
	admin, _ := h.admin("admin")
	svc := newCatalogService(h)
	ctx := context.Background()

	created, err := svc.CreateCategory(ctx, admin, forms.CategoryCreate{Name: "Sách", Status: 1, Image: jpeg("books.jpg")})
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	stored := h.fb.Category(created.ID).Image

	updated, err := svc.UpdateCategory(ctx, admin, created.ID, forms.CategoryUpdate{Name: "Sách hay", Status: 1})
	if err != nil {
		t.Fatalf("UpdateCategory: %v", err)
	}
	if got := h.fb.Category(created.ID).Image; got != stored {
		t.Fatalf("expected image %q to be kept, got %q", stored, got)
	}
	if updated.Name != "Sách hay" || !strings.HasSuffix(updated.Image, stored) {
		t.Fatalf("unexpected update result %+v", updated)
	}
}

func TestCatalog_UpdateInvalidatesListAndItem(t *testing.T) {
	h := newHarness(t)
	admin, _ := h.admin("admin")
	cat := h.fb.AddCategory(domain.Category{Name: "Cũ", Status: domain.StatusActive, Image: "categories/1/a.jpg"})
	svc := newCatalogService(h)
	ctx := context.Background()

	if _, err := svc.ListCategories(ctx, admin, false); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.GetCategory(ctx, admin, cat.ID); err != nil {
		t.Fatal(err)
	}
	list, item := querycache.NewKey(querycache.ResCategories), querycache.NewKey(querycache.ResCategory, cat.ID)
	if !h.cache.Contains(list) || !h.cache.Contains(item) {
		t.Fatalf("expected both keys cached")
	}

	if _, err := svc.UpdateCategory(ctx, admin, cat.ID, forms.CategoryUpdate{Name: "Mới", Status: 1}); err != nil {
		t.Fatal(err)
	}
	if h.cache.Contains(list) || h.cache.Contains(item) {
		t.Fatalf("expected list and item invalidated")
	}
	cats, _ := svc.ListCategories(ctx, admin, false)
	if len(cats) != 1 || cats[0].Name != "Mới" {
		t.Fatalf("expected refreshed list, got %+v", cats)
	}
}

func TestCatalog_FailedMutationLeavesCache(t *testing.T) {
	h := newHarness(t)
	admin, _ := h.admin("admin")
	h.fb.AddCategory(domain.Category{Name: "Sách", Status: domain.StatusActive})
	h.fb.Fail("POST /categories", http.StatusBadRequest, "Tên danh mục đã tồn tại")
	svc := newCatalogService(h)
	ctx, col := collect()

	if _, err := svc.ListCategories(ctx, admin, false); err != nil {
		t.Fatal(err)
	}
	_, err := svc.CreateCategory(ctx, admin, forms.CategoryCreate{Name: "Sách", Status: 1, Image: jpeg("x.jpg")})
	if err == nil {
		t.Fatalf("expected backend error")
	}
	n := lastNotification(t, col)
	if n.Level != notify.LevelError || n.Message != "Tên danh mục đã tồn tại" {
		t.Fatalf("expected backend message, got %+v", n)
	}
	if !h.cache.Contains(querycache.NewKey(querycache.ResCategories)) {
		t.Fatalf("expected cache untouched after a failed write")
	}
}

func TestCatalog_ShopHidesInactive(t *testing.T) {
	h := newHarness(t)
	h.fb.AddProduct(domain.Product{Name: "Đang bán", Status: domain.StatusActive, Images: []string{"p/1.jpg"}})
	hidden := h.fb.AddProduct(domain.Product{Name: "Ngừng bán", Status: domain.StatusInactive})
	svc := newCatalogService(h)
	guest := h.guest("guest")
	ctx := context.Background()

	products, err := svc.ListProducts(ctx, guest, ProductQuery{ActiveOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(products) != 1 || products[0].Name != "Đang bán" {
		t.Fatalf("expected only the active product, got %+v", products)
	}
	if want := "https://res.cloudinary.com/demo/image/upload/c_fill,w_300,h_300/p/1.jpg"; products[0].Images[0] != want {
		t.Fatalf("expected CDN url, got %s", products[0].Images[0])
	}
	if _, err := svc.GetProduct(ctx, guest, hidden.ID, true); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for an inactive product, got %v", err)
	}
}

func TestCatalog_CreateProductWithVariants(t *testing.T) {
	h := newHarness(t)
	admin, _ := h.admin("admin")
	svc := newCatalogService(h)

	p, err := svc.CreateProduct(context.Background(), admin, forms.ProductCreate{
		Name:       "Giày",
		CategoryID: 1,
		Status:     1,
		Images:     []domain.Upload{*jpeg("shoe.jpg")},
		Variants: []forms.Variant{
			{Name: "40", Price: 500000, Quantity: 2},
			{Name: "41", Price: 520000, Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	if len(p.ProductTypes) != 2 || p.MinPrice() != 500000 {
		t.Fatalf("expected two variants, got %+v", p.ProductTypes)
	}
}

func TestCatalog_CustomerCannotWrite(t *testing.T) {
	h := newHarness(t)
	sess, _ := h.customer("cust")
	err := newCatalogService(h).DeleteProduct(context.Background(), sess, 1)
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestCatalog_UpdateProductRefusesVariantEdits(t *testing.T) {
	h := newHarness(t)
	admin, _ := h.admin("admin")
	p := h.fb.AddProduct(domain.Product{Name: "Áo", CategoryID: 1, Status: domain.StatusActive})

	_, err := newCatalogService(h).UpdateProduct(context.Background(), admin, p.ID, forms.ProductUpdate{
		Name:       "Áo mới",
		CategoryID: 1,
		Status:     1,
		Variants:   []forms.Variant{{Name: "XL", Price: 1000, Quantity: 1}},
	})
	if !errors.Is(err, domain.ErrVariantEditUnsupported) {
		t.Fatalf("expected ErrVariantEditUnsupported, got %v", err)
	}
	if calls := h.fb.Calls("PUT /products/{id}"); calls != 0 {
		t.Fatalf("expected no network call, got %d", calls)
	}
}
