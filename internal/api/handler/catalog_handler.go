package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/marketplace/storefront/internal/core/forms"
	"github.com/marketplace/storefront/internal/core/service"
)

// CatalogHandler serves the shop catalog and the admin category and product
// screens. Shop routes only ever show active entries.
type CatalogHandler struct {
	catalog *service.CatalogService
}

func NewCatalogHandler(catalog *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// ListCategories lists categories.
//
// @Summary      List categories
// @Tags         catalog
// @Produce      json
// @Success      200  {array}  domain.Category
// @Router       /categories [get]
// @Router       /admin/categories [get]
func (h *CatalogHandler) ListCategories(activeOnly bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess, err := sessionOf(c)
		if err != nil {
			return err
		}
		cats, err := h.catalog.ListCategories(c.Request().Context(), sess, activeOnly)
		if err != nil {
			return err
		}
		return respond(c, http.StatusOK, cats)
	}
}

// GetCategory handles GET /admin/categories/:id.
func (h *CatalogHandler) GetCategory(c echo.Context) error {
	sess, err := sessionOf(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	cat, err := h.catalog.GetCategory(c.Request().Context(), sess, id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, cat)
}

// ListProducts lists products, optionally filtered by category and search
// text.
//
// @Summary      List products
// @Tags         catalog
// @Produce      json
// @Param        categoryId  query  int     false  "Category filter"
// @Param        search      query  string  false  "Name search"
// @Success      200  {array}  domain.Product
// @Router       /products [get]
func (h *CatalogHandler) ListProducts(activeOnly bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess, err := sessionOf(c)
		if err != nil {
			return err
		}
		categoryID, err := queryInt(c, "categoryId")
		if err != nil {
			return err
		}
		products, err := h.catalog.ListProducts(c.Request().Context(), sess, service.ProductQuery{
			CategoryID: categoryID,
			Search:     c.QueryParam("search"),
			ActiveOnly: activeOnly,
		})
		if err != nil {
			return err
		}
		return respond(c, http.StatusOK, products)
	}
}

// GetProduct returns one product with its variants.
//
// @Summary      Product detail
// @Tags         catalog
// @Produce      json
// @Param        id   path      int  true  "Product id"
// @Success      200  {object}  domain.Product
// @Failure      404  {object}  map[string]string
// @Router       /products/{id} [get]
func (h *CatalogHandler) GetProduct(activeOnly bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess, err := sessionOf(c)
		if err != nil {
			return err
		}
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		p, err := h.catalog.GetProduct(c.Request().Context(), sess, id, activeOnly)
		if err != nil {
			return err
		}
		return respond(c, http.StatusOK, p)
	}
}

// CreateCategory handles a multipart category form. The image is required.
//
// @Summary      Create category
// @Tags         admin
// @Accept       multipart/form-data
// @Produce      json
// @Param        name         formData  string  true   "Name"
// @Param        description  formData  string  false  "Description"
// @Param        status       formData  int     false  "1 active, 0 inactive"
// @Param        image        formData  file    true   "Image"
// @Success      201  {object}  domain.Category
// @Failure      422  {object}  map[string]string
// @Router       /admin/categories [post]
func (h *CatalogHandler) CreateCategory(c echo.Context) error {
	sess, err := sessionOf(c)
	if err != nil {
		return err
	}
	image, err := formFile(c, "image")
	if err != nil {
		return err
	}
	status, err := formInt(c, "status")
	if err != nil {
		return err
	}
	cat, err := h.catalog.CreateCategory(c.Request().Context(), sess, forms.CategoryCreate{
		Name:        c.FormValue("name"),
		Description: c.FormValue("description"),
		Status:      status,
		Image:       image,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, cat)
}

// UpdateCategory keeps the stored image when no new one is uploaded.
//
// @Summary      Update category
// @Tags         admin
// @Accept       multipart/form-data
// @Produce      json
// @Param        id     path      int   true   "Category id"
// @Param        image  formData  file  false  "Replacement image"
// @Success      200  {object}  domain.Category
// @Router       /admin/categories/{id} [put]
func (h *CatalogHandler) UpdateCategory(c echo.Context) error {
	sess, err := sessionOf(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	image, err := formFile(c, "image")
	if err != nil {
		return err
	}
	status, err := formInt(c, "status")
	if err != nil {
		return err
	}
	cat, err := h.catalog.UpdateCategory(c.Request().Context(), sess, id, forms.CategoryUpdate{
		Name:        c.FormValue("name"),
		Description: c.FormValue("description"),
		Status:      status,
		Image:       image,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, cat)
}

// DeleteCategory handles DELETE /admin/categories/:id.
func (h *CatalogHandler) DeleteCategory(c echo.Context) error {
	sess, err := sessionOf(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.catalog.DeleteCategory(c.Request().Context(), sess, id); err != nil {
		return err
	}
	return respond(c, http.StatusOK, nil)
}

// CreateProduct handles a multipart product form. Variants arrive as a JSON
// array in the "variants" field; a variant's optional image is the file
// field "variants[i].image".
//
// @Summary      Create product
// @Tags         admin
// @Accept       multipart/form-data
// @Produce      json
// @Param        name        formData  string  true  "Name"
// @Param        categoryId  formData  int     true  "Category id"
// @Param        images      formData  file    true  "Product images"
// @Param        variants    formData  string  true  "JSON array of {name, price, quantity}"
// @Success      201  {object}  domain.Product
// @Failure      422  {object}  map[string]string
// @Router       /admin/products [post]
func (h *CatalogHandler) CreateProduct(c echo.Context) error {
	sess, err := sessionOf(c)
	if err != nil {
		return err
	}
	form, err := productFields(c)
	if err != nil {
		return err
	}

	var variants []forms.Variant
	if raw := c.FormValue("variants"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &variants); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "variants must be a JSON array")
		}
	}
	for i := range variants {
		if variants[i].Image, err = formFile(c, fmt.Sprintf("variants[%d].image", i)); err != nil {
			return err
		}
	}

	p, err := h.catalog.CreateProduct(c.Request().Context(), sess, forms.ProductCreate{
		Name:        form.Name,
		Description: form.Description,
		CategoryID:  form.CategoryID,
		Status:      form.Status,
		Images:      form.Images,
		Variants:    variants,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, p)
}

// UpdateProduct edits product fields. Sending variants is rejected.
//
// @Summary      Update product
// @Tags         admin
// @Accept       multipart/form-data
// @Produce      json
// @Param        id  path  int  true  "Product id"
// @Success      200  {object}  domain.Product
// @Failure      422  {object}  map[string]string
// @Router       /admin/products/{id} [put]
func (h *CatalogHandler) UpdateProduct(c echo.Context) error {
	sess, err := sessionOf(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	form, err := productFields(c)
	if err != nil {
		return err
	}
	var variants []forms.Variant
	if raw := c.FormValue("variants"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &variants); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "variants must be a JSON array")
		}
	}
	form.Variants = variants

	p, err := h.catalog.UpdateProduct(c.Request().Context(), sess, id, form)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, p)
}

// DeleteProduct handles DELETE /admin/products/:id.
func (h *CatalogHandler) DeleteProduct(c echo.Context) error {
	sess, err := sessionOf(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.catalog.DeleteProduct(c.Request().Context(), sess, id); err != nil {
		return err
	}
	return respond(c, http.StatusOK, nil)
}

func productFields(c echo.Context) (forms.ProductUpdate, error) {
	images, err := formFiles(c, "images")
	if err != nil {
		return forms.ProductUpdate{}, err
	}
	categoryID, err := formInt(c, "categoryId")
	if err != nil {
		return forms.ProductUpdate{}, err
	}
	status, err := formInt(c, "status")
	if err != nil {
		return forms.ProductUpdate{}, err
	}
	return forms.ProductUpdate{
		Name:        c.FormValue("name"),
		Description: c.FormValue("description"),
		CategoryID:  categoryID,
		Status:      status,
		Images:      images,
	}, nil
}

func formInt(c echo.Context, name string) (int, error) {
	raw := c.FormValue(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return n, nil
}
