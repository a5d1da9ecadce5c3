package fakebackend

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/marketplace/storefront/internal/core/domain"
)

func (b *Backend) routes() {
	b.handle("POST /login", b.login)
	b.handle("POST /register", b.register)

	b.handle("GET /categories", b.listCategories)
	b.handle("GET /categories/{id}", b.getCategory)
	b.handle("POST /categories", b.createCategory)
	b.handle("PUT /categories/{id}", b.updateCategory)
	b.handle("DELETE /categories/{id}", b.deleteCategory)

	b.handle("GET /products", b.listProducts)
	b.handle("GET /products/{id}", b.getProduct)
	b.handle("POST /products", b.createProduct)
	b.handle("PUT /products/{id}", b.updateProduct)
	b.handle("DELETE /products/{id}", b.deleteProduct)

	b.handle("GET /cart/me", b.getCart)
	b.handle("POST /cart", b.addToCart)
	b.handle("PUT /cart/items/{id}", b.updateCartItem)
	b.handle("DELETE /cart/items/{id}", b.removeCartItem)

	b.handle("GET /invoices", b.listInvoices)
	b.handle("GET /invoices/{id}", b.getInvoice)
	b.handle("POST /invoices", b.createInvoice)
	b.handle("PUT /invoices/{id}", b.updateInvoice)

	b.handle("GET /users", b.listUsers)
	b.handle("POST /users", b.createUser)
	b.handle("PUT /users/{id}", b.updateUser)
	b.handle("DELETE /users/{id}", b.deleteUser)

	b.handle("GET /conversations", b.listConversations)
	b.handle("POST /conversations", b.createConversation)
	b.handle("GET /conversations/{id}/messages", b.listMessages)
	b.handle("POST /conversations/{id}/messages", b.sendMessage)
}

type credentials struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (b *Backend) profile(a *account) *domain.Profile {
	return &domain.Profile{ID: a.ID, FullName: a.FullName, Email: a.Email, Role: a.Role, Avatar: a.Avatar}
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, a := range b.accounts {
		if !strings.EqualFold(a.Email, in.Email) {
			continue
		}
		if bcrypt.CompareHashAndPassword(a.hash, []byte(in.Password)) != nil {
			break
		}
		if a.Status != domain.AccountEnabled {
			writeError(w, http.StatusForbidden, "Tài khoản đã bị khóa")
			return
		}
		writeJSON(w, http.StatusOK, domain.AuthResult{Token: b.issue(a), User: b.profile(a)})
		return
	}
	writeError(w, http.StatusUnauthorized, "Email hoặc mật khẩu không đúng")
}

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.MinCost)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, a := range b.accounts {
		if strings.EqualFold(a.Email, in.Email) {
			writeError(w, http.StatusConflict, "Email đã được sử dụng")
			return
		}
	}
	a := &account{
		Account: domain.Account{ID: b.id(), FullName: in.FullName, Email: in.Email, Role: domain.RoleUser, Status: domain.AccountEnabled},
		hash:    hash,
	}
	b.accounts[a.ID] = a
	writeJSON(w, http.StatusOK, domain.AuthResult{Token: b.issue(a), User: b.profile(a)})
}

func (b *Backend) listCategories(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.Category, 0, len(b.categories))
	for _, c := range b.categories {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) getCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	c, found := b.categories[id]
	if !found {
		writeError(w, http.StatusNotFound, "Không tìm thấy danh mục")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (b *Backend) createCategory(w http.ResponseWriter, r *http.Request) {
	if _, ok := b.admin(w, r); !ok {
		return
	}
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	files := r.MultipartForm.File["Image"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "Image is required")
		return
	}
	status, _ := strconv.Atoi(r.FormValue("Status"))
	b.mu.Lock()
	defer b.mu.Unlock()
	c := &domain.Category{
		ID:          b.id(),
		Name:        r.FormValue("Name"),
		Description: r.FormValue("Description"),
		Status:      domain.ActiveStatus(status),
	}
	c.Image = fmt.Sprintf("categories/%d/%s", c.ID, files[0].Filename)
	b.categories[c.ID] = c
	writeJSON(w, http.StatusCreated, c)
}

func (b *Backend) updateCategory(w http.ResponseWriter, r *http.Request) {
	if _, ok := b.admin(w, r); !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	status, _ := strconv.Atoi(r.FormValue("Status"))
	b.mu.Lock()
	defer b.mu.Unlock()
	c, found := b.categories[id]
	if !found {
		writeError(w, http.StatusNotFound, "Không tìm thấy danh mục")
		return
	}
	c.Name = r.FormValue("Name")
	c.Description = r.FormValue("Description")
	c.Status = domain.ActiveStatus(status)
	if files := r.MultipartForm.File["Image"]; len(files) > 0 {
		c.Image = fmt.Sprintf("categories/%d/%s", c.ID, files[0].Filename)
	}
	writeJSON(w, http.StatusOK, c)
}

func (b *Backend) deleteCategory(w http.ResponseWriter, r *http.Request) {
	if _, ok := b.admin(w, r); !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.categories, id)
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) listProducts(w http.ResponseWriter, r *http.Request) {
	categoryID, _ := strconv.Atoi(r.URL.Query().Get("categoryId"))
	search := strings.ToLower(r.URL.Query().Get("search"))
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []domain.Product{}
	for _, p := range b.products {
		if categoryID > 0 && p.CategoryID != categoryID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p, found := b.products[id]
	if !found {
		writeError(w, http.StatusNotFound, "Không tìm thấy sản phẩm")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (b *Backend) createProduct(w http.ResponseWriter, r *http.Request) {
	if _, ok := b.admin(w, r); !ok {
		return
	}
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	form := r.MultipartForm
	names := form.Value["ProductTypeNames"]
	prices := form.Value["ProductTypePrices"]
	quantities := form.Value["ProductTypeQuantities"]
	if len(names) != len(prices) || len(names) != len(quantities) {
		writeError(w, http.StatusBadRequest, "variant arrays must have equal length")
		return
	}
	categoryID, _ := strconv.Atoi(r.FormValue("CategoryId"))
	status, _ := strconv.Atoi(r.FormValue("Status"))

	b.mu.Lock()
	defer b.mu.Unlock()
	p := &domain.Product{
		ID:          b.id(),
		Name:        r.FormValue("Name"),
		Description: r.FormValue("Description"),
		CategoryID:  categoryID,
		Status:      domain.ActiveStatus(status),
	}
	for _, fh := range form.File["Images"] {
		p.Images = append(p.Images, fmt.Sprintf("products/%d/%s", p.ID, fh.Filename))
	}
	for i := range names {
		price, _ := strconv.ParseInt(prices[i], 10, 64)
		qty, _ := strconv.Atoi(quantities[i])
		p.ProductTypes = append(p.ProductTypes, domain.ProductType{ID: b.id(), Name: names[i], Price: price, Quantity: qty})
	}
	b.products[p.ID] = p
	writeJSON(w, http.StatusCreated, p)
}

func (b *Backend) updateProduct(w http.ResponseWriter, r *http.Request) {
	if _, ok := b.admin(w, r); !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	categoryID, _ := strconv.Atoi(r.FormValue("CategoryId"))
	status, _ := strconv.Atoi(r.FormValue("Status"))
	b.mu.Lock()
	defer b.mu.Unlock()
	p, found := b.products[id]
	if !found {
		writeError(w, http.StatusNotFound, "Không tìm thấy sản phẩm")
		return
	}
	p.Name = r.FormValue("Name")
	p.Description = r.FormValue("Description")
	p.CategoryID = categoryID
	p.Status = domain.ActiveStatus(status)
	for _, fh := range r.MultipartForm.File["Images"] {
		p.Images = append(p.Images, fmt.Sprintf("products/%d/%s", p.ID, fh.Filename))
	}
	writeJSON(w, http.StatusOK, p)
}

func (b *Backend) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if _, ok := b.admin(w, r); !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.products, id)
	w.WriteHeader(http.StatusNoContent)
}

// variant finds a product type; b.mu must be held.
func (b *Backend) variant(productTypeID int) (*domain.Product, *domain.ProductType) {
	for _, p := range b.products {
		for i := range p.ProductTypes {
			if p.ProductTypes[i].ID == productTypeID {
				return p, &p.ProductTypes[i]
			}
		}
	}
	return nil, nil
}

func (b *Backend) getCart(w http.ResponseWriter, r *http.Request) {
	a, ok := b.authed(w, r)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	items := append([]domain.CartItem{}, b.carts[a.ID]...)
	writeJSON(w, http.StatusOK, domain.Cart{ID: a.ID, UserID: a.ID, Items: items})
}

type cartLine struct {
	ProductTypeID int `json:"productTypeId"`
	Quantity      int `json:"quantity"`
}

func (b *Backend) addToCart(w http.ResponseWriter, r *http.Request) {
	a, ok := b.authed(w, r)
	if !ok {
		return
	}
	var in cartLine
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Quantity <= 0 {
		writeError(w, http.StatusBadRequest, "invalid cart line")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p, pt := b.variant(in.ProductTypeID)
	if pt == nil {
		writeError(w, http.StatusNotFound, "Không tìm thấy sản phẩm")
		return
	}
	items := b.carts[a.ID]
	for i := range items {
		if items[i].ProductTypeID == in.ProductTypeID {
			if items[i].Quantity+in.Quantity > pt.Quantity {
				writeError(w, http.StatusBadRequest, "Sản phẩm đã hết hàng")
				return
			}
			items[i].Quantity += in.Quantity
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	if in.Quantity > pt.Quantity {
		writeError(w, http.StatusBadRequest, "Sản phẩm đã hết hàng")
		return
	}
	b.carts[a.ID] = append(items, domain.CartItem{
		ProductTypeID:   pt.ID,
		ProductTypeName: pt.Name,
		ProductID:       p.ID,
		ProductName:     p.Name,
		Price:           pt.Price,
		Quantity:        in.Quantity,
		Stock:           pt.Quantity,
		Image:           pt.Image,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) updateCartItem(w http.ResponseWriter, r *http.Request) {
	a, ok := b.authed(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	qty, err := strconv.Atoi(r.URL.Query().Get("quantity"))
	if err != nil || qty <= 0 {
		writeError(w, http.StatusBadRequest, "invalid quantity")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	items := b.carts[a.ID]
	for i := range items {
		if items[i].ProductTypeID == id {
			items[i].Quantity = qty
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeError(w, http.StatusNotFound, "Sản phẩm không có trong giỏ hàng")
}

func (b *Backend) removeCartItem(w http.ResponseWriter, r *http.Request) {
	a, ok := b.authed(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	items := b.carts[a.ID]
	for i := range items {
		if items[i].ProductTypeID == id {
			b.carts[a.ID] = append(items[:i:i], items[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeError(w, http.StatusNotFound, "Sản phẩm không có trong giỏ hàng")
}

// listInvoices answers the caller's own invoices, or every invoice for an
// admin when a status parameter is present.
func (b *Backend) listInvoices(w http.ResponseWriter, r *http.Request) {
	a, ok := b.authed(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	_, adminListing := q["status"]
	if adminListing && a.Role != domain.RoleAdmin {
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	}
	status, _ := strconv.Atoi(q.Get("status"))

	b.mu.Lock()
	defer b.mu.Unlock()
	out := []domain.Invoice{}
	for _, inv := range b.invoices {
		if !adminListing && inv.UserID != a.ID {
			continue
		}
		if status != 0 && int(inv.Status) != status {
			continue
		}
		out = append(out, *inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) getInvoice(w http.ResponseWriter, r *http.Request) {
	a, ok := b.authed(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	inv, found := b.invoices[id]
	if !found || (a.Role != domain.RoleAdmin && inv.UserID != a.ID) {
		writeError(w, http.StatusNotFound, "Không tìm thấy đơn hàng")
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (b *Backend) createInvoice(w http.ResponseWriter, r *http.Request) {
	a, ok := b.authed(w, r)
	if !ok {
		return
	}
	var in domain.NewInvoice
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || len(in.Items) == 0 {
		writeError(w, http.StatusBadRequest, "invoice requires items")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	inv := &domain.Invoice{
		ID:           b.id(),
		UserID:       a.ID,
		CustomerName: a.FullName,
		Address:      in.Address,
		Status:       domain.InvoicePending,
		CreatedAt:    b.now(),
		VoucherID:    in.VoucherID,
		Notes:        in.Notes,
	}
	for _, line := range in.Items {
		p, pt := b.variant(line.ProductTypeID)
		if pt == nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown product type %d", line.ProductTypeID))
			return
		}
		amount := pt.Price * int64(line.Quantity)
		inv.Items = append(inv.Items, domain.InvoiceItem{
			ProductTypeID:   pt.ID,
			ProductTypeName: pt.Name,
			ProductName:     p.Name,
			Quantity:        line.Quantity,
			Amount:          amount,
		})
		inv.Total += amount
	}
	inv.PaymentIntentID = fmt.Sprintf("pi_%d", inv.ID)
	b.invoices[inv.ID] = inv
	writeJSON(w, http.StatusOK, domain.PaymentIntent{InvoiceID: inv.ID, ClientSecret: inv.PaymentIntentID + "_secret"})
}

func (b *Backend) updateInvoice(w http.ResponseWriter, r *http.Request) {
	a, ok := b.authed(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in domain.InvoiceUpdate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	inv, found := b.invoices[id]
	if !found || (a.Role != domain.RoleAdmin && inv.UserID != a.ID) {
		writeError(w, http.StatusNotFound, "Không tìm thấy đơn hàng")
		return
	}
	if in.Status != nil {
		next := *in.Status
		forward := next != domain.InvoiceCancelled
		if forward && a.Role != domain.RoleAdmin {
			writeError(w, http.StatusForbidden, "Forbidden")
			return
		}
		if !inv.Status.CanTransitionTo(next) {
			writeError(w, http.StatusBadRequest, "Trạng thái đơn hàng không hợp lệ")
			return
		}
		inv.Status = next
	}
	if in.Notes != nil {
		inv.Notes = *in.Notes
	}
	if in.Address != nil {
		inv.Address = *in.Address
	}
	writeJSON(w, http.StatusOK, inv)
}

func (b *Backend) listUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := b.admin(w, r); !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.Account, 0, len(b.accounts))
	for _, a := range b.accounts {
		out = append(out, a.Account)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

type accountBody struct {
	FullName string                `json:"fullName"`
	Email    string                `json:"email"`
	Phone    string                `json:"phone"`
	Address  string                `json:"address"`
	Password string                `json:"password"`
	Role     string                `json:"role"`
	Status   *domain.AccountStatus `json:"status"`
}

func (b *Backend) createUser(w http.ResponseWriter, r *http.Request) {
	if _, ok := b.admin(w, r); !ok {
		return
	}
	var in accountBody
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.MinCost)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	a := &account{
		Account: domain.Account{
			ID:       b.id(),
			FullName: in.FullName,
			Email:    in.Email,
			Phone:    in.Phone,
			Role:     domain.ParseRole(in.Role),
			Status:   domain.AccountEnabled,
		},
		hash: hash,
	}
	b.accounts[a.ID] = a
	writeJSON(w, http.StatusCreated, a.Account)
}

func (b *Backend) updateUser(w http.ResponseWriter, r *http.Request) {
	if _, ok := b.admin(w, r); !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in accountBody
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	a, found := b.accounts[id]
	if !found {
		writeError(w, http.StatusNotFound, "Không tìm thấy tài khoản")
		return
	}
	if in.FullName != "" {
		a.FullName = in.FullName
	}
	if in.Email != "" {
		a.Email = in.Email
	}
	if in.Phone != "" {
		a.Phone = in.Phone
	}
	if in.Address != "" {
		a.Address = in.Address
	}
	if in.Role != "" {
		a.Role = domain.ParseRole(in.Role)
	}
	if in.Status != nil {
		a.Status = *in.Status
	}
	writeJSON(w, http.StatusOK, a.Account)
}

func (b *Backend) deleteUser(w http.ResponseWriter, r *http.Request) {
	if _, ok := b.admin(w, r); !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.accounts, id)
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) listConversations(w http.ResponseWriter, r *http.Request) {
	a, ok := b.authed(w, r)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []domain.Conversation{}
	for _, c := range b.conversations {
		if c.CustomerID == a.ID || c.AdminID == a.ID || a.Role == domain.RoleAdmin {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) createConversation(w http.ResponseWriter, r *http.Request) {
	a, ok := b.authed(w, r)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	c := &domain.Conversation{ID: b.id(), CustomerID: a.ID, CustomerName: a.FullName, UpdatedAt: b.now()}
	for _, other := range b.accounts {
		if other.Role == domain.RoleAdmin {
			c.AdminID, c.AdminName = other.ID, other.FullName
			break
		}
	}
	b.conversations[c.ID] = c
	writeJSON(w, http.StatusCreated, c)
}

// member reports whether a may read conversation id; b.mu must be held.
func (b *Backend) member(a *account, id int) bool {
	c, found := b.conversations[id]
	return found && (c.CustomerID == a.ID || c.AdminID == a.ID || a.Role == domain.RoleAdmin)
}

func (b *Backend) listMessages(w http.ResponseWriter, r *http.Request) {
	a, ok := b.authed(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.member(a, id) {
		writeError(w, http.StatusNotFound, "Không tìm thấy cuộc trò chuyện")
		return
	}
	out := append([]domain.Message{}, b.messages[id]...)
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) sendMessage(w http.ResponseWriter, r *http.Request) {
	a, ok := b.authed(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in struct {
		Content string             `json:"content"`
		Type    domain.MessageKind `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || strings.TrimSpace(in.Content) == "" {
		writeError(w, http.StatusBadRequest, "Nội dung tin nhắn trống")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.member(a, id) {
		writeError(w, http.StatusNotFound, "Không tìm thấy cuộc trò chuyện")
		return
	}
	m := domain.Message{ID: b.id(), ConversationID: id, SenderID: a.ID, Content: in.Content, Type: in.Type, CreatedAt: b.now()}
	b.messages[id] = append(b.messages[id], m)
	b.conversations[id].LastMessage = in.Content
	b.conversations[id].UpdatedAt = m.CreatedAt
	writeJSON(w, http.StatusCreated, m)
}
