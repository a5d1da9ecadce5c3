package forms

import "github.com/marketplace/storefront/internal/core/domain"

type Login struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type Register struct {
	FullName        string `json:"fullName"        validate:"required"`
	Email           string `json:"email"           validate:"required,email"`
	Password        string `json:"password"        validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

// CategoryCreate requires an image; CategoryUpdate keeps the existing image
// when none is uploaded.
type CategoryCreate struct {
	Name        string         `json:"name"        validate:"required,max=200"`
	Description string         `json:"description"`
	Status      int            `json:"status"      validate:"oneof=0 1"`
	Image       *domain.Upload `json:"image"       validate:"required"`
}

type CategoryUpdate struct {
	Name        string         `json:"name"        validate:"required,max=200"`
	Description string         `json:"description"`
	Status      int            `json:"status"      validate:"oneof=0 1"`
	Image       *domain.Upload `json:"image"`
}

type Variant struct {
	Name     string         `json:"name"     validate:"required"`
	Price    int64          `json:"price"    validate:"gt=0"`
	Quantity int            `json:"quantity" validate:"gte=0"`
	Image    *domain.Upload `json:"image"`
}

type ProductCreate struct {
	Name        string          `json:"name"        validate:"required,max=200"`
	Description string          `json:"description"`
	CategoryID  int             `json:"categoryId"  validate:"gt=0"`
	Status      int             `json:"status"      validate:"oneof=0 1"`
	Images      []domain.Upload `json:"images"      validate:"required,min=1"`
	Variants    []Variant       `json:"variants"    validate:"required,min=1,dive"`
}

// ProductUpdate edits product fields and may add images. Variants cannot be
// changed once a product exists.
type ProductUpdate struct {
	Name        string          `json:"name"        validate:"required,max=200"`
	Description string          `json:"description"`
	CategoryID  int             `json:"categoryId"  validate:"gt=0"`
	Status      int             `json:"status"      validate:"oneof=0 1"`
	Images      []domain.Upload `json:"images"`
	// Variants is only accepted so an attempted variant edit can be refused.
	Variants []Variant `json:"variants"`
}

type AccountCreate struct {
	FullName        string `json:"fullName"        validate:"required"`
	Email           string `json:"email"           validate:"required,email"`
	Phone           string `json:"phone"`
	Password        string `json:"password"        validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	Role            string `json:"role"            validate:"required,oneof=Admin Manager User"`
}

type AccountUpdate struct {
	FullName string `json:"fullName" validate:"required"`
	Email    string `json:"email"    validate:"required,email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

type RoleChange struct {
	Role string `json:"role" validate:"required,oneof=Admin Manager User"`
}

type CartLine struct {
	ProductTypeID int `json:"productTypeId" validate:"gt=0"`
	Quantity      int `json:"quantity"      validate:"gt=0"`
}

type Checkout struct {
	Items     []CartLine `json:"items"     validate:"required,min=1,dive"`
	FromCart  bool       `json:"fromCart"`
	VoucherID *int       `json:"voucherId"`
	Notes     string     `json:"notes"     validate:"max=500"`
}

type Address struct {
	Address string `json:"address" validate:"required,min=5"`
}

type Cancel struct {
	Reason string `json:"reason" validate:"required"`
}

type Message struct {
	Content string `json:"content" validate:"required,max=2000"`
}
