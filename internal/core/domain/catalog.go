package domain

// ActiveStatus is the on/off flag shared by categories and products.
type ActiveStatus int

const (
	StatusInactive ActiveStatus = 0
	StatusActive   ActiveStatus = 1
)

// Category is a backend-owned product category.
type Category struct {
	ID          int          `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Image       string       `json:"image"`
	Status      ActiveStatus `json:"status"`
}

// ProductType is a purchasable variant of a product.
type ProductType struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
	Image    string `json:"image,omitempty"`
}

// Product is a catalog entry. Its variants are created together with it and
// cannot be edited afterwards.
type Product struct {
	ID           int           `json:"id"`
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	CategoryID   int           `json:"categoryId"`
	CategoryName string        `json:"categoryName,omitempty"`
	Status       ActiveStatus  `json:"status"`
	Images       []string      `json:"images"`
	ProductTypes []ProductType `json:"productTypes"`
}

// MinPrice returns the cheapest variant price, or 0 when there are no variants.
func (p Product) MinPrice() int64 {
	var min int64
	for i, t := range p.ProductTypes {
		if i == 0 || t.Price < min {
			min = t.Price
		}
	}
	return min
}

// InStock reports whether any variant has stock left.
func (p Product) InStock() bool {
	for _, t := range p.ProductTypes {
		if t.Quantity > 0 {
			return true
		}
	}
	return false
}

// Upload is a file picked in a form and forwarded to the backend as multipart.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}
