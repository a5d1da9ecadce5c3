package domain

// CartItem is one (product type, quantity) line of a cart.
type CartItem struct {
	ProductTypeID   int    `json:"productTypeId"`
	ProductTypeName string `json:"productTypeName,omitempty"`
	ProductID       int    `json:"productId,omitempty"`
	ProductName     string `json:"productName,omitempty"`
	Price           int64  `json:"price"`
	Quantity        int    `json:"quantity"`
	Stock           int    `json:"stock,omitempty"`
	Image           string `json:"image,omitempty"`
}

// Cart is owned by exactly one user.
type Cart struct {
	ID     int        `json:"id"`
	UserID int        `json:"userId"`
	Items  []CartItem `json:"items"`
}

// Total is the sum of price*quantity over all lines.
func (c Cart) Total() int64 {
	var total int64
	for _, it := range c.Items {
		total += it.Price * int64(it.Quantity)
	}
	return total
}

// Find returns the line for productTypeID, if any.
func (c Cart) Find(productTypeID int) (CartItem, bool) {
	for _, it := range c.Items {
		if it.ProductTypeID == productTypeID {
			return it, true
		}
	}
	return CartItem{}, false
}
