package cart

// CheckoutLine is the compact line shape handed to checkout.
type CheckoutLine struct {
	SKU  string `json:"sku"`
	Size int    `json:"size"`
	Qty  int    `json:"qty"`
}

// CheckoutPayload summarises a cart for checkout.
type CheckoutPayload struct {
	Items []CheckoutLine `json:"items"`
	Total int64          `json:"total"`
}

// BuildCheckout derives the checkout payload from items.
func BuildCheckout(items []Item) CheckoutPayload {
	lines := make([]CheckoutLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, CheckoutLine{SKU: it.SKU, Size: it.Size, Qty: it.Quantity})
	}
	return CheckoutPayload{Items: lines, Total: Subtotal(items)}
}
