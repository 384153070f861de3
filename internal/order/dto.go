package order

// CreateOrderLine payload de ítem.
// swagger:model CreateOrderLine
type CreateOrderLine struct {
	LineItemID string `json:"line_item_id" example:"4e7d4e5c-5cb9-4a3f-9f21-7e1a4f9f2b2a"`
	Quantity   int    `json:"quantity"  example:"2"`
	UnitPrice  string `json:"unit_price" example:"50000"`
}

// CreateOrderRequest payload de creación de orden.
// swagger:model CreateOrderRequest
type CreateOrderRequest struct {
	CustomerID      string            `json:"customer_id,omitempty"`
	Lines           []CreateOrderLine `json:"lines"`
	PaymentMethod   PaymentMethod     `json:"payment_method" example:"COD"`
	ShippingAddress string            `json:"shipping_address,omitempty"`
	Notes           string            `json:"notes,omitempty"`
}

// CreateOrderResponse respuesta mínima tras crear la orden.
// swagger:model CreateOrderResponse
type CreateOrderResponse struct {
	ID     string `json:"id"`
	Status Status `json:"status"`
}

// StatusPatchRequest transición de estado solicitada por un orquestador.
// swagger:model StatusPatchRequest
type StatusPatchRequest struct {
	Status Status `json:"status" example:"CONFIRMED"`
	Note   string `json:"note,omitempty"`
}

// PaymentStatusPatchRequest marca el pago como liquidado.
// swagger:model PaymentStatusPatchRequest
type PaymentStatusPatchRequest struct {
	PaymentStatus PaymentStatus `json:"payment_status" example:"PAID"`
}

// PreviewRequest líneas a cotizar. Unit prices ride along because the
// pipeline has no catalog service to resolve them from.
// swagger:model PreviewRequest
type PreviewRequest struct {
	Lines []CreateOrderLine `json:"lines"`
}

// PricingPreview totales recalculados para el carrito actual.
// swagger:model PricingPreview
type PricingPreview struct {
	OriginalAmount    string     `json:"original_amount"`
	DiscountAmount    string     `json:"discount_amount"`
	ShippingFee       string     `json:"shipping_fee"`
	VATAmount         string     `json:"vat_amount"`
	FinalAmount       string     `json:"final_amount"`
	AppliedPromotions []string   `json:"applied_promotions"`
	GiftItems         []GiftItem `json:"gift_items"`
}

// GiftItem obsequio otorgado por promoción.
// swagger:model GiftItem
type GiftItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}
