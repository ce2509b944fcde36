package controller

import (
	"time"

	"fulfillment/internal/domain"
	shipmentcontroller "fulfillment/internal/shipment/controller"
)

type OrderView struct {
	ID            string     `json:"id"`
	OrderNumber   string     `json:"orderNumber"`
	CustomerEmail string     `json:"customerEmail"`
	TotalAmount   string     `json:"totalAmount"`
	Currency      string     `json:"currency"`
	PaymentState  string     `json:"paymentState"`
	ArchivedAt    *time.Time `json:"archivedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

type ItemView struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
	LineTotal string `json:"lineTotal"`
}

type AddressView struct {
	RecipientName string  `json:"recipientName"`
	Phone         string  `json:"phone"`
	Line1         string  `json:"line1"`
	Line2         *string `json:"line2,omitempty"`
	City          string  `json:"city"`
	PostalCode    string  `json:"postalCode"`
	Country       string  `json:"country"`
}

type ShipmentView struct {
	State          string                             `json:"state"`
	LabelInFlight  bool                               `json:"labelInFlight"`
	PickupInFlight bool                               `json:"pickupInFlight"`
	Dimensions     *shipmentcontroller.DimensionsView `json:"dimensions"`
	Label          *shipmentcontroller.LabelView      `json:"label"`
	Pickup         *shipmentcontroller.PickupView     `json:"pickup"`
	LastError      *string                            `json:"lastError"`
	RetryCount     int                                `json:"retryCount"`
}

type OrderDetailView struct {
	Order           OrderView    `json:"order"`
	Items           []ItemView   `json:"items"`
	ShippingAddress *AddressView `json:"shippingAddress"`
	Shipment        ShipmentView `json:"shipment"`
}

// NewOrderDetailView renders money as fixed two-decimal strings.
func NewOrderDetailView(d *domain.OrderDetail) *OrderDetailView {
	if d == nil {
		return nil
	}

	items := make([]ItemView, 0, len(d.Items))
	for _, it := range d.Items {
		items = append(items, ItemView{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.StringFixed(2),
			LineTotal: it.LineTotal().StringFixed(2),
		})
	}

	var address *AddressView
	if a := d.Address; a != nil {
		address = &AddressView{
			RecipientName: a.RecipientName,
			Phone:         a.Phone,
			Line1:         a.Line1,
			Line2:         a.Line2,
			City:          a.City,
			PostalCode:    a.PostalCode,
			Country:       a.Country,
		}
	}

	s := d.Shipment
	shipment := ShipmentView{
		State:          string(d.State),
		LabelInFlight:  s.LabelInFlight(),
		PickupInFlight: s.PickupInFlight(),
		Dimensions:     shipmentcontroller.NewDimensionsView(s.Dimensions),
		LastError:      s.LastError,
		RetryCount:     s.RetryCount,
	}
	if s.HasActiveLabel() {
		shipment.Label = shipmentcontroller.NewLabelView(d.Order.ID, s.Label)
		shipment.Pickup = shipmentcontroller.NewPickupView(s.Pickup)
	}

	return &OrderDetailView{
		Order: OrderView{
			ID:            d.Order.ID,
			OrderNumber:   d.Order.OrderNumber,
			CustomerEmail: d.Order.CustomerEmail,
			TotalAmount:   d.Order.TotalAmount.StringFixed(2),
			Currency:      d.Order.Currency,
			PaymentState:  string(d.Order.PaymentState),
			ArchivedAt:    d.Order.ArchivedAt,
			CreatedAt:     d.Order.CreatedAt,
		},
		Items:           items,
		ShippingAddress: address,
		Shipment:        shipment,
	}
}
