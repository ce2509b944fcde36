package usecase

import (
	"github.com/shopspring/decimal"

	"fulfillment/internal/domain"
	"fulfillment/internal/shipment/carrier"
)

func buildLabelRequest(detail *domain.OrderDetail, dims domain.ShipmentDimensions, accountCode, serviceCode string) carrier.LabelRequest {
	contents := make([]carrier.Content, 0, len(detail.Items))
	declared := decimal.Zero
	for _, item := range detail.Items {
		contents = append(contents, carrier.Content{
			SKU:         item.ProductID,
			Description: item.Name,
			Quantity:    item.Quantity,
			UnitValue:   item.UnitPrice.StringFixed(2),
		})
		declared = declared.Add(item.LineTotal())
	}

	return carrier.LabelRequest{
		Reference:     detail.Order.OrderNumber,
		AccountCode:   accountCode,
		ServiceCode:   serviceCode,
		Recipient:     carrierAddress(detail.Address),
		Parcel:        carrier.Parcel{WeightKg: dims.Weight, LengthCm: dims.Length, WidthCm: dims.Width, HeightCm: dims.Height},
		Contents:      contents,
		DeclaredValue: declared.StringFixed(2),
		Currency:      detail.Order.Currency,
	}
}

func carrierAddress(a *domain.ShippingAddress) carrier.Address {
	addr := carrier.Address{
		Name:       a.RecipientName,
		Phone:      a.Phone,
		Line1:      a.Line1,
		City:       a.City,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
	if a.Line2 != nil {
		addr.Line2 = *a.Line2
	}
	return addr
}
