package controller

import (
	"time"

	"fulfillment/internal/domain"
)

type DimensionsView struct {
	Weight float64 `json:"weight"`
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type LabelView struct {
	TrackingNumber string    `json:"trackingNumber"`
	CarrierRef     string    `json:"carrierRef,omitempty"`
	ServiceCode    string    `json:"serviceCode,omitempty"`
	ContentType    string    `json:"contentType"`
	ArtifactURL    string    `json:"artifactUrl"`
	GeneratedAt    time.Time `json:"generatedAt"`
}

type PickupView struct {
	Requested   bool       `json:"requested"`
	RequestedAt *time.Time `json:"requestedAt,omitempty"`
	Confirmed   bool       `json:"confirmed"`
	CarrierRef  string     `json:"carrierRef,omitempty"`
}

func NewDimensionsView(d *domain.ShipmentDimensions) *DimensionsView {
	if d == nil {
		return nil
	}
	return &DimensionsView{Weight: d.Weight, Length: d.Length, Width: d.Width, Height: d.Height}
}

// NewLabelView exposes the artifact through this service rather than the
// bucket key.
func NewLabelView(orderID string, l *domain.ShipmentLabel) *LabelView {
	if l == nil {
		return nil
	}
	return &LabelView{
		TrackingNumber: l.TrackingNumber,
		CarrierRef:     l.CarrierRef,
		ServiceCode:    l.ServiceCode,
		ContentType:    l.Artifact.ContentType,
		ArtifactURL:    "/shipping/label/" + orderID + "/artifact",
		GeneratedAt:    l.GeneratedAt,
	}
}

func NewPickupView(p *domain.PickupRequest) *PickupView {
	if p == nil {
		return nil
	}
	return &PickupView{
		Requested:   p.Requested,
		RequestedAt: p.RequestedAt,
		Confirmed:   p.Confirmed,
		CarrierRef:  p.CarrierRef,
	}
}
