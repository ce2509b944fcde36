package domain

import "time"

type ShipmentState string

const (
	ShipmentStateNoDimensions          ShipmentState = "NO_DIMENSIONS"
	ShipmentStateDimensionsSet         ShipmentState = "DIMENSIONS_SET"
	ShipmentStateLabelGenerationFailed ShipmentState = "LABEL_GENERATION_FAILED"
	ShipmentStateLabelGenerated        ShipmentState = "LABEL_GENERATED"
	ShipmentStatePickupRequested       ShipmentState = "PICKUP_REQUESTED"
	ShipmentStatePickupConfirmed       ShipmentState = "PICKUP_CONFIRMED"
)

// LabelStatus is the persisted label column. GENERATING marks a claimed,
// in-flight carrier purchase.
type LabelStatus string

const (
	LabelStatusNone       LabelStatus = "NONE"
	LabelStatusGenerating LabelStatus = "GENERATING"
	LabelStatusActive     LabelStatus = "ACTIVE"
)

type PickupStatus string

const (
	PickupStatusNone       PickupStatus = "NONE"
	PickupStatusRequesting PickupStatus = "REQUESTING"
	PickupStatusRequested  PickupStatus = "REQUESTED"
	PickupStatusConfirmed  PickupStatus = "CONFIRMED"
)

type ShipmentDimensions struct {
	Weight float64
	Length float64
	Width  float64
	Height float64
}

type LabelArtifact struct {
	Key         string
	ContentType string
}

type ShipmentLabel struct {
	TrackingNumber string
	Artifact       LabelArtifact
	CarrierRef     string
	ServiceCode    string
	GeneratedAt    time.Time
}

type PickupRequest struct {
	Requested   bool
	RequestedAt *time.Time
	Confirmed   bool
	CarrierRef  string
}

// Shipment is the persisted per-order shipment row. A missing row is
// equivalent to the zero value with NONE statuses.
type Shipment struct {
	OrderID         string
	Dimensions      *ShipmentDimensions
	LabelStatus     LabelStatus
	LabelClaimToken string
	LabelClaimedAt  *time.Time
	Label           *ShipmentLabel
	LastError       *string
	RetryCount      int
	PickupStatus    PickupStatus
	Pickup          *PickupRequest
	PickupLastError *string
	UpdatedAt       time.Time
}

func NewShipment(orderID string) Shipment {
	return Shipment{
		OrderID:      orderID,
		LabelStatus:  LabelStatusNone,
		PickupStatus: PickupStatusNone,
	}
}

func (s Shipment) HasActiveLabel() bool {
	return s.LabelStatus == LabelStatusActive && s.Label != nil
}

func (s Shipment) LabelInFlight() bool {
	return s.LabelStatus == LabelStatusGenerating
}

func (s Shipment) PickupInFlight() bool {
	return s.PickupStatus == PickupStatusRequesting
}

// PickupClaimHeld reports a REQUESTING claim taken at or after staleBefore.
// Older claims belong to a requester that never finished and may be
// overridden.
func (s Shipment) PickupClaimHeld(staleBefore time.Time) bool {
	if !s.PickupInFlight() {
		return false
	}
	if s.Pickup == nil || s.Pickup.RequestedAt == nil {
		return true
	}
	return !s.Pickup.RequestedAt.Before(staleBefore)
}

// DeriveShipmentState projects the persisted fields onto the finite shipment
// state set. It is the only place the state is computed.
func DeriveShipmentState(s Shipment) ShipmentState {
	if s.Dimensions == nil {
		return ShipmentStateNoDimensions
	}

	if !s.HasActiveLabel() {
		if s.LastError != nil && *s.LastError != "" {
			return ShipmentStateLabelGenerationFailed
		}
		return ShipmentStateDimensionsSet
	}

	switch s.PickupStatus {
	case PickupStatusRequested:
		return ShipmentStatePickupRequested
	case PickupStatusConfirmed:
		return ShipmentStatePickupConfirmed
	default:
		return ShipmentStateLabelGenerated
	}
}
