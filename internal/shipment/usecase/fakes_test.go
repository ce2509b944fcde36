package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"fulfillment/internal/domain"
	apperrors "fulfillment/internal/errors"
	"fulfillment/internal/infrastructure/metrics"
	"fulfillment/internal/shipment/carrier"
	"fulfillment/internal/validation"
)

// memoryShipments applies the same preconditions as the SQL conditional writes.
type memoryShipments struct {
	mu   sync.Mutex
	rows map[string]*domain.Shipment
}

func newMemoryShipments() *memoryShipments {
	return &memoryShipments{rows: map[string]*domain.Shipment{}}
}

func (m *memoryShipments) row(orderID string) *domain.Shipment {
	s, ok := m.rows[orderID]
	if !ok {
		fresh := domain.NewShipment(orderID)
		s = &fresh
		m.rows[orderID] = s
	}
	return s
}

func (m *memoryShipments) FindByOrderID(ctx context.Context, orderID string) (domain.Shipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[orderID]
	if !ok {
		return domain.NewShipment(orderID), nil
	}
	return *s, nil
}

func (m *memoryShipments) SetDimensions(ctx context.Context, orderID string, d domain.ShipmentDimensions) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.row(orderID)
	if s.LabelStatus != domain.LabelStatusNone {
		return false, nil
	}
	s.Dimensions = &d
	return true, nil
}

func (m *memoryShipments) ClaimLabel(ctx context.Context, orderID, token string, at, staleBefore time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.row(orderID)
	if s.Dimensions == nil {
		return false, nil
	}
	stale := s.LabelStatus == domain.LabelStatusGenerating && s.LabelClaimedAt != nil && s.LabelClaimedAt.Before(staleBefore)
	if s.LabelStatus != domain.LabelStatusNone && !stale {
		return false, nil
	}
	s.LabelStatus = domain.LabelStatusGenerating
	s.LabelClaimToken = token
	s.LabelClaimedAt = &at
	return true, nil
}

func (m *memoryShipments) CompleteLabel(ctx context.Context, orderID, token string, label domain.ShipmentLabel) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.row(orderID)
	if s.LabelStatus != domain.LabelStatusGenerating || s.LabelClaimToken != token {
		return false, nil
	}
	s.LabelStatus = domain.LabelStatusActive
	s.LabelClaimToken = ""
	s.LabelClaimedAt = nil
	s.Label = &label
	s.LastError = nil
	return true, nil
}

func (m *memoryShipments) FailLabel(ctx context.Context, orderID, token, message string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.row(orderID)
	if s.LabelStatus == domain.LabelStatusGenerating && s.LabelClaimToken == token {
		s.LabelStatus = domain.LabelStatusNone
		s.LabelClaimToken = ""
		s.LabelClaimedAt = nil
		s.LastError = &message
		s.RetryCount++
	}
	return s.RetryCount, nil
}

func (m *memoryShipments) ClearLabel(ctx context.Context, orderID, trackingNumber string, staleBefore time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.row(orderID)
	if !s.HasActiveLabel() || s.Label.TrackingNumber != trackingNumber || s.PickupClaimHeld(staleBefore) {
		return false, nil
	}
	s.LabelStatus = domain.LabelStatusNone
	s.Label = nil
	s.PickupStatus = domain.PickupStatusNone
	s.Pickup = nil
	s.PickupLastError = nil
	return true, nil
}

func (m *memoryShipments) ClaimPickup(ctx context.Context, orderID string, at, staleBefore time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.row(orderID)
	if !s.HasActiveLabel() {
		return false, nil
	}
	if s.PickupStatus != domain.PickupStatusNone && (s.PickupStatus != domain.PickupStatusRequesting || s.PickupClaimHeld(staleBefore)) {
		return false, nil
	}
	s.PickupStatus = domain.PickupStatusRequesting
	s.Pickup = &domain.PickupRequest{RequestedAt: &at}
	return true, nil
}

func (m *memoryShipments) CompletePickup(ctx context.Context, orderID, pickupRef string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.row(orderID)
	if !s.HasActiveLabel() || s.PickupStatus != domain.PickupStatusRequesting {
		return false, nil
	}
	s.PickupStatus = domain.PickupStatusRequested
	s.Pickup = &domain.PickupRequest{Requested: true, RequestedAt: &at, CarrierRef: pickupRef}
	s.PickupLastError = nil
	return true, nil
}

func (m *memoryShipments) FailPickup(ctx context.Context, orderID, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.row(orderID)
	if s.PickupStatus == domain.PickupStatusRequesting {
		s.PickupStatus = domain.PickupStatusNone
		s.Pickup = nil
		s.PickupLastError = &message
	}
	return nil
}

func (m *memoryShipments) ConfirmPickup(ctx context.Context, orderID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.row(orderID)
	if !s.HasActiveLabel() || s.PickupStatus != domain.PickupStatusRequested {
		return false, nil
	}
	s.PickupStatus = domain.PickupStatusConfirmed
	s.Pickup.Confirmed = true
	return true, nil
}

type mockOrderLoader struct {
	LoadOrderFunc func(ctx context.Context, orderID string) (*domain.OrderDetail, error)
}

func (m *mockOrderLoader) LoadOrder(ctx context.Context, orderID string) (*domain.OrderDetail, error) {
	return m.LoadOrderFunc(ctx, orderID)
}

type mockCarrier struct {
	labelCalls        int32
	voidCalls         int32
	pickupCalls       int32
	CreateLabelFunc   func(ctx context.Context, key string, req carrier.LabelRequest) (*carrier.LabelResponse, error)
	VoidLabelFunc     func(ctx context.Context, trackingNumber string) error
	RequestPickupFunc func(ctx context.Context, key string, req carrier.PickupRequest) (*carrier.PickupResponse, error)
}

func (m *mockCarrier) CreateLabel(ctx context.Context, key string, req carrier.LabelRequest) (*carrier.LabelResponse, error) {
	atomic.AddInt32(&m.labelCalls, 1)
	return m.CreateLabelFunc(ctx, key, req)
}

func (m *mockCarrier) VoidLabel(ctx context.Context, trackingNumber string) error {
	atomic.AddInt32(&m.voidCalls, 1)
	return m.VoidLabelFunc(ctx, trackingNumber)
}

func (m *mockCarrier) RequestPickup(ctx context.Context, key string, req carrier.PickupRequest) (*carrier.PickupResponse, error) {
	atomic.AddInt32(&m.pickupCalls, 1)
	return m.RequestPickupFunc(ctx, key, req)
}

type memoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	PutErr  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memoryStore) Key(orderID, claimToken string) string {
	return "labels/" + orderID + "/" + claimToken
}

func (m *memoryStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if m.PutErr != nil {
		return m.PutErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

func (m *memoryStore) Get(ctx context.Context, key string) ([]byte, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, "", apperrors.NewNotFoundError("artifact not found")
	}
	return data, m.types[key], nil
}

func (m *memoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

type nopCache struct{}

func (nopCache) Invalidate(ctx context.Context, orderID string) error { return nil }

// Helpers

type harness struct {
	repo    *memoryShipments
	carrier *mockCarrier
	store   *memoryStore
	orders  *mockOrderLoader

	dimensions *DimensionsUseCase
	labels     *LabelUseCase
	pickups    *PickupUseCase
	status     *StatusUseCase
}

func testOrderDetail(orderID string) *domain.OrderDetail {
	return &domain.OrderDetail{
		Order: domain.Order{
			ID:           orderID,
			OrderNumber:  "SF-" + orderID,
			Currency:     "EUR",
			TotalAmount:  decimal.RequireFromString("42.50"),
			PaymentState: domain.PaymentStatePaid,
		},
		Items: []domain.OrderItem{
			{ProductID: "SKU-1", Name: "Linen shirt", Quantity: 2, UnitPrice: decimal.RequireFromString("21.25")},
		},
		Address: &domain.ShippingAddress{
			RecipientName: "Jane Doe",
			Phone:         "+33100000000",
			Line1:         "1 Rue de Rivoli",
			City:          "Paris",
			PostalCode:    "75001",
			Country:       "FR",
		},
	}
}

func newHarness() *harness {
	h := &harness{
		repo:  newMemoryShipments(),
		store: newMemoryStore(),
	}
	h.orders = &mockOrderLoader{
		LoadOrderFunc: func(ctx context.Context, orderID string) (*domain.OrderDetail, error) {
			if orderID == "missing" {
				return nil, apperrors.NewNotFoundError("order missing not found")
			}
			return testOrderDetail(orderID), nil
		},
	}
	var seq int32
	h.carrier = &mockCarrier{
		CreateLabelFunc: func(ctx context.Context, key string, req carrier.LabelRequest) (*carrier.LabelResponse, error) {
			n := atomic.AddInt32(&seq, 1)
			return &carrier.LabelResponse{
				TrackingNumber: "XY" + string(rune('0'+n)) + "FR",
				CarrierRef:     "shp_" + key,
				Document:       []byte("%PDF-1.4"),
				ContentType:    "application/pdf",
			}, nil
		},
		VoidLabelFunc: func(ctx context.Context, trackingNumber string) error { return nil },
		RequestPickupFunc: func(ctx context.Context, key string, req carrier.PickupRequest) (*carrier.PickupResponse, error) {
			return &carrier.PickupResponse{PickupRef: "pk_1", ScheduledFor: time.Now().Add(24 * time.Hour)}, nil
		},
	}

	m := metrics.New(prometheus.NewRegistry())
	logger := zap.NewNop()
	h.dimensions = NewDimensionsUseCase(h.orders, h.repo, nopCache{}, validation.New(), logger)
	h.labels = NewLabelUseCase(h.orders, h.repo, h.carrier, h.store, nopCache{}, m, logger, "ACC-1", "EXPRESS", time.Minute)
	h.pickups = NewPickupUseCase(h.orders, h.repo, h.carrier, nopCache{}, m, logger, "ACC-1", time.Minute)
	h.status = NewStatusUseCase(h.orders, h.repo)
	return h
}

func f64(v float64) *float64 { return &v }

func dims(orderID string, w, l, wd, ht float64) SetDimensionsCommand {
	return SetDimensionsCommand{OrderID: orderID, Weight: f64(w), Length: f64(l), Width: f64(wd), Height: f64(ht)}
}
