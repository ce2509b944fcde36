package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fulfillment/internal/domain"
	apperrors "fulfillment/internal/errors"
	"fulfillment/internal/shipment/carrier"
)

func TestLabelUseCase_GenerateLabel_Success(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	var captured carrier.LabelRequest
	var capturedKey string
	h.carrier.CreateLabelFunc = func(ctx context.Context, key string, req carrier.LabelRequest) (*carrier.LabelResponse, error) {
		captured = req
		capturedKey = key
		return &carrier.LabelResponse{
			TrackingNumber: "XY123FR",
			CarrierRef:     "shp_1",
			Document:       []byte("%PDF-1.4"),
			ContentType:    "application/pdf",
		}, nil
	}

	require.NoError(t, h.dimensions.SetDimensions(ctx, dims("O1", 2.0, 30, 20, 10)))

	label, err := h.labels.GenerateLabel(ctx, "O1")
	require.NoError(t, err)
	assert.Equal(t, "XY123FR", label.TrackingNumber)
	assert.Equal(t, "shp_1", label.CarrierRef)
	assert.Equal(t, "EXPRESS", label.ServiceCode)
	assert.Equal(t, "labels/O1/"+capturedKey, label.Artifact.Key)

	assert.Equal(t, "SF-O1", captured.Reference)
	assert.Equal(t, "ACC-1", captured.AccountCode)
	assert.Equal(t, carrier.Parcel{WeightKg: 2.0, LengthCm: 30, WidthCm: 20, HeightCm: 10}, captured.Parcel)
	assert.Equal(t, "Jane Doe", captured.Recipient.Name)
	assert.Equal(t, "42.50", captured.DeclaredValue)
	require.Len(t, captured.Contents, 1)
	assert.Equal(t, 2, captured.Contents[0].Quantity)

	s, _ := h.repo.FindByOrderID(ctx, "O1")
	assert.Equal(t, domain.ShipmentStateLabelGenerated, domain.DeriveShipmentState(s))

	doc, err := h.labels.GetLabelArtifact(ctx, "O1")
	require.NoError(t, err)
	assert.Equal(t, "XY123FR", doc.TrackingNumber)
	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.Equal(t, []byte("%PDF-1.4"), doc.Data)
}

func TestLabelUseCase_GenerateLabel_RequiresDimensions(t *testing.T) {
	h := newHarness()

	_, err := h.labels.GenerateLabel(context.Background(), "O1")
	_, ok := apperrors.IsValidationError(err)
	assert.True(t, ok, "expected ValidationError, got %v", err)
	assert.Equal(t, int32(0), atomic.LoadInt32(&h.carrier.labelCalls))
}

func TestLabelUseCase_GenerateLabel_RequiresAddress(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	h.orders.LoadOrderFunc = func(ctx context.Context, orderID string) (*domain.OrderDetail, error) {
		detail := testOrderDetail(orderID)
		detail.Address = nil
		return detail, nil
	}

	require.NoError(t, h.dimensions.SetDimensions(ctx, dims("O1", 2.0, 30, 20, 10)))

	_, err := h.labels.GenerateLabel(ctx, "O1")
	verr, ok := apperrors.IsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "shippingAddress", verr.Details[0].Field)
	assert.Equal(t, int32(0), atomic.LoadInt32(&h.carrier.labelCalls))
}

func TestLabelUseCase_GenerateLabel_DuplicateWhileActive(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	require.NoError(t, h.dimensions.SetDimensions(ctx, dims("O1", 2.0, 30, 20, 10)))
	_, err := h.labels.GenerateLabel(ctx, "O1")
	require.NoError(t, err)

	_, err = h.labels.GenerateLabel(ctx, "O1")
	derr, ok := apperrors.IsDuplicateOperationError(err)
	require.True(t, ok, "expected DuplicateOperationError, got %v", err)
	assert.Equal(t, string(domain.ShipmentStateLabelGenerated), derr.CurrentState)
	assert.Equal(t, int32(1), atomic.LoadInt32(&h.carrier.labelCalls))
}

func TestLabelUseCase_GenerateLabel_ConcurrentCallersBuyOnce(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	require.NoError(t, h.dimensions.SetDimensions(ctx, dims("O1", 2.0, 30, 20, 10)))

	release := make(chan struct{})
	h.carrier.CreateLabelFunc = func(ctx context.Context, key string, req carrier.LabelRequest) (*carrier.LabelResponse, error) {
		<-release
		return &carrier.LabelResponse{TrackingNumber: "XY1FR", Document: []byte("pdf"), ContentType: "application/pdf"}, nil
	}

	const callers = 6
	var wg sync.WaitGroup
	var succeeded, duplicates int32
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.labels.GenerateLabel(ctx, "O1")
			if err == nil {
				atomic.AddInt32(&succeeded, 1)
				return
			}
			if _, ok := apperrors.IsDuplicateOperationError(err); ok {
				atomic.AddInt32(&duplicates, 1)
			}
		}()
	}

	// Let the winner hold its claim until every loser has been turned away.
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&duplicates) == callers-1
	}, 2*time.Second, 5*time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), succeeded)
	assert.Equal(t, int32(1), atomic.LoadInt32(&h.carrier.labelCalls))
}

func TestLabelUseCase_GenerateLabel_CarrierFailureCountsRetries(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	require.NoError(t, h.dimensions.SetDimensions(ctx, dims("O1", 2.0, 30, 20, 10)))

	h.carrier.CreateLabelFunc = func(ctx context.Context, key string, req carrier.LabelRequest) (*carrier.LabelResponse, error) {
		return nil, &carrier.APIError{StatusCode: 503, Message: "upstream down"}
	}

	for attempt := 1; attempt <= 2; attempt++ {
		_, err := h.labels.GenerateLabel(ctx, "O1")
		terr, ok := apperrors.IsTransientCarrierError(err)
		require.True(t, ok, "expected TransientCarrierError, got %v", err)
		assert.Equal(t, attempt, terr.RetryCount)
	}

	s, _ := h.repo.FindByOrderID(ctx, "O1")
	assert.Equal(t, domain.ShipmentStateLabelGenerationFailed, domain.DeriveShipmentState(s))
	require.NotNil(t, s.LastError)
	assert.Contains(t, *s.LastError, "upstream down")

	h.carrier.CreateLabelFunc = func(ctx context.Context, key string, req carrier.LabelRequest) (*carrier.LabelResponse, error) {
		return &carrier.LabelResponse{TrackingNumber: "XY9FR", Document: []byte("pdf"), ContentType: "application/pdf"}, nil
	}

	_, err := h.labels.GenerateLabel(ctx, "O1")
	require.NoError(t, err)

	s, _ = h.repo.FindByOrderID(ctx, "O1")
	assert.Equal(t, domain.ShipmentStateLabelGenerated, domain.DeriveShipmentState(s))
	assert.Nil(t, s.LastError)
}

func TestLabelUseCase_GenerateLabel_StorageFailureVoids(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	require.NoError(t, h.dimensions.SetDimensions(ctx, dims("O1", 2.0, 30, 20, 10)))

	h.store.PutErr = errors.New("bucket unreachable")

	_, err := h.labels.GenerateLabel(ctx, "O1")
	terr, ok := apperrors.IsTransientCarrierError(err)
	require.True(t, ok)
	assert.Equal(t, 1, terr.RetryCount)
	assert.Equal(t, int32(1), atomic.LoadInt32(&h.carrier.voidCalls))

	s, _ := h.repo.FindByOrderID(ctx, "O1")
	assert.Equal(t, domain.LabelStatusNone, s.LabelStatus)
}

func TestLabelUseCase_GenerateLabel_ClaimLostVoids(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	require.NoError(t, h.dimensions.SetDimensions(ctx, dims("O1", 2.0, 30, 20, 10)))

	h.carrier.CreateLabelFunc = func(ctx context.Context, key string, req carrier.LabelRequest) (*carrier.LabelResponse, error) {
		// Another worker took over the claim while the carrier was slow.
		h.repo.mu.Lock()
		h.repo.rows["O1"].LabelClaimToken = "someone-else"
		h.repo.mu.Unlock()
		return &carrier.LabelResponse{TrackingNumber: "XY1FR", Document: []byte("pdf"), ContentType: "application/pdf"}, nil
	}

	_, err := h.labels.GenerateLabel(ctx, "O1")
	_, ok := apperrors.IsConflictError(err)
	require.True(t, ok, "expected ConflictError, got %v", err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&h.carrier.voidCalls))
	assert.Empty(t, h.store.objects)
}

func TestLabelUseCase_GenerateLabel_StaleClaimIsTakenOver(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	require.NoError(t, h.dimensions.SetDimensions(ctx, dims("O1", 2.0, 30, 20, 10)))

	stale := time.Now().Add(-time.Hour)
	h.repo.mu.Lock()
	h.repo.rows["O1"].LabelStatus = domain.LabelStatusGenerating
	h.repo.rows["O1"].LabelClaimToken = "crashed-worker"
	h.repo.rows["O1"].LabelClaimedAt = &stale
	h.repo.mu.Unlock()

	label, err := h.labels.GenerateLabel(ctx, "O1")
	require.NoError(t, err)
	assert.NotEmpty(t, label.TrackingNumber)
}

func TestLabelUseCase_GenerateLabel_FreshClaimIsDuplicate(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	require.NoError(t, h.dimensions.SetDimensions(ctx, dims("O1", 2.0, 30, 20, 10)))

	now := time.Now()
	h.repo.mu.Lock()
	h.repo.rows["O1"].LabelStatus = domain.LabelStatusGenerating
	h.repo.rows["O1"].LabelClaimToken = "busy-worker"
	h.repo.rows["O1"].LabelClaimedAt = &now
	h.repo.mu.Unlock()

	_, err := h.labels.GenerateLabel(ctx, "O1")
	_, ok := apperrors.IsDuplicateOperationError(err)
	assert.True(t, ok)
	assert.Equal(t, int32(0), atomic.LoadInt32(&h.carrier.labelCalls))
}

func TestLabelUseCase_CancelLabel(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	require.NoError(t, h.dimensions.SetDimensions(ctx, dims("O1", 2.0, 30, 20, 10)))
	label, err := h.labels.GenerateLabel(ctx, "O1")
	require.NoError(t, err)

	require.NoError(t, h.labels.CancelLabel(ctx, "O1"))

	s, _ := h.repo.FindByOrderID(ctx, "O1")
	assert.Equal(t, domain.ShipmentStateDimensionsSet, domain.DeriveShipmentState(s))
	assert.Equal(t, int32(1), atomic.LoadInt32(&h.carrier.voidCalls))
	assert.NotContains(t, h.store.objects, label.Artifact.Key)

	_, err = h.labels.GetLabelArtifact(ctx, "O1")
	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok)

	// Dimensions can change again after cancellation.
	require.NoError(t, h.dimensions.SetDimensions(ctx, dims("O1", 4, 40, 30, 20)))
}

func TestLabelUseCase_CancelLabel_VoidFailureStillClears(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	require.NoError(t, h.dimensions.SetDimensions(ctx, dims("O1", 2.0, 30, 20, 10)))
	_, err := h.labels.GenerateLabel(ctx, "O1")
	require.NoError(t, err)

	h.carrier.VoidLabelFunc = func(ctx context.Context, trackingNumber string) error {
		return errors.New("void endpoint down")
	}

	require.NoError(t, h.labels.CancelLabel(ctx, "O1"))

	s, _ := h.repo.FindByOrderID(ctx, "O1")
	assert.False(t, s.HasActiveLabel())
}

func TestLabelUseCase_CancelLabel_NoLabel(t *testing.T) {
	h := newHarness()

	err := h.labels.CancelLabel(context.Background(), "O1")
	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok)
	assert.Equal(t, int32(0), atomic.LoadInt32(&h.carrier.voidCalls))
}

func TestLabelUseCase_CancelLabel_PickupInFlight(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	require.NoError(t, h.dimensions.SetDimensions(ctx, dims("O1", 2.0, 30, 20, 10)))
	_, err := h.labels.GenerateLabel(ctx, "O1")
	require.NoError(t, err)

	h.repo.mu.Lock()
	h.repo.rows["O1"].PickupStatus = domain.PickupStatusRequesting
	h.repo.mu.Unlock()

	err = h.labels.CancelLabel(ctx, "O1")
	_, ok := apperrors.IsConflictError(err)
	assert.True(t, ok)

	s, _ := h.repo.FindByOrderID(ctx, "O1")
	assert.True(t, s.HasActiveLabel())
}

func TestLabelUseCase_CancelLabel_AbandonedPickupClaim(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	require.NoError(t, h.dimensions.SetDimensions(ctx, dims("O1", 2.0, 30, 20, 10)))
	_, err := h.labels.GenerateLabel(ctx, "O1")
	require.NoError(t, err)

	abandoned := time.Now().Add(-time.Hour)
	h.repo.mu.Lock()
	h.repo.rows["O1"].PickupStatus = domain.PickupStatusRequesting
	h.repo.rows["O1"].Pickup = &domain.PickupRequest{RequestedAt: &abandoned}
	h.repo.mu.Unlock()

	s, _ := h.repo.FindByOrderID(ctx, "O1")
	require.Equal(t, domain.ShipmentStateLabelGenerated, domain.DeriveShipmentState(s))

	require.NoError(t, h.labels.CancelLabel(ctx, "O1"))

	s, _ = h.repo.FindByOrderID(ctx, "O1")
	assert.Equal(t, domain.ShipmentStateDimensionsSet, domain.DeriveShipmentState(s))
	assert.Equal(t, domain.PickupStatusNone, s.PickupStatus)
	assert.Nil(t, s.Pickup)
	assert.Equal(t, int32(1), atomic.LoadInt32(&h.carrier.voidCalls))
}

func TestLabelUseCase_GetLabelArtifact_WithoutLabel(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	require.NoError(t, h.dimensions.SetDimensions(ctx, dims("O1", 2.0, 30, 20, 10)))

	doc, err := h.labels.GetLabelArtifact(ctx, "O1")
	assert.Nil(t, doc)
	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok, "expected NotFoundError, got %v", err)
}
