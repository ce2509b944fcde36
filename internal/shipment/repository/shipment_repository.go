package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"fulfillment/internal/domain"
)

// MySQLShipmentRepository persists the per-order shipment row. Each transition
// is one conditional UPDATE whose WHERE clause is the transition's
// precondition; a false result means another writer got there first or the
// row is in a state that forbids the transition.
type MySQLShipmentRepository struct {
	db *sql.DB
}

func NewMySQLShipmentRepository(db *sql.DB) *MySQLShipmentRepository {
	return &MySQLShipmentRepository{db: db}
}

// FindByOrderID returns the zero shipment when no row exists yet.
func (r *MySQLShipmentRepository) FindByOrderID(ctx context.Context, orderID string) (domain.Shipment, error) {
	query := `
		SELECT order_id, weight, length, width, height,
		       label_status, label_claim_token, label_claimed_at,
		       tracking_number, artifact_key, artifact_content_type, carrier_ref, service_code,
		       last_error, retry_count, generated_at,
		       pickup_status, pickup_requested_at, pickup_ref, pickup_last_error, updated_at
		FROM shipments
		WHERE order_id = ?
	`

	var (
		s                               domain.Shipment
		weight, length, width, height   sql.NullFloat64
		claimToken, tracking            sql.NullString
		artifactKey, artifactType       sql.NullString
		carrierRef, serviceCode         sql.NullString
		lastError, pickupRef, pickupErr sql.NullString
		claimedAt, generatedAt          sql.NullTime
		pickupRequestedAt               sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, orderID).Scan(
		&s.OrderID, &weight, &length, &width, &height,
		&s.LabelStatus, &claimToken, &claimedAt,
		&tracking, &artifactKey, &artifactType, &carrierRef, &serviceCode,
		&lastError, &s.RetryCount, &generatedAt,
		&s.PickupStatus, &pickupRequestedAt, &pickupRef, &pickupErr, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NewShipment(orderID), nil
	}
	if err != nil {
		return domain.Shipment{}, fmt.Errorf("querying shipment: %w", err)
	}

	if weight.Valid && length.Valid && width.Valid && height.Valid {
		s.Dimensions = &domain.ShipmentDimensions{
			Weight: weight.Float64,
			Length: length.Float64,
			Width:  width.Float64,
			Height: height.Float64,
		}
	}
	s.LabelClaimToken = claimToken.String
	if claimedAt.Valid {
		s.LabelClaimedAt = &claimedAt.Time
	}
	if lastError.Valid {
		s.LastError = &lastError.String
	}
	if pickupErr.Valid {
		s.PickupLastError = &pickupErr.String
	}

	if s.LabelStatus == domain.LabelStatusActive {
		s.Label = &domain.ShipmentLabel{
			TrackingNumber: tracking.String,
			Artifact:       domain.LabelArtifact{Key: artifactKey.String, ContentType: artifactType.String},
			CarrierRef:     carrierRef.String,
			ServiceCode:    serviceCode.String,
			GeneratedAt:    generatedAt.Time,
		}
	}

	if s.PickupStatus != domain.PickupStatusNone {
		p := &domain.PickupRequest{
			Requested:  s.PickupStatus == domain.PickupStatusRequested || s.PickupStatus == domain.PickupStatusConfirmed,
			Confirmed:  s.PickupStatus == domain.PickupStatusConfirmed,
			CarrierRef: pickupRef.String,
		}
		if pickupRequestedAt.Valid {
			p.RequestedAt = &pickupRequestedAt.Time
		}
		s.Pickup = p
	}

	return s, nil
}

// SetDimensions writes dimensions only while no label is active or being
// generated.
func (r *MySQLShipmentRepository) SetDimensions(ctx context.Context, orderID string, d domain.ShipmentDimensions) (bool, error) {
	if _, err := r.db.ExecContext(ctx, `INSERT IGNORE INTO shipments (order_id) VALUES (?)`, orderID); err != nil {
		return false, fmt.Errorf("creating shipment row: %w", err)
	}

	query := `
		UPDATE shipments
		SET weight = ?, length = ?, width = ?, height = ?
		WHERE order_id = ? AND label_status = ?
	`
	result, err := r.db.ExecContext(ctx, query, d.Weight, d.Length, d.Width, d.Height, orderID, domain.LabelStatusNone)
	if err != nil {
		return false, fmt.Errorf("updating shipment dimensions: %w", err)
	}
	return affectedOne(result)
}

// ClaimLabel marks a label purchase as in flight under token. A GENERATING
// claim older than staleBefore is treated as abandoned.
func (r *MySQLShipmentRepository) ClaimLabel(ctx context.Context, orderID, token string, at, staleBefore time.Time) (bool, error) {
	query := `
		UPDATE shipments
		SET label_status = ?, label_claim_token = ?, label_claimed_at = ?
		WHERE order_id = ?
		  AND weight IS NOT NULL
		  AND (label_status = ? OR (label_status = ? AND label_claimed_at < ?))
	`
	result, err := r.db.ExecContext(ctx, query,
		domain.LabelStatusGenerating, token, at,
		orderID,
		domain.LabelStatusNone, domain.LabelStatusGenerating, staleBefore,
	)
	if err != nil {
		return false, fmt.Errorf("claiming label generation: %w", err)
	}
	return affectedOne(result)
}

func (r *MySQLShipmentRepository) CompleteLabel(ctx context.Context, orderID, token string, label domain.ShipmentLabel) (bool, error) {
	query := `
		UPDATE shipments
		SET label_status = ?, label_claim_token = NULL, label_claimed_at = NULL,
		    tracking_number = ?, artifact_key = ?, artifact_content_type = ?,
		    carrier_ref = ?, service_code = ?, generated_at = ?, last_error = NULL
		WHERE order_id = ? AND label_status = ? AND label_claim_token = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		domain.LabelStatusActive,
		label.TrackingNumber, label.Artifact.Key, label.Artifact.ContentType,
		label.CarrierRef, label.ServiceCode, label.GeneratedAt,
		orderID, domain.LabelStatusGenerating, token,
	)
	if err != nil {
		return false, fmt.Errorf("recording generated label: %w", err)
	}
	return affectedOne(result)
}

// FailLabel releases the claim, records the error and returns the new retry count.
func (r *MySQLShipmentRepository) FailLabel(ctx context.Context, orderID, token, message string) (int, error) {
	query := `
		UPDATE shipments
		SET label_status = ?, label_claim_token = NULL, label_claimed_at = NULL,
		    last_error = ?, retry_count = retry_count + 1
		WHERE order_id = ? AND label_status = ? AND label_claim_token = ?
	`
	if _, err := r.db.ExecContext(ctx, query,
		domain.LabelStatusNone, truncate(message, 1000),
		orderID, domain.LabelStatusGenerating, token,
	); err != nil {
		return 0, fmt.Errorf("recording label failure: %w", err)
	}

	var retries int
	if err := r.db.QueryRowContext(ctx, `SELECT retry_count FROM shipments WHERE order_id = ?`, orderID).Scan(&retries); err != nil {
		return 0, fmt.Errorf("reading label retry count: %w", err)
	}
	return retries, nil
}

// ClearLabel removes the active label identified by trackingNumber together
// with any pickup. Dimensions and diagnostics survive. A REQUESTING pickup
// blocks the clear unless it was claimed before staleBefore.
func (r *MySQLShipmentRepository) ClearLabel(ctx context.Context, orderID, trackingNumber string, staleBefore time.Time) (bool, error) {
	query := `
		UPDATE shipments
		SET label_status = ?, tracking_number = NULL, artifact_key = NULL, artifact_content_type = NULL,
		    carrier_ref = NULL, service_code = NULL, generated_at = NULL,
		    pickup_status = ?, pickup_requested_at = NULL, pickup_ref = NULL, pickup_last_error = NULL
		WHERE order_id = ? AND label_status = ? AND tracking_number = ?
		  AND (pickup_status <> ? OR pickup_requested_at < ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		domain.LabelStatusNone, domain.PickupStatusNone,
		orderID, domain.LabelStatusActive, trackingNumber, domain.PickupStatusRequesting, staleBefore,
	)
	if err != nil {
		return false, fmt.Errorf("clearing label: %w", err)
	}
	return affectedOne(result)
}

func (r *MySQLShipmentRepository) ClaimPickup(ctx context.Context, orderID string, at, staleBefore time.Time) (bool, error) {
	query := `
		UPDATE shipments
		SET pickup_status = ?, pickup_requested_at = ?
		WHERE order_id = ? AND label_status = ?
		  AND (pickup_status = ? OR (pickup_status = ? AND pickup_requested_at < ?))
	`
	result, err := r.db.ExecContext(ctx, query,
		domain.PickupStatusRequesting, at,
		orderID, domain.LabelStatusActive,
		domain.PickupStatusNone, domain.PickupStatusRequesting, staleBefore,
	)
	if err != nil {
		return false, fmt.Errorf("claiming pickup request: %w", err)
	}
	return affectedOne(result)
}

func (r *MySQLShipmentRepository) CompletePickup(ctx context.Context, orderID, pickupRef string, at time.Time) (bool, error) {
	query := `
		UPDATE shipments
		SET pickup_status = ?, pickup_ref = ?, pickup_requested_at = ?, pickup_last_error = NULL
		WHERE order_id = ? AND label_status = ? AND pickup_status = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		domain.PickupStatusRequested, pickupRef, at,
		orderID, domain.LabelStatusActive, domain.PickupStatusRequesting,
	)
	if err != nil {
		return false, fmt.Errorf("recording pickup request: %w", err)
	}
	return affectedOne(result)
}

func (r *MySQLShipmentRepository) FailPickup(ctx context.Context, orderID, message string) error {
	query := `
		UPDATE shipments
		SET pickup_status = ?, pickup_requested_at = NULL, pickup_last_error = ?
		WHERE order_id = ? AND pickup_status = ?
	`
	if _, err := r.db.ExecContext(ctx, query,
		domain.PickupStatusNone, truncate(message, 1000),
		orderID, domain.PickupStatusRequesting,
	); err != nil {
		return fmt.Errorf("recording pickup failure: %w", err)
	}
	return nil
}

func (r *MySQLShipmentRepository) ConfirmPickup(ctx context.Context, orderID string) (bool, error) {
	query := `
		UPDATE shipments
		SET pickup_status = ?
		WHERE order_id = ? AND label_status = ? AND pickup_status = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		domain.PickupStatusConfirmed,
		orderID, domain.LabelStatusActive, domain.PickupStatusRequested,
	)
	if err != nil {
		return false, fmt.Errorf("confirming pickup: %w", err)
	}
	return affectedOne(result)
}

func affectedOne(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting rows affected: %w", err)
	}
	return n == 1, nil
}

// truncate caps s at limit bytes without splitting a UTF-8 sequence.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
