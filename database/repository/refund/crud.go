// File: database/repository/refund/crud.go
package refundRepo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"servana/models"
)

// CreateRequest inserts a Pending refund request. The partial unique index
// on booking_id over Pending requests makes this a check-and-insert: a
// concurrent duplicate surfaces as ErrOpenRequestExists.
func (r *mongoRefundRepo) CreateRequest(ctx context.Context, req *models.RefundRequest) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	req.Status = models.RefundStatusPending
	req.CreatedAt = time.Now()

	if _, err := r.reqColl.InsertOne(ctx, req); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrOpenRequestExists
		}
		return fmt.Errorf("error creating refund request: %w", err)
	}
	return nil
}

func (r *mongoRefundRepo) GetRequestByID(ctx context.Context, requestID string) (*models.RefundRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var req models.RefundRequest
	if err := r.reqColl.FindOne(ctx, bson.M{"id": requestID}).Decode(&req); err != nil {
		return nil, fmt.Errorf("refund request not found: %w", err)
	}
	return &req, nil
}

// GetOpenRequestByBooking returns the Pending request for the booking, or
// mongo.ErrNoDocuments when none is open.
func (r *mongoRefundRepo) GetOpenRequestByBooking(ctx context.Context, bookingID string) (*models.RefundRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var req models.RefundRequest
	err := r.reqColl.FindOne(ctx, bson.M{
		"booking_id": bookingID,
		"status":     models.RefundStatusPending,
	}).Decode(&req)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// ResolveRequest moves a Pending request to Completed or Failed. Resolved
// requests are immutable: a non-Pending current status yields
// ErrRequestResolved, never a silent no-op.
func (r *mongoRefundRepo) ResolveRequest(ctx context.Context, requestID, toStatus, approvedBy string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"id": requestID, "status": models.RefundStatusPending}
	update := bson.M{"$set": bson.M{
		"status":      toStatus,
		"approved_by": approvedBy,
		"resolved_at": time.Now(),
	}}
	res, err := r.reqColl.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("error resolving refund request %s: %w", requestID, err)
	}
	if res.MatchedCount == 0 {
		return ErrRequestResolved
	}
	return nil
}

func (r *mongoRefundRepo) ListPendingRequests(ctx context.Context) ([]models.RefundRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cursor, err := r.reqColl.Find(ctx, bson.M{"status": models.RefundStatusPending})
	if err != nil {
		return nil, fmt.Errorf("error fetching pending refund requests: %w", err)
	}
	defer cursor.Close(ctx)

	var reqs []models.RefundRequest
	if err := cursor.All(ctx, &reqs); err != nil {
		return nil, err
	}
	return reqs, nil
}

func (r *mongoRefundRepo) EnqueueRetry(ctx context.Context, item *models.RefundQueueItem) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	item.Status = models.QueueStatusQueued
	now := time.Now()
	item.CreatedAt = now
	item.UpdatedAt = now

	if _, err := r.queueColl.InsertOne(ctx, item); err != nil {
		return fmt.Errorf("error enqueueing refund retry: %w", err)
	}
	return nil
}

// RecordAttempt increments the attempt counter only while attempts remain
// below max_attempts; once exhausted it returns ErrMaxAttemptsReached.
func (r *mongoRefundRepo) RecordAttempt(ctx context.Context, itemID, lastError string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"id":     itemID,
		"status": models.QueueStatusQueued,
		"$expr":  bson.M{"$lt": bson.A{"$attempts", "$max_attempts"}},
	}
	update := bson.M{
		"$inc": bson.M{"attempts": 1},
		"$set": bson.M{"last_error": lastError, "updated_at": time.Now()},
	}
	res, err := r.queueColl.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("error recording refund attempt: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrMaxAttemptsReached
	}
	return nil
}

func (r *mongoRefundRepo) CompleteQueueItem(ctx context.Context, itemID string) error {
	return r.setQueueStatus(ctx, itemID, models.QueueStatusCompleted)
}

func (r *mongoRefundRepo) EscalateQueueItem(ctx context.Context, itemID string) error {
	return r.setQueueStatus(ctx, itemID, models.QueueStatusEscalated)
}

func (r *mongoRefundRepo) setQueueStatus(ctx context.Context, itemID, status string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"id": itemID, "status": models.QueueStatusQueued}
	update := bson.M{"$set": bson.M{"status": status, "updated_at": time.Now()}}
	res, err := r.queueColl.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("error updating refund queue item %s: %w", itemID, err)
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *mongoRefundRepo) ListQueuedItems(ctx context.Context) ([]models.RefundQueueItem, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cursor, err := r.queueColl.Find(ctx, bson.M{"status": models.QueueStatusQueued})
	if err != nil {
		return nil, fmt.Errorf("error fetching refund queue: %w", err)
	}
	defer cursor.Close(ctx)

	var items []models.RefundQueueItem
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}
