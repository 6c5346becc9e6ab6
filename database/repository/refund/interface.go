// File: database/repository/refund/interface.go
package refundRepo

import (
	"context"
	"errors"
	"fmt"

	"servana/database"
	"servana/models"

	"go.mongodb.org/mongo-driver/mongo"
)

var (
	// ErrOpenRequestExists is returned when the check-and-insert finds a
	// Pending request already open for the booking.
	ErrOpenRequestExists = errors.New("open refund request already exists for booking")
	// ErrRequestResolved is returned when resolving a request that is no
	// longer Pending.
	ErrRequestResolved = errors.New("refund request already resolved")
	// ErrMaxAttemptsReached is returned when a queue item has exhausted its
	// automatic retries and must be escalated to manual processing.
	ErrMaxAttemptsReached = errors.New("refund retry attempts exhausted")
)

// RefundRepository stores refund requests and the automatic-retry queue.
type RefundRepository interface {
	CreateRequest(ctx context.Context, req *models.RefundRequest) error
	GetRequestByID(ctx context.Context, requestID string) (*models.RefundRequest, error)
	GetOpenRequestByBooking(ctx context.Context, bookingID string) (*models.RefundRequest, error)
	ResolveRequest(ctx context.Context, requestID, toStatus, approvedBy string) error
	ListPendingRequests(ctx context.Context) ([]models.RefundRequest, error)

	EnqueueRetry(ctx context.Context, item *models.RefundQueueItem) error
	RecordAttempt(ctx context.Context, itemID, lastError string) error
	CompleteQueueItem(ctx context.Context, itemID string) error
	EscalateQueueItem(ctx context.Context, itemID string) error
	ListQueuedItems(ctx context.Context) ([]models.RefundQueueItem, error)
}

type mongoRefundRepo struct {
	reqColl   *mongo.Collection
	queueColl *mongo.Collection
}

// NewMongoRefundRepo constructs a new MongoDB RefundRepository.
func NewMongoRefundRepo() RefundRepository {
	db := database.DB()
	repo := &mongoRefundRepo{
		reqColl:   db.Collection("refund_requests"),
		queueColl: db.Collection("refund_queue"),
	}
	if err := repo.EnsureIndexes(); err != nil {
		fmt.Printf("failed to create indexes: %v\n", err)
	}
	return repo
}
