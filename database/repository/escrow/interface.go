// File: database/repository/escrow/interface.go
package escrowRepo

import (
	"context"
	"errors"
	"fmt"

	"servana/database"
	"servana/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrStateConflict is returned when a guarded transition finds the
// settlement no longer in one of the expected states. Callers retry the
// whole operation from a fresh read.
var ErrStateConflict = errors.New("settlement state conflict")

// EscrowRepository stores settlements. All transitions are single-document
// conditional updates keyed on the current state, so concurrent actions on
// one booking serialize at the storage layer.
type EscrowRepository interface {
	Create(ctx context.Context, settlement *models.EscrowSettlement) error
	GetByBookingID(ctx context.Context, bookingID string) (*models.EscrowSettlement, error)
	Transition(ctx context.Context, settlementID string, fromStates []string, toState string, set bson.M) error
	ListExpiredPending(ctx context.Context) ([]models.EscrowSettlement, error)
}

type mongoEscrowRepo struct {
	coll *mongo.Collection
}

// NewMongoEscrowRepo constructs a new MongoDB EscrowRepository.
func NewMongoEscrowRepo() EscrowRepository {
	db := database.DB()
	repo := &mongoEscrowRepo{coll: db.Collection("escrow_settlements")}
	if err := repo.EnsureIndexes(); err != nil {
		fmt.Printf("failed to create indexes: %v\n", err)
	}
	return repo
}
