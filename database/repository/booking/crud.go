// File: database/repository/booking/crud.go
package bookingRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"servana/models"
)

// ErrStatusConflict is returned when a guarded status update finds the
// booking no longer in the expected state.
var ErrStatusConflict = errors.New("booking status conflict")

func (r *mongoBookingRepo) CreateBooking(ctx context.Context, booking *models.Booking) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if booking.ID == "" {
		booking.ID = uuid.New().String()
	}
	now := time.Now()
	booking.CreatedAt = now
	booking.UpdatedAt = now

	if _, err := r.bookingColl.InsertOne(ctx, booking); err != nil {
		return fmt.Errorf("error creating booking: %w", err)
	}
	return nil
}

func (r *mongoBookingRepo) GetBookingByID(ctx context.Context, bookingID string) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var booking models.Booking
	if err := r.bookingColl.FindOne(ctx, bson.M{"id": bookingID}).Decode(&booking); err != nil {
		return nil, fmt.Errorf("booking not found: %w", err)
	}
	return &booking, nil
}

// UpdateBookingStatus moves the booking from one status to another with a
// current-state check; a mismatch yields ErrStatusConflict.
func (r *mongoBookingRepo) UpdateBookingStatus(ctx context.Context, bookingID, from, to string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"id": bookingID, "status": from}
	update := bson.M{"$set": bson.M{"status": to, "updated_at": time.Now()}}
	res, err := r.bookingColl.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("error updating booking %s status: %w", bookingID, err)
	}
	if res.MatchedCount == 0 {
		return ErrStatusConflict
	}
	return nil
}

func (r *mongoBookingRepo) GetBookingsByUser(ctx context.Context, userID string) ([]models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "start", Value: -1}})
	cursor, err := r.bookingColl.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("error fetching bookings for user %s: %w", userID, err)
	}
	defer cursor.Close(ctx)

	var bookings []models.Booking
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

// AppendTimelineEvent appends to the booking's history. The timeline is
// insert-only; no update or delete path exists.
func (r *mongoBookingRepo) AppendTimelineEvent(ctx context.Context, event *models.TimelineEvent) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	event.CreatedAt = time.Now()

	if _, err := r.timelineColl.InsertOne(ctx, event); err != nil {
		return fmt.Errorf("error appending timeline event: %w", err)
	}
	return nil
}

func (r *mongoBookingRepo) GetTimeline(ctx context.Context, bookingID string) ([]models.TimelineEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.timelineColl.Find(ctx, bson.M{"booking_id": bookingID}, opts)
	if err != nil {
		return nil, fmt.Errorf("error fetching timeline for booking %s: %w", bookingID, err)
	}
	defer cursor.Close(ctx)

	var events []models.TimelineEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (r *mongoBookingRepo) CreateSeries(ctx context.Context, series *models.RecurringSeries) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if series.ID == "" {
		series.ID = uuid.New().String()
	}
	now := time.Now()
	series.CreatedAt = now
	series.UpdatedAt = now

	if _, err := r.seriesColl.InsertOne(ctx, series); err != nil {
		return fmt.Errorf("error creating recurring series: %w", err)
	}
	return nil
}

func (r *mongoBookingRepo) GetSeriesByID(ctx context.Context, seriesID string) (*models.RecurringSeries, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var series models.RecurringSeries
	if err := r.seriesColl.FindOne(ctx, bson.M{"id": seriesID}).Decode(&series); err != nil {
		return nil, fmt.Errorf("recurring series not found: %w", err)
	}
	return &series, nil
}

// GetDueSeries returns active series whose next occurrence is on or before
// the given date.
func (r *mongoBookingRepo) GetDueSeries(ctx context.Context, date string) ([]models.RecurringSeries, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"is_active": true, "next_occurrence_date": bson.M{"$lte": date}}
	cursor, err := r.seriesColl.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error fetching due series: %w", err)
	}
	defer cursor.Close(ctx)

	var series []models.RecurringSeries
	if err := cursor.All(ctx, &series); err != nil {
		return nil, err
	}
	return series, nil
}

func (r *mongoBookingRepo) AdvanceSeries(ctx context.Context, seriesID, nextDate string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"id": seriesID}
	update := bson.M{"$set": bson.M{"next_occurrence_date": nextDate, "updated_at": time.Now()}}
	res, err := r.seriesColl.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("error advancing series %s: %w", seriesID, err)
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *mongoBookingRepo) SetSeriesActive(ctx context.Context, seriesID string, active bool, nextDate string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	set := bson.M{"is_active": active, "updated_at": time.Now()}
	if nextDate != "" {
		set["next_occurrence_date"] = nextDate
	}
	res, err := r.seriesColl.UpdateOne(ctx, bson.M{"id": seriesID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("error toggling series %s: %w", seriesID, err)
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
