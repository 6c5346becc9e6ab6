// File: database/repository/booking/interface.go
package bookingRepo

import (
	"context"
	"fmt"

	"servana/database"
	"servana/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// BookingRepository stores bookings, their append-only timelines, and
// recurring series.
type BookingRepository interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBookingByID(ctx context.Context, bookingID string) (*models.Booking, error)
	UpdateBookingStatus(ctx context.Context, bookingID, from, to string) error
	GetBookingsByUser(ctx context.Context, userID string) ([]models.Booking, error)

	AppendTimelineEvent(ctx context.Context, event *models.TimelineEvent) error
	GetTimeline(ctx context.Context, bookingID string) ([]models.TimelineEvent, error)

	CreateSeries(ctx context.Context, series *models.RecurringSeries) error
	GetSeriesByID(ctx context.Context, seriesID string) (*models.RecurringSeries, error)
	GetDueSeries(ctx context.Context, date string) ([]models.RecurringSeries, error)
	AdvanceSeries(ctx context.Context, seriesID, nextDate string) error
	SetSeriesActive(ctx context.Context, seriesID string, active bool, nextDate string) error
}

type mongoBookingRepo struct {
	bookingColl  *mongo.Collection
	timelineColl *mongo.Collection
	seriesColl   *mongo.Collection
}

// NewMongoBookingRepo constructs a new MongoDB BookingRepository.
func NewMongoBookingRepo() BookingRepository {
	db := database.DB()
	repo := &mongoBookingRepo{
		bookingColl:  db.Collection("bookings"),
		timelineColl: db.Collection("booking_timeline"),
		seriesColl:   db.Collection("recurring_series"),
	}
	if err := repo.EnsureIndexes(); err != nil {
		fmt.Printf("failed to create indexes: %v\n", err)
	}
	return repo
}
