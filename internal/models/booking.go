package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCompleted = "completed"
	BookingStatusCancelled = "cancelled"
)

// ActiveBookingStatuses occupy their slot; see the uniq_active_slot index.
var ActiveBookingStatuses = []string{BookingStatusPending, BookingStatusConfirmed}

var BookingStatuses = []string{BookingStatusPending, BookingStatusConfirmed, BookingStatusCompleted, BookingStatusCancelled}

// TimeSlots is the fixed set of consultation start times.
var TimeSlots = []string{"10:00", "11:00", "12:00", "13:00", "14:00", "15:00", "16:00", "17:00", "18:00"}

const DateLayout = "2006-01-02"

type Booking struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID    primitive.ObjectID `json:"userId" bson:"userId"`
	Phone     string             `json:"phone" bson:"phone"`
	Date      string             `json:"date" bson:"date"`
	Time      string             `json:"time" bson:"time"`
	City      string             `json:"city" bson:"city"`
	Status    string             `json:"status" bson:"status"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

type CreateBookingRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
	Time string `json:"time" validate:"required,timeslot"`
	City string `json:"city" validate:"required,max=100"`
}

type UpdateBookingStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed completed cancelled"`
}

// BookingQuery filters the admin booking list. Page and Limit are zero when
// the caller did not ask for pagination.
type BookingQuery struct {
	Status string
	Date   string
	Q      string
	Page   int
	Limit  int
}

func (q BookingQuery) Paginated() bool {
	return q.Page > 0 || q.Limit > 0
}

type BookingPage struct {
	Items []Booking `json:"items"`
	Total int64     `json:"total"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
}

type BookingStats struct {
	ByStatus   map[string]int64 `json:"byStatus"`
	TotalUsers int64            `json:"totalUsers"`
	NewUsers   *int64           `json:"newUsers,omitempty"`
}
