package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Identity Metrics
	NewUsersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "app_new_users_total",
		Help: "Total number of end users created on first OTP request.",
	})
	LoginAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "app_login_attempts_total",
		Help: "Total number of admin password login attempts (successful and failed).",
	}, []string{"status"}) // status: "success" or "failed"
	TotalUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "app_total_users",
		Help: "Total number of registered users in the application.",
	})

	// OTP Metrics
	OTPSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "app_otp_sent_total",
		Help: "OTP deliveries per channel and outcome.",
	}, []string{"channel", "status"}) // channel: "mobile" or "email"; status: "success" or "failed"
	OTPVerifyTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "app_otp_verify_total",
		Help: "OTP verification outcomes.",
	}, []string{"subject", "outcome"}) // outcome: success, invalid, expired, locked

	// Booking Metrics
	BookingCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "app_booking_created_total",
		Help: "Total number of bookings created.",
	})
	SlotConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "app_slot_conflicts_total",
		Help: "Total number of booking writes rejected because the slot was taken.",
	})

	// Event Metrics
	EventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "app_events_published_total",
		Help: "Domain events handed to the event sink.",
	}, []string{"event", "status"})
)
