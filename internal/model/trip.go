package model

import "time"

// Trip status values.
const (
	TripRequested  = "requested"
	TripAccepted   = "accepted"
	TripArriving   = "arriving"
	TripInProgress = "in_progress"
	TripCompleted  = "completed"
	TripCancelled  = "cancelled"
)

// Location is a geocoded point with its display address.
type Location struct {
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

// Trip is a ride from pickup to dropoff.
type Trip struct {
	ID            string     `json:"id"`
	PassengerID   string     `json:"passenger_id"`
	DriverID      string     `json:"driver_id,omitempty"`
	Status        string     `json:"status"`
	Pickup        Location   `json:"pickup"`
	Dropoff       Location   `json:"dropoff"`
	VehicleType   string     `json:"vehicle_type"`
	PaymentMethod string     `json:"payment_method,omitempty"`
	Fare          float64    `json:"fare"`
	Currency      string     `json:"currency"`
	DistanceKm    float64    `json:"distance_km"`
	DurationMin   float64    `json:"duration_min"`
	Rating        int        `json:"rating,omitempty"`
	ScheduledAt   *time.Time `json:"scheduled_at,omitempty"`
	CreatedDate   time.Time  `json:"created_date"`
}

// TripRequest is the body of a new booking.
type TripRequest struct {
	Pickup        Location   `json:"pickup"`
	Dropoff       Location   `json:"dropoff"`
	VehicleType   string     `json:"vehicle_type"`
	PaymentMethod string     `json:"payment_method,omitempty"`
	ScheduledAt   *time.Time `json:"scheduled_at,omitempty"`
}

// FareRequest asks the backend for a price before booking.
type FareRequest struct {
	Pickup      Location `json:"pickup"`
	Dropoff     Location `json:"dropoff"`
	VehicleType string   `json:"vehicle_type"`
}

// FareEstimate is the backend's price quote. The formula is server-side.
type FareEstimate struct {
	Amount          float64            `json:"amount"`
	Currency        string             `json:"currency"`
	DistanceKm      float64            `json:"distance_km"`
	DurationMin     float64            `json:"duration_min"`
	SurgeMultiplier float64            `json:"surge_multiplier"`
	Breakdown       map[string]float64 `json:"breakdown,omitempty"`
}
