package model

// DriverStats summarizes the driver fleet for the admin dashboard.
type DriverStats struct {
	Total           int `json:"total"`
	Online          int `json:"online"`
	OnTrip          int `json:"on_trip"`
	PendingApproval int `json:"pending_approval"`
	Suspended       int `json:"suspended"`
}

// DashboardStats are the headline numbers of the admin dashboard.
type DashboardStats struct {
	TripsToday       int     `json:"trips_today"`
	RevenueToday     float64 `json:"revenue_today"`
	Currency         string  `json:"currency"`
	ActiveDrivers    int     `json:"active_drivers"`
	ActivePassengers int     `json:"active_passengers"`
	CancelledToday   int     `json:"cancelled_today"`
}
