package models

import "time"

// Booking is the server-assigned entity returned by POST /bookings. The
// client treats it as opaque except for id, status, total and the
// denormalized display fields.
type Booking struct {
	ID           string          `json:"id"`
	Status       string          `json:"status"` // Pending, Confirmed, Canceled
	TotalAmount  int64           `json:"totalAmount"`
	ShipName     string          `json:"shipName"`
	DockSlotName string          `json:"dockSlotName"`
	BoatyardName string          `json:"boatyardName"`
	Services     []MarineService `json:"services"`
	StartTime    time.Time       `json:"startTime"`
	EndTime      time.Time       `json:"endTime"`
	CreatedAt    time.Time       `json:"createdAt"`
}
