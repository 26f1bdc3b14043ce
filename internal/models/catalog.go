package models

import "time"

// Boatyard is a service provider as listed by GET /boatyards.
type Boatyard struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Address string  `json:"address"`
	Rating  float64 `json:"rating"`
}

// MarineService is one bookable service offered by a boatyard.
type MarineService struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

// DockSlot is an assignable berth with its availability window.
type DockSlot struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	AssignedFrom  time.Time `json:"assignedFrom"`
	AssignedUntil time.Time `json:"assignedUntil"`
}

// Ship is a vessel registered by the current user.
type Ship struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Registration string `json:"registration"`
	ShipType     string `json:"shipType"`
}
