package models

import "time"

// BookingDraft accumulates selections across the booking flow. Each step
// contributes its own fields; Merge keeps everything a step did not touch.
type BookingDraft struct {
	FlowID       string          `json:"flow_id"`
	BoatyardID   string          `json:"boatyard_id"`
	BoatyardName string          `json:"boatyard_name"`
	Services     []MarineService `json:"services"`
	Slot         *DockSlot       `json:"slot,omitempty"`
	Ship         *Ship           `json:"ship,omitempty"`
	StartTime    time.Time       `json:"start_time"`
	EndTime      time.Time       `json:"end_time"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Merge applies a step's contribution on top of the draft. Only non-zero
// fields of the contribution are taken, so a later step cannot drop what an
// earlier step set. The boatyard is immutable once set.
func (d BookingDraft) Merge(c BookingDraft) BookingDraft {
	out := d
	if out.FlowID == "" {
		out.FlowID = c.FlowID
	}
	if out.BoatyardID == "" {
		out.BoatyardID = c.BoatyardID
		out.BoatyardName = c.BoatyardName
	}
	if len(c.Services) > 0 {
		out.Services = c.Services
	}
	if c.Slot != nil {
		out.Slot = c.Slot
	}
	if c.Ship != nil {
		out.Ship = c.Ship
	}
	if !c.StartTime.IsZero() {
		out.StartTime = c.StartTime
	}
	if !c.EndTime.IsZero() {
		out.EndTime = c.EndTime
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = c.CreatedAt
	}
	return out
}

// ServiceIDs returns the ids of the selected services in selection order.
func (d BookingDraft) ServiceIDs() []string {
	ids := make([]string, 0, len(d.Services))
	for _, s := range d.Services {
		ids = append(ids, s.ID)
	}
	return ids
}

// ServicesTotal sums the prices of the selected services.
func (d BookingDraft) ServicesTotal() int64 {
	var total int64
	for _, s := range d.Services {
		total += s.Price
	}
	return total
}
