package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDraftMergeKeepsEarlierFields(t *testing.T) {
	base := BookingDraft{
		FlowID:       "f1",
		BoatyardID:   "B1",
		BoatyardName: "Cảng Sài Gòn",
		Services:     []MarineService{{ID: "SVC1", Name: "Sơn vỏ tàu", Price: 1500000}},
	}

	slot := &DockSlot{ID: "S1", Name: "Bến A1"}
	merged := base.Merge(BookingDraft{Slot: slot})

	assert.Equal(t, "B1", merged.BoatyardID)
	assert.Equal(t, "Cảng Sài Gòn", merged.BoatyardName)
	assert.Len(t, merged.Services, 1)
	assert.Equal(t, slot, merged.Slot)

	ship := &Ship{ID: "SH1", Name: "Hải Âu"}
	merged = merged.Merge(BookingDraft{Ship: ship})
	assert.Equal(t, slot, merged.Slot)
	assert.Equal(t, ship, merged.Ship)
	assert.Equal(t, "B1", merged.BoatyardID)
}

func TestDraftMergeBoatyardImmutable(t *testing.T) {
	base := BookingDraft{BoatyardID: "B1", BoatyardName: "Cảng Sài Gòn"}
	merged := base.Merge(BookingDraft{BoatyardID: "B2", BoatyardName: "Cảng Hải Phòng"})
	assert.Equal(t, "B1", merged.BoatyardID)
	assert.Equal(t, "Cảng Sài Gòn", merged.BoatyardName)
}

func TestDraftMergeOverwritesOwnFields(t *testing.T) {
	start := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	base := BookingDraft{StartTime: start, EndTime: start.Add(time.Hour)}

	later := start.Add(2 * time.Hour)
	merged := base.Merge(BookingDraft{StartTime: later, EndTime: later.Add(time.Hour)})
	assert.Equal(t, later, merged.StartTime)
	assert.Equal(t, later.Add(time.Hour), merged.EndTime)
}

func TestServiceIDs(t *testing.T) {
	d := BookingDraft{Services: []MarineService{{ID: "SVC1"}, {ID: "SVC2"}}}
	assert.Equal(t, []string{"SVC1", "SVC2"}, d.ServiceIDs())
	assert.Empty(t, BookingDraft{}.ServiceIDs())
}

func TestPaymentStateTerminal(t *testing.T) {
	assert.False(t, PaymentUninitiated.Terminal())
	assert.False(t, PaymentCreating.Terminal())
	assert.False(t, PaymentReady.Terminal())
	assert.True(t, PaymentSucceeded.Terminal())
	assert.True(t, PaymentFailed.Terminal())
	assert.True(t, PaymentAbandoned.Terminal())
	assert.True(t, PaymentPendingVerify.Terminal())
}
