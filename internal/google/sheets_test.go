package google

import (
	"testing"
	"time"

	"harborbook/internal/models"
)

func TestOutcomeRow(t *testing.T) {
	createdAt := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

	record := models.OutcomeRecord{
		ID:        42,
		BookingID: "BK-101",
		Result:    models.OutcomeSuccess,
		Amount:    2500000,
		Message:   "Thanh toán thành công",
		CreatedAt: createdAt,
	}

	row := outcomeRow(record)

	expected := []interface{}{
		int64(42),
		"BK-101",
		"success",
		int64(2500000),
		"Thanh toán thành công",
		"2025-03-14 09:30:00",
	}

	if len(row) != len(expected) {
		t.Fatalf("expected %d columns, got %d", len(expected), len(row))
	}
	for i := range expected {
		if row[i] != expected[i] {
			t.Errorf("column %d: expected %v, got %v", i, expected[i], row[i])
		}
	}
}
