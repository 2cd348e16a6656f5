package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRestaurantIsOpenAt(t *testing.T) {
	// 2026-09-07 is a Monday.
	monday1200 := time.Date(2026, 9, 7, 12, 0, 0, 0, time.UTC)
	monday2330 := time.Date(2026, 9, 7, 23, 30, 0, 0, time.UTC)
	sunday1200 := time.Date(2026, 9, 6, 12, 0, 0, 0, time.UTC)

	noSchedule := Restaurant{}
	assert.True(t, noSchedule.IsOpenAt(monday1200), "unset schedule means always open")

	scheduled := Restaurant{OpeningHours: `{
		"monday": {"open": "09:00", "close": "22:00"},
		"sunday": {"closed": true}
	}`}
	assert.True(t, scheduled.IsOpenAt(monday1200))
	assert.False(t, scheduled.IsOpenAt(monday2330), "after closing time")
	assert.False(t, scheduled.IsOpenAt(sunday1200), "closed day")

	// A day missing from the schedule counts as closed.
	tuesday := time.Date(2026, 9, 8, 12, 0, 0, 0, time.UTC)
	assert.False(t, scheduled.IsOpenAt(tuesday))

	broken := Restaurant{OpeningHours: `{not json`}
	assert.True(t, broken.IsOpenAt(monday1200), "unparseable schedule must not block orders")
}

func TestRestaurantHours(t *testing.T) {
	r := Restaurant{OpeningHours: `{"friday": {"open": "18:00", "close": "23:00"}}`}
	hours, err := r.Hours()
	assert.NoError(t, err)
	assert.Equal(t, "18:00", hours["friday"].Open)

	empty := Restaurant{}
	hours, err = empty.Hours()
	assert.NoError(t, err)
	assert.Empty(t, hours)
}
