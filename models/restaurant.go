package models

import (
	"encoding/json"
	"strings"
	"time"
)

type Restaurant struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"type:varchar(255);not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Address     string `gorm:"type:varchar(255)" json:"address"`
	Phone       string `gorm:"type:varchar(50)" json:"phone"`
	Email       string `gorm:"type:varchar(255);unique" json:"email"`
	LogoURL     *string `gorm:"type:varchar(255)" json:"logo_url,omitempty"`
	// OpeningHours is a JSON object keyed by lowercase weekday name:
	// {"monday": {"open": "09:00", "close": "22:00", "closed": false}, ...}
	OpeningHours string    `gorm:"type:text" json:"opening_hours"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`
}

type DaySchedule struct {
	Open   string `json:"open"`
	Close  string `json:"close"`
	Closed bool   `json:"closed"`
}

// Hours parses the stored opening-hours JSON. An empty column means no
// schedule is configured and the restaurant is treated as always open.
func (r *Restaurant) Hours() (map[string]DaySchedule, error) {
	if r.OpeningHours == "" {
		return map[string]DaySchedule{}, nil
	}
	var hours map[string]DaySchedule
	if err := json.Unmarshal([]byte(r.OpeningHours), &hours); err != nil {
		return nil, err
	}
	return hours, nil
}

// IsOpenAt checks the configured schedule against the given time.
func (r *Restaurant) IsOpenAt(t time.Time) bool {
	hours, err := r.Hours()
	if err != nil || len(hours) == 0 {
		return true
	}

	day := strings.ToLower(t.Weekday().String())
	schedule, ok := hours[day]
	if !ok || schedule.Closed {
		return false
	}

	now := t.Format("15:04")
	return now >= schedule.Open && now <= schedule.Close
}
