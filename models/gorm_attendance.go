package models

import (
	"fmt"
	"time"
)

const (
	AttendanceMethodFace   = "face_recognition"
	AttendanceMethodManual = "manual"
)

// AttendanceRecord is one check-in, later closed by a check-out.
// CheckOutTime goes from nil to set exactly once.
type AttendanceRecord struct {
	ID             uint       `json:"id" gorm:"primaryKey"`
	UserID         uint       `json:"user_id" gorm:"index;not null"`
	OrganizationID uint       `json:"organization_id" gorm:"index;not null"`
	CheckInTime    time.Time  `json:"check_in_time" gorm:"index;not null"`
	CheckOutTime   *time.Time `json:"check_out_time,omitempty"`
	Method         string     `json:"method" gorm:"not null"`
	MatchDistance  float64    `json:"match_distance"`
	CaptureRelPath string     `json:"capture_path,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`

	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// Open reports whether the record still waits for a check-out.
func (a *AttendanceRecord) Open() bool {
	return a.CheckOutTime == nil
}

// Duration formats the time between check-in and check-out as HH:MM:SS.
// Open records return "".
func (a *AttendanceRecord) Duration() string {
	if a.CheckOutTime == nil {
		return ""
	}
	return FormatDuration(a.CheckOutTime.Sub(a.CheckInTime))
}

// FormatDuration renders d as HH:MM:SS; hours may exceed 24.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs%3600/60, secs%60)
}
