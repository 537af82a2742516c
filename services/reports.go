package services

import (
	"database/sql"
	"time"

	"github.com/camden-git/siteguard/database"
)

const (
	DefaultReportDays = 7
	maxReportDays     = 366
)

// ReportService answers the dashboard queries over a window of whole days
// ending today.
type ReportService struct {
	db  *sql.DB
	now func() time.Time
}

func NewReportService(db *sql.DB) *ReportService {
	return &ReportService{db: db, now: utcNow}
}

// Since returns midnight UTC days-1 days ago, so days=1 means today only.
func (s *ReportService) Since(days int) time.Time {
	if days <= 0 {
		days = DefaultReportDays
	}
	if days > maxReportDays {
		days = maxReportDays
	}
	return startOfDay(s.now()).AddDate(0, 0, -(days - 1))
}

// Attendance counts check-ins per day. A non-nil userID limits the report to
// that user's own records.
func (s *ReportService) Attendance(orgID uint, userID *uint, days int) ([]database.DailyCount, error) {
	return database.AttendanceDaily(s.db, orgID, userID, s.Since(days))
}

func (s *ReportService) Plates(orgID uint, days int) ([]database.PlateDayCount, error) {
	return database.PlateDaily(s.db, orgID, s.Since(days))
}

func (s *ReportService) Parking(orgID uint) (database.ParkingTotals, error) {
	return database.ParkingSummary(s.db, orgID)
}

func (s *ReportService) AttendanceExport(orgID uint, userID *uint, days int) ([]database.AttendanceRow, error) {
	return database.AttendanceExport(s.db, orgID, userID, s.Since(days))
}
