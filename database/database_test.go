package database

import (
	"database/sql"
	"testing"
	"time"

	"github.com/camden-git/siteguard/logger"
	"github.com/camden-git/siteguard/models"
)

func seed(t *testing.T) (*sql.DB, models.User, models.User) {
	t.Helper()
	db, err := InitGormDB("file::memory:", logger.Nop())
	if err != nil {
		t.Fatalf("InitGormDB: %v", err)
	}
	if err := AutoMigrateModels(db); err != nil {
		t.Fatalf("AutoMigrateModels: %v", err)
	}
	org := models.Organization{Name: "north"}
	db.Create(&org)
	ada := models.User{Username: "ada", Email: "ada@example.com", PasswordHash: "x", FirstName: "Ada", OrganizationID: org.ID}
	bob := models.User{Username: "bob", Email: "bob@example.com", PasswordHash: "x", OrganizationID: org.ID}
	db.Create(&ada)
	db.Create(&bob)

	day1 := time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)
	out := day1.Add(8 * time.Hour)
	recs := []models.AttendanceRecord{
		{UserID: ada.ID, OrganizationID: org.ID, CheckInTime: day1, CheckOutTime: &out, Method: models.AttendanceMethodFace},
		{UserID: bob.ID, OrganizationID: org.ID, CheckInTime: day1.Add(time.Hour), Method: models.AttendanceMethodFace},
		{UserID: ada.ID, OrganizationID: org.ID, CheckInTime: day2, Method: models.AttendanceMethodManual},
		{UserID: ada.ID, OrganizationID: org.ID, CheckInTime: day1.AddDate(0, 0, -30), Method: models.AttendanceMethodFace},
	}
	if err := db.Create(&recs).Error; err != nil {
		t.Fatalf("seed attendance: %v", err)
	}

	logs := []models.PlateDetectionLog{
		{OrganizationID: org.ID, PlateNumber: "ABC-1234", IsAuthorized: true, DetectedAt: day1},
		{OrganizationID: org.ID, PlateNumber: "XYZ-0001", IsAuthorized: false, DetectedAt: day1.Add(time.Hour)},
		{OrganizationID: org.ID, PlateNumber: "XYZ-0001", IsAuthorized: false, DetectedAt: day2},
		{OrganizationID: org.ID + 1, PlateNumber: "OTHER", IsAuthorized: true, DetectedAt: day2},
	}
	if err := db.Create(&logs).Error; err != nil {
		t.Fatalf("seed plate logs: %v", err)
	}

	spaces := []models.ParkingSpace{
		{OrganizationID: org.ID, SpaceIdentifier: "A1", IsOccupied: true},
		{OrganizationID: org.ID, SpaceIdentifier: "A2"},
		{OrganizationID: org.ID, SpaceIdentifier: "A3"},
	}
	if err := db.Create(&spaces).Error; err != nil {
		t.Fatalf("seed spaces: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("DB: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	return sqlDB, ada, bob
}

func TestAttendanceDaily(t *testing.T) {
	db, ada, _ := seed(t)
	since := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	all, err := AttendanceDaily(db, ada.OrganizationID, nil, since)
	if err != nil {
		t.Fatalf("AttendanceDaily: %v", err)
	}
	if len(all) != 2 || all[0] != (DailyCount{Day: "2026-05-04", Count: 2}) || all[1] != (DailyCount{Day: "2026-05-05", Count: 1}) {
		t.Fatalf("daily = %+v", all)
	}

	own, err := AttendanceDaily(db, ada.OrganizationID, &ada.ID, since)
	if err != nil {
		t.Fatalf("AttendanceDaily own: %v", err)
	}
	if len(own) != 2 || own[0].Count != 1 {
		t.Fatalf("own daily = %+v", own)
	}
}

func TestPlateDaily(t *testing.T) {
	db, ada, _ := seed(t)
	got, err := PlateDaily(db, ada.OrganizationID, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("PlateDaily: %v", err)
	}
	want := []PlateDayCount{
		{Day: "2026-05-04", Authorized: 1, Unauthorized: 1},
		{Day: "2026-05-05", Authorized: 0, Unauthorized: 1},
	}
	if len(got) != len(want) {
		t.Fatalf("got %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("row %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestParkingSummary(t *testing.T) {
	db, ada, _ := seed(t)
	got, err := ParkingSummary(db, ada.OrganizationID)
	if err != nil {
		t.Fatalf("ParkingSummary: %v", err)
	}
	if got != (ParkingTotals{Occupied: 1, Free: 2, Total: 3}) {
		t.Fatalf("totals = %+v", got)
	}
	empty, err := ParkingSummary(db, 999)
	if err != nil || empty != (ParkingTotals{}) {
		t.Fatalf("empty org totals = %+v, %v", empty, err)
	}
}

func TestAttendanceExport(t *testing.T) {
	db, ada, bob := seed(t)
	since := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	rows, err := AttendanceExport(db, ada.OrganizationID, nil, since)
	if err != nil {
		t.Fatalf("AttendanceExport: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d", len(rows))
	}
	if rows[0].Username != "ada" || rows[0].FirstName != "Ada" || rows[0].CheckOut == nil {
		t.Fatalf("first row = %+v", rows[0])
	}
	if rows[1].Username != "bob" || rows[1].CheckOut != nil {
		t.Fatalf("second row = %+v", rows[1])
	}

	own, err := AttendanceExport(db, ada.OrganizationID, &bob.ID, since)
	if err != nil || len(own) != 1 {
		t.Fatalf("bob export = %+v, %v", own, err)
	}
}
