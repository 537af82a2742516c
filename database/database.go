package database

import (
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// dayExpr extracts YYYY-MM-DD from a stored timestamp. Timestamps are written
// in UTC, so the prefix is the UTC day.
func dayExpr(column string) string {
	return "substr(" + column + ", 1, 10)"
}

type DailyCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// AttendanceDaily counts check-ins per day since the given time. A non-nil
// userID restricts the count to that user.
func AttendanceDaily(db *sql.DB, orgID uint, userID *uint, since time.Time) ([]DailyCount, error) {
	qb := psql.Select(dayExpr("check_in_time")+" AS day", "COUNT(*)").
		From("attendance_records").
		Where(sq.Eq{"organization_id": orgID}).
		Where(sq.GtOrEq{"check_in_time": since.UTC()}).
		GroupBy("day").
		OrderBy("day")
	if userID != nil {
		qb = qb.Where(sq.Eq{"user_id": *userID})
	}

	sqlStr, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL query for AttendanceDaily: %w", err)
	}
	rows, err := db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance counts: %w", err)
	}
	defer rows.Close()

	out := []DailyCount{}
	for rows.Next() {
		var dc DailyCount
		if err := rows.Scan(&dc.Day, &dc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan attendance count: %w", err)
		}
		out = append(out, dc)
	}
	return out, rows.Err()
}

type PlateDayCount struct {
	Day          string `json:"day"`
	Authorized   int    `json:"authorized"`
	Unauthorized int    `json:"unauthorized"`
}

// PlateDaily splits plate detections per day by authorisation.
func PlateDaily(db *sql.DB, orgID uint, since time.Time) ([]PlateDayCount, error) {
	sqlStr, args, err := psql.Select(
		dayExpr("detected_at")+" AS day",
		"SUM(CASE WHEN is_authorized THEN 1 ELSE 0 END)",
		"SUM(CASE WHEN is_authorized THEN 0 ELSE 1 END)",
	).
		From("plate_detection_logs").
		Where(sq.Eq{"organization_id": orgID}).
		Where(sq.GtOrEq{"detected_at": since.UTC()}).
		GroupBy("day").
		OrderBy("day").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL query for PlateDaily: %w", err)
	}
	rows, err := db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query plate counts: %w", err)
	}
	defer rows.Close()

	out := []PlateDayCount{}
	for rows.Next() {
		var pc PlateDayCount
		if err := rows.Scan(&pc.Day, &pc.Authorized, &pc.Unauthorized); err != nil {
			return nil, fmt.Errorf("failed to scan plate count: %w", err)
		}
		out = append(out, pc)
	}
	return out, rows.Err()
}

type ParkingTotals struct {
	Occupied int `json:"occupied"`
	Free     int `json:"free"`
	Total    int `json:"total"`
}

func ParkingSummary(db *sql.DB, orgID uint) (ParkingTotals, error) {
	sqlStr, args, err := psql.Select(
		"COALESCE(SUM(CASE WHEN is_occupied THEN 1 ELSE 0 END), 0)",
		"COUNT(*)",
	).
		From("parking_spaces").
		Where(sq.Eq{"organization_id": orgID}).
		ToSql()
	if err != nil {
		return ParkingTotals{}, fmt.Errorf("failed to build SQL query for ParkingSummary: %w", err)
	}
	var t ParkingTotals
	if err := db.QueryRow(sqlStr, args...).Scan(&t.Occupied, &t.Total); err != nil {
		return ParkingTotals{}, fmt.Errorf("failed to query parking totals: %w", err)
	}
	t.Free = t.Total - t.Occupied
	return t, nil
}

// AttendanceRow is one line of the attendance export.
type AttendanceRow struct {
	ID        uint
	Username  string
	FirstName string
	LastName  string
	CheckIn   time.Time
	CheckOut  *time.Time
	Method    string
}

// AttendanceExport lists attendance with user names, oldest first.
func AttendanceExport(db *sql.DB, orgID uint, userID *uint, since time.Time) ([]AttendanceRow, error) {
	qb := psql.Select("a.id", "u.username", "u.first_name", "u.last_name", "a.check_in_time", "a.check_out_time", "a.method").
		From("attendance_records a").
		Join("users u ON u.id = a.user_id").
		Where(sq.Eq{"a.organization_id": orgID}).
		Where(sq.GtOrEq{"a.check_in_time": since.UTC()}).
		OrderBy("a.check_in_time", "a.id")
	if userID != nil {
		qb = qb.Where(sq.Eq{"a.user_id": *userID})
	}
	sqlStr, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL query for AttendanceExport: %w", err)
	}
	rows, err := db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance export: %w", err)
	}
	defer rows.Close()

	var out []AttendanceRow
	for rows.Next() {
		var r AttendanceRow
		var checkOut sql.NullTime
		var first, last sql.NullString
		if err := rows.Scan(&r.ID, &r.Username, &first, &last, &r.CheckIn, &checkOut, &r.Method); err != nil {
			return nil, fmt.Errorf("failed to scan attendance row: %w", err)
		}
		r.FirstName, r.LastName = first.String, last.String
		if checkOut.Valid {
			t := checkOut.Time
			r.CheckOut = &t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
