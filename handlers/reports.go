package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/camden-git/siteguard/logger"
	"github.com/camden-git/siteguard/models"
	"github.com/camden-git/siteguard/permissions"
	"github.com/camden-git/siteguard/services"
)

type ReportHandler struct {
	Service *services.ReportService
	Log     *logger.Logger
}

func daysParam(r *http.Request) int {
	days, err := strconv.Atoi(r.URL.Query().Get("days"))
	if err != nil {
		return services.DefaultReportDays
	}
	return days
}

// attendanceScope limits users without the organization-wide permission to
// their own records.
func attendanceScope(user *models.User) *uint {
	if user.HasPermission(permissions.ReportsViewAll) {
		return nil
	}
	id := user.ID
	return &id
}

type chartResponse struct {
	Labels []string `json:"labels"`
	Values []int    `json:"values"`
}

func (h *ReportHandler) Attendance(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	rows, err := h.Service.Attendance(user.OrganizationID, attendanceScope(user), daysParam(r))
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	resp := chartResponse{Labels: []string{}, Values: []int{}}
	for _, row := range rows {
		resp.Labels = append(resp.Labels, row.Day)
		resp.Values = append(resp.Values, row.Count)
	}
	writeJSON(w, http.StatusOK, resp)
}

type plateChartResponse struct {
	Labels       []string `json:"labels"`
	Authorized   []int    `json:"authorized"`
	Unauthorized []int    `json:"unauthorized"`
}

func (h *ReportHandler) Plates(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	rows, err := h.Service.Plates(user.OrganizationID, daysParam(r))
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	resp := plateChartResponse{Labels: []string{}, Authorized: []int{}, Unauthorized: []int{}}
	for _, row := range rows {
		resp.Labels = append(resp.Labels, row.Day)
		resp.Authorized = append(resp.Authorized, row.Authorized)
		resp.Unauthorized = append(resp.Unauthorized, row.Unauthorized)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ReportHandler) Parking(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	totals, err := h.Service.Parking(user.OrganizationID)
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

// AttendanceCSV streams the attendance export as CSV.
func (h *ReportHandler) AttendanceCSV(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	rows, err := h.Service.AttendanceExport(user.OrganizationID, attendanceScope(user), daysParam(r))
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=attendance_%s.csv", time.Now().UTC().Format("20060102")))
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"id", "username", "first_name", "last_name", "check_in", "check_out", "duration", "method"})
	for _, row := range rows {
		checkOut, duration := "", ""
		if row.CheckOut != nil {
			checkOut = row.CheckOut.UTC().Format(time.RFC3339)
			duration = models.FormatDuration(row.CheckOut.Sub(row.CheckIn))
		}
		_ = cw.Write([]string{
			strconv.FormatUint(uint64(row.ID), 10),
			row.Username,
			row.FirstName,
			row.LastName,
			row.CheckIn.UTC().Format(time.RFC3339),
			checkOut,
			duration,
			row.Method,
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		h.Log.Warn("failed to write attendance csv", "error", err)
	}
}
