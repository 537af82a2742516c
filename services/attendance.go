package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/camden-git/siteguard/detection"
	"github.com/camden-git/siteguard/logger"
	"github.com/camden-git/siteguard/media"
	"github.com/camden-git/siteguard/models"
	"github.com/camden-git/siteguard/observability"
	"github.com/camden-git/siteguard/realtime"
	"github.com/camden-git/siteguard/recognition"
	"github.com/camden-git/siteguard/repository"
	"github.com/camden-git/siteguard/workers"
)

// ErrFaceNotRecognized means a face was found but matched nobody enrolled.
var ErrFaceNotRecognized = errors.New("face not recognized")

const (
	AttendanceCheckIn  = "check_in"
	AttendanceCheckOut = "check_out"
)

// AttendanceResult is the outcome of one attendance capture.
type AttendanceResult struct {
	Type   string                    `json:"type"`
	UserID uint                      `json:"user_id"`
	Time   time.Time                 `json:"time"`
	Match  detection.FaceMatchResult `json:"match"`
	Record *models.AttendanceRecord  `json:"record"`
}

type AttendanceService struct {
	frameDecoder

	extractor  *recognition.Extractor
	embeddings repository.FaceEmbeddingRepository
	attendance repository.AttendanceRepository
	processor  *media.Processor
	runner     Runner
	events     Publisher
	tolerance  float64
	log        *logger.Logger
	now        func() time.Time
}

func NewAttendanceService(
	extractor *recognition.Extractor,
	embeddings repository.FaceEmbeddingRepository,
	attendance repository.AttendanceRepository,
	processor *media.Processor,
	runner Runner,
	events Publisher,
	tolerance float64,
	log *logger.Logger,
) *AttendanceService {
	if tolerance <= 0 {
		tolerance = recognition.DefaultTolerance
	}
	return &AttendanceService{
		extractor:  extractor,
		embeddings: embeddings,
		attendance: attendance,
		processor:  processor,
		runner:     runner,
		events:     events,
		tolerance:  tolerance,
		log:        log.With("service", "attendance"),
		now:        utcNow,
	}
}

func (s *AttendanceService) extract(ctx context.Context, kind string, data []byte) (media.Image, detection.Embedding, error) {
	img, err := s.decoder.Decode(data)
	if err != nil {
		return media.Image{}, nil, err
	}
	var vec detection.Embedding
	err = s.runner.Do(ctx, kind, func(context.Context) error {
		var err error
		vec, _, err = s.extractor.Extract(img)
		return err
	})
	if err != nil {
		// the job may still be running and writing vec
		return img, nil, err
	}
	return img, vec, nil
}

// Enroll extracts an embedding from data and makes it the user's active
// embedding, replacing any earlier one.
func (s *AttendanceService) Enroll(ctx context.Context, user *models.User, data []byte) (fe *models.FaceEmbedding, err error) {
	start := time.Now()
	defer func() { observability.ObservePipeline("face_enroll", start, err) }()

	img, vec, err := s.extract(ctx, workers.KindEnroll, data)
	if err != nil {
		s.log.Warn("enrollment extraction failed", "user_id", user.ID, "error", err)
		return nil, err
	}

	fe = &models.FaceEmbedding{
		UserID:         user.ID,
		OrganizationID: user.OrganizationID,
		EmbeddingModel: s.extractor.BackendName(),
		CaptureRelPath: saveCapture(s.processor, s.log, media.CaptureFace, img),
	}
	fe.SetEmbedding(vec)
	if err := s.embeddings.Replace(fe); err != nil {
		return nil, err
	}
	s.log.Info("face enrolled", "user_id", user.ID, "model", fe.EmbeddingModel)
	return fe, nil
}

// Verify matches the face in data against the organization's gallery.
func (s *AttendanceService) Verify(ctx context.Context, orgID uint, data []byte) (detection.FaceMatchResult, media.Image, error) {
	img, query, err := s.extract(ctx, workers.KindVerify, data)
	if err != nil {
		return detection.FaceMatchResult{}, img, err
	}
	rows, err := s.embeddings.ListByOrganization(orgID)
	if err != nil {
		return detection.FaceMatchResult{}, img, err
	}
	gallery := make([]recognition.GalleryEntry, 0, len(rows))
	for i := range rows {
		gallery = append(gallery, recognition.GalleryEntry{UserID: formatID(rows[i].UserID), Vector: rows[i].GetEmbedding()})
	}

	res := recognition.Match(query, gallery, s.tolerance)
	observability.FaceMatches.WithLabelValues(string(res.Reason)).Inc()
	if res.Skipped > 0 {
		s.log.Warn("gallery entries with unexpected dimension skipped", "organization_id", orgID, "skipped", res.Skipped)
	}
	return res, img, nil
}

// Record identifies the person in data and checks them in, or checks them
// out when they already have an open record from today.
func (s *AttendanceService) Record(ctx context.Context, orgID uint, data []byte) (result *AttendanceResult, err error) {
	start := time.Now()
	defer func() { observability.ObservePipeline("attendance", start, err) }()

	match, img, err := s.Verify(ctx, orgID, data)
	if err != nil {
		return nil, err
	}
	if !match.Matched {
		s.log.Debug("face not recognized", "organization_id", orgID, "reason", match.Reason, "distance", match.Distance)
		return nil, fmt.Errorf("%s: %w", match.Reason, ErrFaceNotRecognized)
	}
	userID, err := parseID(match.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid gallery user id %q: %w", match.UserID, err)
	}

	now := s.now().UTC()
	result = &AttendanceResult{UserID: userID, Time: now, Match: match}

	open, err := s.attendance.FindOpenSince(userID, startOfDay(now))
	switch {
	case err == nil:
		if err := s.attendance.CheckOut(open.ID, now); err != nil {
			return nil, err
		}
		open.CheckOutTime = &now
		result.Type = AttendanceCheckOut
		result.Record = open
	case errors.Is(err, gorm.ErrRecordNotFound):
		rec := &models.AttendanceRecord{
			UserID:         userID,
			OrganizationID: orgID,
			CheckInTime:    now,
			Method:         models.AttendanceMethodFace,
			MatchDistance:  match.Distance,
			CaptureRelPath: saveCapture(s.processor, s.log, media.CaptureFace, img),
		}
		if err := s.attendance.Create(rec); err != nil {
			return nil, err
		}
		result.Type = AttendanceCheckIn
		result.Record = rec
	default:
		return nil, err
	}

	s.log.Info("attendance recorded", "user_id", userID, "type", result.Type, "distance", match.Distance)
	publish(s.events, realtime.EventAttendance, orgID, result, now)
	return result, nil
}

// History returns the user's latest attendance records.
func (s *AttendanceService) History(userID uint, limit int) ([]models.AttendanceRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return s.attendance.ListByUser(userID, limit)
}

// Available reports whether a face backend is loaded.
func (s *AttendanceService) Available() bool {
	return s.extractor.Available()
}
