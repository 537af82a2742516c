package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/camden-git/siteguard/detection"
	"github.com/camden-git/siteguard/logger"
	"github.com/camden-git/siteguard/media"
	"github.com/camden-git/siteguard/models"
	"github.com/camden-git/siteguard/observability"
	"github.com/camden-git/siteguard/plates"
	"github.com/camden-git/siteguard/realtime"
	"github.com/camden-git/siteguard/repository"
	"github.com/camden-git/siteguard/workers"
)

// PlateInput registers or updates a vehicle.
type PlateInput struct {
	PlateNumber  string `json:"plate_number"`
	OwnerName    string `json:"owner_name"`
	VehicleMake  string `json:"vehicle_make"`
	VehicleModel string `json:"vehicle_model"`
	IsAuthorized bool   `json:"is_authorized"`
}

// AccessDecision is the result of a plate detection.
type AccessDecision struct {
	PlateNumber string                    `json:"plate_number"`
	Confidence  float64                   `json:"confidence"`
	Authorized  bool                      `json:"is_authorized"`
	Registered  bool                      `json:"registered"`
	OwnerName   string                    `json:"owner_name"`
	VehicleInfo string                    `json:"vehicle_info,omitempty"`
	Box         detection.BoundingBox     `json:"box"`
	Log         *models.PlateDetectionLog `json:"log"`
}

type AccessService struct {
	frameDecoder

	recognizer *plates.Recognizer
	plates     repository.PlateRepository
	processor  *media.Processor
	runner     Runner
	events     Publisher
	log        *logger.Logger
	now        func() time.Time
}

func NewAccessService(
	recognizer *plates.Recognizer,
	plateRepo repository.PlateRepository,
	processor *media.Processor,
	runner Runner,
	events Publisher,
	log *logger.Logger,
) *AccessService {
	return &AccessService{
		recognizer: recognizer,
		plates:     plateRepo,
		processor:  processor,
		runner:     runner,
		events:     events,
		log:        log.With("service", "access"),
		now:        utcNow,
	}
}

// RegisterPlate stores the plate under its normalised number.
func (s *AccessService) RegisterPlate(orgID uint, in PlateInput) (*models.VehiclePlate, error) {
	number := plates.NormalizePlate(in.PlateNumber)
	if number == "" {
		return nil, fmt.Errorf("plate number is required: %w", detection.ErrUnsupportedInput)
	}
	plate := &models.VehiclePlate{
		OrganizationID: orgID,
		PlateKey:       plates.PlateKey(number),
		PlateNumber:    number,
		OwnerName:      strings.TrimSpace(in.OwnerName),
		VehicleMake:    strings.TrimSpace(in.VehicleMake),
		VehicleModel:   strings.TrimSpace(in.VehicleModel),
		IsAuthorized:   in.IsAuthorized,
	}
	if err := s.plates.Upsert(plate); err != nil {
		return nil, err
	}
	s.log.Info("plate registered", "organization_id", orgID, "plate", number, "authorized", in.IsAuthorized)
	return plate, nil
}

func (s *AccessService) ListPlates(orgID uint) ([]models.VehiclePlate, error) {
	return s.plates.List(orgID)
}

func (s *AccessService) ListLogs(orgID uint, limit int) ([]models.PlateDetectionLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	return s.plates.ListLogs(orgID, limit)
}

// Detect reads the plate in data, decides whether it is authorised for the
// organization and appends a detection log. The log time is the EXIF capture
// time when the upload carries one.
func (s *AccessService) Detect(ctx context.Context, orgID uint, data []byte, location string) (decision *AccessDecision, err error) {
	start := time.Now()
	defer func() { observability.ObservePipeline("plate", start, err) }()

	img, err := s.decoder.Decode(data)
	if err != nil {
		return nil, err
	}
	var res plates.Result
	err = s.runner.Do(ctx, workers.KindPlate, func(ctx context.Context) error {
		var err error
		res, err = s.recognizer.Recognize(ctx, img)
		return err
	})
	if err != nil {
		s.log.Warn("plate recognition failed", "organization_id", orgID, "error", err)
		return nil, err
	}

	decision = &AccessDecision{
		PlateNumber: res.Reading.Text,
		Confidence:  res.Reading.Confidence,
		OwnerName:   "Unknown",
		Box:         res.Candidate.Box(),
	}
	entry := &models.PlateDetectionLog{
		OrganizationID: orgID,
		PlateNumber:    res.Reading.Text,
		Confidence:     res.Reading.Confidence,
		Location:       strings.TrimSpace(location),
		BoxX:           decision.Box.X,
		BoxY:           decision.Box.Y,
		BoxW:           decision.Box.W,
		BoxH:           decision.Box.H,
		DetectedAt:     s.detectedAt(data),
	}

	registered, err := s.plates.GetByKey(orgID, plates.PlateKey(res.Reading.Text))
	switch {
	case err == nil:
		decision.Registered = true
		decision.Authorized = registered.IsAuthorized
		if registered.OwnerName != "" {
			decision.OwnerName = registered.OwnerName
		}
		if registered.VehicleMake != "" && registered.VehicleModel != "" {
			decision.VehicleInfo = registered.VehicleMake + " " + registered.VehicleModel
		}
		entry.VehiclePlateID = &registered.ID
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}
	entry.IsAuthorized = decision.Authorized
	entry.CaptureRelPath = saveCapture(s.processor, s.log, media.CapturePlate, img)

	if err := s.plates.CreateLog(entry); err != nil {
		return nil, err
	}
	decision.Log = entry

	observability.PlateDecisions.WithLabelValues(strconv.FormatBool(decision.Authorized)).Inc()
	s.log.Info("plate detected", "organization_id", orgID, "plate", decision.PlateNumber,
		"confidence", decision.Confidence, "authorized", decision.Authorized)
	publish(s.events, realtime.EventPlateDetected, orgID, decision, entry.DetectedAt)
	return decision, nil
}

func (s *AccessService) detectedAt(data []byte) time.Time {
	meta, err := media.ReadCaptureMetadata(data)
	if err == nil && meta.TakenAt != nil {
		return time.Unix(*meta.TakenAt, 0).UTC()
	}
	return s.now().UTC()
}

// Available reports whether plates can be read.
func (s *AccessService) Available() bool {
	return s.recognizer.Available()
}
