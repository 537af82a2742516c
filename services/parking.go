package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/camden-git/siteguard/detection"
	"github.com/camden-git/siteguard/logger"
	"github.com/camden-git/siteguard/media"
	"github.com/camden-git/siteguard/models"
	"github.com/camden-git/siteguard/observability"
	"github.com/camden-git/siteguard/parking"
	"github.com/camden-git/siteguard/realtime"
	"github.com/camden-git/siteguard/repository"
	"github.com/camden-git/siteguard/workers"
)

var ErrSpaceExists = errors.New("parking space with this identifier already exists")

// ParkingAnalysis is the full snapshot of one analysis plus the spaces whose
// stored state changed.
type ParkingAnalysis struct {
	Snapshot    detection.OccupancySnapshot `json:"snapshot"`
	Changed     []repository.SpaceChange    `json:"updated_spaces"`
	CapturePath string                      `json:"capture_path,omitempty"`
	OverlayPath string                      `json:"overlay_path,omitempty"`
}

type ParkingService struct {
	frameDecoder

	analyzer    *parking.Analyzer
	spaces      repository.ParkingRepository
	processor   *media.Processor
	runner      Runner
	events      Publisher
	saveOverlay bool
	log         *logger.Logger
	now         func() time.Time
}

func NewParkingService(
	analyzer *parking.Analyzer,
	spaces repository.ParkingRepository,
	processor *media.Processor,
	runner Runner,
	events Publisher,
	saveOverlay bool,
	log *logger.Logger,
) *ParkingService {
	return &ParkingService{
		analyzer:    analyzer,
		spaces:      spaces,
		processor:   processor,
		runner:      runner,
		events:      events,
		saveOverlay: saveOverlay,
		log:         log.With("service", "parking"),
		now:         utcNow,
	}
}

func (s *ParkingService) CreateSpace(orgID uint, identifier, description string) (*models.ParkingSpace, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, fmt.Errorf("space identifier is required: %w", detection.ErrUnsupportedInput)
	}
	existing, err := s.spaces.ListSpaces(orgID)
	if err != nil {
		return nil, err
	}
	for _, sp := range existing {
		if sp.SpaceIdentifier == identifier {
			return nil, ErrSpaceExists
		}
	}
	space := &models.ParkingSpace{
		OrganizationID:  orgID,
		SpaceIdentifier: identifier,
		Description:     strings.TrimSpace(description),
	}
	if err := s.spaces.CreateSpace(space); err != nil {
		return nil, err
	}
	return space, nil
}

func (s *ParkingService) ListSpaces(orgID uint) ([]models.ParkingSpace, error) {
	return s.spaces.ListSpaces(orgID)
}

func (s *ParkingService) ListLogs(orgID uint, limit int) ([]models.ParkingLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	return s.spaces.ListLogs(orgID, limit)
}

// Analyze infers occupancy for every space of the organization, laid out on
// the grid in natural identifier order. Only known verdicts that differ from
// the stored state are persisted.
func (s *ParkingService) Analyze(ctx context.Context, orgID uint, data []byte) (analysis *ParkingAnalysis, err error) {
	start := time.Now()
	defer func() { observability.ObservePipeline("parking", start, err) }()

	spaces, err := s.spaces.ListSpaces(orgID)
	if err != nil {
		return nil, err
	}
	if len(spaces) == 0 {
		return nil, fmt.Errorf("no parking spaces configured: %w", detection.ErrUnsupportedInput)
	}
	img, err := s.decoder.Decode(data)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(spaces))
	for i, sp := range spaces {
		ids[i] = sp.SpaceIdentifier
	}
	var snap detection.OccupancySnapshot
	var overlay media.Image
	err = s.runner.Do(ctx, workers.KindParking, func(context.Context) error {
		var err error
		if snap, err = s.analyzer.Analyze(img, ids); err != nil {
			return err
		}
		if s.saveOverlay && s.processor != nil {
			if overlay, err = parking.Annotate(img, snap); err != nil {
				s.log.Warn("failed to annotate parking frame", "error", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	analysis = &ParkingAnalysis{Snapshot: snap, Changed: []repository.SpaceChange{}}
	occupied := 0
	for _, sp := range spaces {
		isOccupied, known := snap.Occupied(sp.SpaceIdentifier)
		if !known {
			if sp.IsOccupied {
				occupied++
			}
			continue
		}
		if isOccupied {
			occupied++
		}
		if isOccupied != sp.IsOccupied {
			analysis.Changed = append(analysis.Changed, repository.SpaceChange{
				SpaceID:    sp.ID,
				Identifier: sp.SpaceIdentifier,
				Occupied:   isOccupied,
				Fraction:   snap.Spaces[sp.SpaceIdentifier].Fraction,
			})
		}
	}

	analysis.CapturePath = saveCapture(s.processor, s.log, media.CaptureParking, img)
	if !overlay.Empty() {
		if rel, err := s.processor.SaveDebug(media.CaptureParking, overlay); err != nil {
			s.log.Warn("failed to save parking overlay", "error", err)
		} else {
			analysis.OverlayPath = rel
		}
	}

	if err := s.spaces.ApplyChanges(orgID, analysis.Changed, analysis.CapturePath, now); err != nil {
		return nil, err
	}
	observability.OccupiedSpaces.WithLabelValues(formatID(orgID)).Set(float64(occupied))

	o, f, u := snap.Counts()
	s.log.Info("parking analysed", "organization_id", orgID, "occupied", o, "free", f, "unknown", u, "changed", len(analysis.Changed))
	if len(analysis.Changed) > 0 {
		publish(s.events, realtime.EventParkingChanged, orgID, analysis.Changed, now)
	}
	return analysis, nil
}

// Available reports whether the analyzer is configured.
func (s *ParkingService) Available() bool {
	return s.analyzer != nil
}
