// Package services ties the detection pipelines to persistence, capture
// storage and realtime events.
package services

import (
	"context"
	"strconv"
	"time"

	"github.com/camden-git/siteguard/logger"
	"github.com/camden-git/siteguard/media"
	"github.com/camden-git/siteguard/realtime"
)

// Runner executes CPU-heavy detection work, usually on the worker pool.
type Runner interface {
	Do(ctx context.Context, kind string, fn func(ctx context.Context) error) error
}

// Publisher receives detection events for connected clients.
type Publisher interface {
	Broadcast(event realtime.Event)
}

// frameDecoder decodes uploads for the pipeline services.
type frameDecoder struct {
	decoder media.Decoder
}

// SetMaxPixels bounds the size of frames the service will decode.
func (f *frameDecoder) SetMaxPixels(n int) {
	f.decoder.MaxPixels = n
}

func utcNow() time.Time {
	return time.Now().UTC()
}

// startOfDay returns midnight UTC of t's day.
func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func parseID(s string) (uint, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	return uint(v), err
}

// saveCapture stores img when a processor is configured. A storage failure
// is logged and yields an empty path; detections are still recorded.
func saveCapture(p *media.Processor, log *logger.Logger, kind media.CaptureKind, img media.Image) string {
	if p == nil {
		return ""
	}
	rel, err := p.SaveCapture(kind, img)
	if err != nil {
		log.Warn("failed to save capture", "kind", kind, "error", err)
		return ""
	}
	return rel
}

func publish(events Publisher, eventType string, orgID uint, data interface{}, at time.Time) {
	if events == nil {
		return
	}
	events.Broadcast(realtime.Event{Type: eventType, OrganizationID: orgID, Data: data, Timestamp: at.Unix()})
}
