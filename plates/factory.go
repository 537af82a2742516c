package plates

import (
	"context"

	"github.com/camden-git/siteguard/config"
	"github.com/camden-git/siteguard/logger"
)

// NewReader builds the configured plate reader, or nil when it cannot be
// set up. A nil reader switches the plate capability off.
func NewReader(ctx context.Context, cfg config.PlateConfig, log *logger.Logger) Reader {
	log = log.With("component", "plates", "reader", cfg.Reader)
	pattern, err := CompilePattern(cfg.Pattern)
	if err != nil {
		log.Error("plate capability unavailable", "error", err)
		return nil
	}
	switch cfg.Reader {
	case config.PlateReaderStub:
		log.Warn("using placeholder plate reader, readings are not real OCR")
		return NewStubReader(cfg.MinDimension)
	case config.PlateReaderRekognition:
		client, err := NewRekognitionClient(ctx, cfg.AWSRegion)
		if err != nil {
			log.Error("plate capability unavailable", "error", err)
			return nil
		}
		log.Info("plate reader ready", "region", cfg.AWSRegion)
		return NewRekognitionReader(client, pattern, cfg.MinDimension, log)
	default:
		log.Error("unknown plate reader")
		return nil
	}
}
