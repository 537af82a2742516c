package plates

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/camden-git/siteguard/detection"
	"github.com/camden-git/siteguard/logger"
	"github.com/camden-git/siteguard/media"
)

// TextDetector is the part of the Rekognition client the reader uses.
type TextDetector interface {
	DetectText(ctx context.Context, params *rekognition.DetectTextInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectTextOutput, error)
}

// RekognitionReader reads plates with AWS Rekognition DetectText. Of the
// LINE detections that match the plate pattern the most confident wins.
type RekognitionReader struct {
	client  TextDetector
	pattern *regexp.Regexp
	minDim  int
	log     *logger.Logger
}

func NewRekognitionReader(client TextDetector, pattern *regexp.Regexp, minDim int, log *logger.Logger) *RekognitionReader {
	if minDim <= 0 {
		minDim = DefaultMinDimension
	}
	return &RekognitionReader{client: client, pattern: pattern, minDim: minDim, log: log}
}

// NewRekognitionClient loads the default AWS credential chain.
func NewRekognitionClient(ctx context.Context, region string) (*rekognition.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return rekognition.NewFromConfig(cfg), nil
}

func (r *RekognitionReader) Name() string { return "rekognition" }

func (r *RekognitionReader) Read(ctx context.Context, plate media.Image) (detection.PlateReading, error) {
	if err := checkReadable(plate, r.minDim); err != nil {
		return detection.PlateReading{}, err
	}
	data, err := media.EncodePNG(plate)
	if err != nil {
		return detection.PlateReading{}, err
	}

	out, err := r.client.DetectText(ctx, &rekognition.DetectTextInput{
		Image: &types.Image{Bytes: data},
	})
	if err != nil {
		return detection.PlateReading{}, fmt.Errorf("rekognition detect text: %w", err)
	}

	var best detection.PlateReading
	var seen []string
	for _, td := range out.TextDetections {
		if td.Type != types.TextTypesLine || td.DetectedText == nil {
			continue
		}
		text := NormalizePlate(aws.ToString(td.DetectedText))
		seen = append(seen, text)
		if text == "" || !r.pattern.MatchString(text) {
			continue
		}
		conf := clamp01(float64(aws.ToFloat32(td.Confidence)) / 100)
		if best.Text == "" || conf > best.Confidence {
			best = detection.PlateReading{Text: text, Confidence: conf}
		}
	}
	if best.Text == "" {
		r.log.Debug("no detected line matched the plate pattern", "lines", seen)
		return detection.PlateReading{}, fmt.Errorf("%d text lines, none plate-like: %w", len(seen), detection.ErrUnreadablePlate)
	}
	return best, nil
}
