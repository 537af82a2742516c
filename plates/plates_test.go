package plates

import (
	"bytes"
	"context"
	"errors"
	"image"
	"regexp"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"gocv.io/x/gocv"

	"github.com/camden-git/siteguard/detection"
	"github.com/camden-git/siteguard/logger"
	"github.com/camden-git/siteguard/media"
)

func rect(w, h int) contourShape {
	return contourShape{Rect: image.Rect(0, 0, w, h), Points: 4, Area: float64(w * h)}
}

func TestSelectPlateAspectBounds(t *testing.T) {
	cases := []struct {
		name   string
		w, h   int
		accept bool
	}{
		{"exactly 1.5", 150, 100, true},
		{"exactly 5.0", 500, 100, true},
		{"1.49", 149, 100, false},
		{"5.01", 501, 100, false},
		{"3:1", 300, 100, true},
		{"square", 100, 100, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, ok := selectPlate([]contourShape{rect(c.w, c.h)}, 1.5, 5.0)
			if ok != c.accept {
				t.Fatalf("accepted = %v, want %v", ok, c.accept)
			}
		})
	}
}

func TestSelectPlateRequiresFourPoints(t *testing.T) {
	s := rect(300, 100)
	s.Points = 5
	if _, ok := selectPlate([]contourShape{s}, 1.5, 5.0); ok {
		t.Fatalf("5-point polygon accepted")
	}
}

func TestSelectPlateLargestWinsFirstOnTie(t *testing.T) {
	small := rect(150, 50)
	first := contourShape{Rect: image.Rect(10, 10, 310, 110), Points: 4, Area: 1}
	second := contourShape{Rect: image.Rect(0, 200, 300, 300), Points: 4, Area: 2}

	got, ok := selectPlate([]contourShape{small, first, second}, 1.5, 5.0)
	if !ok {
		t.Fatalf("no plate selected")
	}
	if got.Rect != first.Rect {
		t.Fatalf("winner = %v, want first of the tied pair %v", got.Rect, first.Rect)
	}
	if got.AspectRatio != 3 || got.Points != 4 {
		t.Fatalf("candidate = %+v", got)
	}
}

func TestRankShapesKeepsTopN(t *testing.T) {
	var shapes []contourShape
	for i := 0; i < 12; i++ {
		s := rect(10, 10)
		s.Area = float64(100 - i)
		shapes = append(shapes, s)
	}
	// the only plate-shaped contour is the 11th largest
	shapes[10] = contourShape{Rect: image.Rect(0, 0, 300, 100), Points: 4, Area: 90}
	ranked := rankShapes(shapes, 10)
	if len(ranked) != 10 {
		t.Fatalf("len = %d", len(ranked))
	}
	if _, ok := selectPlate(ranked, 1.5, 5.0); ok {
		t.Fatalf("contour outside the top 10 was selected")
	}
}

// syntheticPlateFrame draws a dark 3:1 plate on a light background with nine
// small noise specks.
func syntheticPlateFrame() (media.Image, image.Rectangle) {
	const w, h = 400, 300
	img := media.Image{Width: w, Height: h, Pix: make([]uint8, w*h*3)}
	for i := range img.Pix {
		img.Pix[i] = 230
	}
	fill := func(r image.Rectangle, v uint8) {
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				o := (y*w + x) * 3
				img.Pix[o], img.Pix[o+1], img.Pix[o+2] = v, v, v
			}
		}
	}
	plate := image.Rect(110, 120, 290, 180)
	fill(plate, 20)
	for i := 0; i < 9; i++ {
		x := 20 + i*40
		fill(image.Rect(x, 30, x+3, 33), 20)
	}
	return img, plate
}

func TestLocateFindsPlateAmongNoise(t *testing.T) {
	img, plate := syntheticPlateFrame()
	loc, err := NewLocator(DefaultLocatorConfig()).Locate(img)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	r := loc.Candidate.Rect
	if abs(r.Min.X-plate.Min.X) > 3 || abs(r.Min.Y-plate.Min.Y) > 3 ||
		abs(r.Max.X-plate.Max.X) > 3 || abs(r.Max.Y-plate.Max.Y) > 3 {
		t.Fatalf("located %v, want about %v", r, plate)
	}
	if loc.Binary.Width != r.Dx() || loc.Binary.Height != r.Dy() {
		t.Fatalf("binary crop %dx%d does not match %v", loc.Binary.Width, loc.Binary.Height, r)
	}
}

func TestLocateBinarizesSmoothedFrame(t *testing.T) {
	img, _ := syntheticPlateFrame()
	// low-contrast speckle that the bilateral filter flattens
	for y := 125; y < 175; y += 4 {
		for x := 115; x < 285; x += 4 {
			o := (y*img.Width + x) * 3
			img.Pix[o], img.Pix[o+1], img.Pix[o+2] = 34, 34, 34
		}
	}
	loc, err := NewLocator(DefaultLocatorConfig()).Locate(img)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}

	mat, err := media.ToMat(img)
	if err != nil {
		t.Fatalf("ToMat: %v", err)
	}
	defer mat.Close()
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)
	smooth := gocv.NewMat()
	defer smooth.Close()
	gocv.BilateralFilter(gray, &smooth, bilateralDiameter, bilateralSigmaColor, bilateralSigmaSpace)

	want, err := binarizeRegion(smooth, loc.Candidate.Rect)
	if err != nil {
		t.Fatalf("binarizeRegion: %v", err)
	}
	if !bytes.Equal(loc.Binary.Pix, want.Pix) {
		t.Fatalf("binary crop was not taken from the bilateral-filtered frame")
	}
}

func TestLocateNoPlate(t *testing.T) {
	img := media.Image{Width: 50, Height: 50, Pix: make([]uint8, 50*50*3)}
	if _, err := NewLocator(DefaultLocatorConfig()).Locate(img); !errors.Is(err, detection.ErrNoPlateDetected) {
		t.Fatalf("err = %v, want ErrNoPlateDetected", err)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

var placeholderPlate = regexp.MustCompile(`^[A-Z]{3}-[0-9]{4}$`)

func TestStubReaderDeterministic(t *testing.T) {
	img, _ := syntheticPlateFrame()
	crop := img.Crop(image.Rect(0, 0, 120, 40))
	r := NewStubReader(0)

	a, err := r.Read(context.Background(), crop)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	b, _ := r.Read(context.Background(), crop)
	if a != b {
		t.Fatalf("readings differ: %+v vs %+v", a, b)
	}
	if !placeholderPlate.MatchString(a.Text) || a.Confidence != StubConfidence {
		t.Fatalf("reading = %+v", a)
	}
}

func TestStubReaderDegenerate(t *testing.T) {
	thin := media.Image{Width: 100, Height: 2, Pix: make([]uint8, 600)}
	if _, err := NewStubReader(0).Read(context.Background(), thin); !errors.Is(err, detection.ErrUnreadablePlate) {
		t.Fatalf("err = %v, want ErrUnreadablePlate", err)
	}
}

func TestRecognizerEndToEnd(t *testing.T) {
	img, _ := syntheticPlateFrame()
	res, err := NewRecognizer(NewLocator(DefaultLocatorConfig()), NewStubReader(0)).Recognize(context.Background(), img)
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if !placeholderPlate.MatchString(res.Reading.Text) {
		t.Fatalf("text = %q", res.Reading.Text)
	}
}

func TestRecognizerUnavailable(t *testing.T) {
	img, _ := syntheticPlateFrame()
	_, err := NewRecognizer(NewLocator(DefaultLocatorConfig()), nil).Recognize(context.Background(), img)
	if !errors.Is(err, detection.ErrCapabilityUnavailable) {
		t.Fatalf("err = %v", err)
	}
}

type fakeDetector struct {
	out *rekognition.DetectTextOutput
	err error
}

func (f fakeDetector) DetectText(context.Context, *rekognition.DetectTextInput, ...func(*rekognition.Options)) (*rekognition.DetectTextOutput, error) {
	return f.out, f.err
}

func line(text string, conf float32) types.TextDetection {
	return types.TextDetection{Type: types.TextTypesLine, DetectedText: aws.String(text), Confidence: aws.Float32(conf)}
}

func TestRekognitionReaderPicksMostConfidentPlate(t *testing.T) {
	pattern, _ := CompilePattern(`^[A-Z]{3}-?[0-9]{4}$`)
	fd := fakeDetector{out: &rekognition.DetectTextOutput{TextDetections: []types.TextDetection{
		line("PARKING", 99),
		line("abc 1234", 80),
		line("XYZ-9876", 95.5),
		{Type: types.TextTypesWord, DetectedText: aws.String("QQQ-0000"), Confidence: aws.Float32(99.9)},
	}}}
	r := NewRekognitionReader(fd, pattern, 0, logger.Nop())
	crop := media.Image{Width: 60, Height: 20, Pix: make([]uint8, 60*20*3)}

	got, err := r.Read(context.Background(), crop)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Text != "XYZ-9876" || got.Confidence < 0.95 || got.Confidence > 0.96 {
		t.Fatalf("reading = %+v", got)
	}
}

func TestRekognitionReaderNoPlateText(t *testing.T) {
	pattern, _ := CompilePattern(`^[A-Z]{3}-?[0-9]{4}$`)
	fd := fakeDetector{out: &rekognition.DetectTextOutput{TextDetections: []types.TextDetection{line("STOP", 99)}}}
	crop := media.Image{Width: 60, Height: 20, Pix: make([]uint8, 60*20*3)}
	_, err := NewRekognitionReader(fd, pattern, 0, logger.Nop()).Read(context.Background(), crop)
	if !errors.Is(err, detection.ErrUnreadablePlate) {
		t.Fatalf("err = %v", err)
	}
}

func TestNormalizePlate(t *testing.T) {
	cases := map[string]string{
		" abc 1234 ": "ABC1234",
		"abc--1234":  "ABC-1234",
		"-xy.z-99-":  "XYZ-99",
		"ab_12":      "AB-12",
	}
	for in, want := range cases {
		if got := NormalizePlate(in); got != want {
			t.Errorf("NormalizePlate(%q) = %q, want %q", in, got, want)
		}
	}
	if PlateKey("abc-1234") != PlateKey("ABC 1234") {
		t.Fatalf("plate keys differ")
	}
}
