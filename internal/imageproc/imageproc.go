package imageproc

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	// Extra decoders beyond the stdlib jpeg/png/gif trio.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Aspect-ratio modes.
const (
	ModePad     = "pad"
	ModeCrop    = "crop"
	ModeStretch = "stretch"
)

const (
	targetRatio    = 2.0
	ratioTolerance = 0.01

	jpegQuality  = 95
	thumbQuality = 80
)

// Processor normalizes images to a 2:1 equirectangular aspect ratio and
// produces gallery thumbnails. The zero value is not usable; use NewProcessor.
type Processor struct {
	// Background fills padding and flattens transparency.
	Background color.Color
	// Minimum output resolution; anything narrower is upscaled to exactly
	// TargetWidth x TargetHeight.
	TargetWidth  int
	TargetHeight int
	// Thumbnail bounding box.
	ThumbWidth  int
	ThumbHeight int
}

func NewProcessor() *Processor {
	return &Processor{
		Background:   color.NRGBA{0, 0, 0, 255},
		TargetWidth:  6000,
		TargetHeight: 3000,
		ThumbWidth:   300,
		ThumbHeight:  150,
	}
}

// Normalize decodes data and returns JPEG bytes in exactly 2:1 aspect ratio.
// Images already within 1% of 2:1 are left unreshaped. The output is upscaled
// to the target resolution when narrower than TargetWidth.
func (p *Processor) Normalize(data []byte, mode string) ([]byte, error) {
	const op = "imageproc.Normalize"

	src, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: decode: %v", op, err)
	}

	img := p.flatten(src)
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("%s: zero-area image", op)
	}

	ratio := float64(w) / float64(h)
	if math.Abs(ratio-targetRatio) < ratioTolerance {
		if w < p.TargetWidth {
			img = imaging.Resize(img, p.TargetWidth, p.TargetHeight, imaging.Lanczos)
		}
		return encodeJPEG(img, jpegQuality)
	}

	switch mode {
	case ModeStretch:
		img = imaging.Resize(img, w, w/2, imaging.Lanczos)

	case ModeCrop:
		if ratio > targetRatio {
			// Too wide: crop the sides.
			img = imaging.CropCenter(img, int(float64(h)*targetRatio), h)
		} else {
			// Too tall: crop top and bottom.
			img = imaging.CropCenter(img, w, int(float64(w)/targetRatio))
		}

	default: // ModePad
		if ratio > targetRatio {
			// Too wide: letterbox top and bottom.
			canvas := imaging.New(w, int(float64(w)/targetRatio), p.Background)
			img = imaging.PasteCenter(canvas, img)
		} else {
			// Too tall: pillarbox left and right.
			canvas := imaging.New(int(float64(h)*targetRatio), h, p.Background)
			img = imaging.PasteCenter(canvas, img)
		}
	}

	if img.Bounds().Dx() < p.TargetWidth {
		img = imaging.Resize(img, p.TargetWidth, p.TargetHeight, imaging.Lanczos)
	}
	return encodeJPEG(img, jpegQuality)
}

// CreateThumbnail writes a JPEG thumbnail of the image at srcPath to dstPath,
// shrunk to fit the thumbnail bounding box while preserving aspect ratio.
func (p *Processor) CreateThumbnail(srcPath, dstPath string) error {
	const op = "imageproc.CreateThumbnail"

	img, err := imaging.Open(srcPath)
	if err != nil {
		return fmt.Errorf("%s: %v", op, err)
	}
	thumb := imaging.Fit(p.flatten(img), p.ThumbWidth, p.ThumbHeight, imaging.Lanczos)
	if err := imaging.Save(thumb, dstPath, imaging.JPEGQuality(thumbQuality)); err != nil {
		return fmt.Errorf("%s: %v", op, err)
	}
	return nil
}

// flatten composites img onto an opaque background so transparency and
// palette images survive JPEG encoding.
func (p *Processor) flatten(img image.Image) *image.NRGBA {
	canvas := imaging.New(img.Bounds().Dx(), img.Bounds().Dy(), p.Background)
	return imaging.Overlay(canvas, img, image.Pt(0, 0), 1.0)
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("imageproc: encode: %v", err)
	}
	return buf.Bytes(), nil
}
