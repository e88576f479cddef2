package imageproc

import (
	"bytes"
	"fmt"

	"github.com/gen2brain/heic"
)

// HEICSupported reports whether HEIC decoding is available. The wazero-based
// decoder needs no external libraries, so this is always true here; callers
// gate the conversion endpoint on it regardless.
func HEICSupported() bool {
	return true
}

// ConvertHEIC decodes HEIC bytes and returns JPEG bytes plus the decoded
// pixel dimensions.
func (p *Processor) ConvertHEIC(data []byte) ([]byte, int, int, error) {
	const op = "imageproc.ConvertHEIC"

	img, err := heic.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%s: decode: %v", op, err)
	}
	flat := p.flatten(img)
	out, err := encodeJPEG(flat, jpegQuality)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%s: %v", op, err)
	}
	return out, flat.Bounds().Dx(), flat.Bounds().Dy(), nil
}
