// Package gpano stamps XMP-GPano panorama metadata onto image files so that
// 360° viewers recognize them as equirectangular panoramas.
package gpano

import (
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"

	"go.uber.org/zap"

	_ "image/jpeg"
	_ "image/png"
)

// Injector tags a file's panorama metadata. Injection is best-effort: the
// boolean result reports success and callers continue either way.
type Injector interface {
	Inject(ctx context.Context, path string) bool
	Available() bool
}

// ExifTool injects GPano tags by shelling out to exiftool, overwriting the
// file in place.
type ExifTool struct {
	log *zap.SugaredLogger
}

func NewExifTool(log *zap.SugaredLogger) *ExifTool {
	return &ExifTool{log: log}
}

// Available reports whether the exiftool binary can be found on PATH.
func (e *ExifTool) Available() bool {
	_, err := exec.LookPath("exiftool")
	return err == nil
}

// Inject reads the image's pixel dimensions and writes the fixed GPano tag
// set. Returns false when the image cannot be read or exiftool is missing or
// exits non-zero; the file stays valid either way.
func (e *ExifTool) Inject(ctx context.Context, path string) bool {
	w, h, err := imageDimensions(path)
	if err != nil {
		e.log.Warnw("could not read image dimensions", "path", path, "error", err)
		return false
	}

	cmd := exec.CommandContext(ctx, "exiftool", tagArgs(w, h, path)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		e.log.Warnw("exiftool failed", "path", path, "error", err, "output", string(out))
		return false
	}
	return true
}

func imageDimensions(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

func tagArgs(width, height int, path string) []string {
	return []string{
		"-overwrite_original",
		"-XMP-GPano:ProjectionType=equirectangular",
		"-XMP-GPano:UsePanoramaViewer=True",
		fmt.Sprintf("-XMP-GPano:FullPanoWidthPixels=%d", width),
		fmt.Sprintf("-XMP-GPano:FullPanoHeightPixels=%d", height),
		fmt.Sprintf("-XMP-GPano:CroppedAreaImageWidthPixels=%d", width),
		fmt.Sprintf("-XMP-GPano:CroppedAreaImageHeightPixels=%d", height),
		"-XMP-GPano:CroppedAreaLeftPixels=0",
		"-XMP-GPano:CroppedAreaTopPixels=0",
		"-XMP-GPano:InitialViewHeadingDegrees=180",
		"-XMP-GPano:InitialViewPitchDegrees=0",
		"-XMP-GPano:InitialViewRollDegrees=0",
		"-XMP-GPano:InitialHorizontalFOVDegrees=90",
		path,
	}
}
