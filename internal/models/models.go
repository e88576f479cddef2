package models

// GenerateRequest is the body of POST /api/generate. Width and Height are
// accepted for forward compatibility but not used by the generation path.
type GenerateRequest struct {
	Image     string `json:"image"`
	MimeType  string `json:"mime_type"`
	Prompt    string `json:"prompt"`
	FixRatio  *bool  `json:"fix_ratio"`
	RatioMode string `json:"ratio_mode"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// FixRatioRequest is the body of POST /api/fix-ratio.
type FixRatioRequest struct {
	Image         string `json:"image"`
	Mode          string `json:"mode"`
	Name          string `json:"name"`
	SaveToGallery *bool  `json:"save_to_gallery"`
}

// GallerySaveRequest is the body of POST /api/gallery.
type GallerySaveRequest struct {
	Image string `json:"image"`
	Name  string `json:"name"`
}

// ConvertHEICRequest is the body of POST /api/convert-heic.
type ConvertHEICRequest struct {
	Image string `json:"image"`
}

// ProcessedImageResponse is returned by /api/generate and /api/fix-ratio.
// GalleryURL and ThumbURL are null when the image was not saved.
type ProcessedImageResponse struct {
	Success       bool    `json:"success"`
	Image         string  `json:"image"`
	Filename      string  `json:"filename"`
	GalleryURL    *string `json:"gallery_url"`
	ThumbURL      *string `json:"thumb_url"`
	GpanoInjected bool    `json:"gpano_injected"`
	Message       string  `json:"message,omitempty"`
}

// GalleryEntry is one image in the GET /api/gallery listing.
type GalleryEntry struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Created  int64  `json:"created"`
	URL      string `json:"url"`
	ThumbURL string `json:"thumb_url"`
}

// StatusResponse is returned by GET /api/status.
type StatusResponse struct {
	APIConfigured     bool   `json:"api_configured"`
	ExifToolAvailable bool   `json:"exiftool_available"`
	HEICSupported     bool   `json:"heic_supported"`
	Message           string `json:"message"`
}
