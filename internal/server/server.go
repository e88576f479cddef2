package server

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"fb360/internal/genclient"
	"fb360/internal/gpano"
	"fb360/internal/imageproc"
	"fb360/internal/models"
	"fb360/internal/storage"
)

// Generator produces image bytes from a prompt and an optional inline
// reference image.
type Generator interface {
	GeneratePanorama(ctx context.Context, prompt, imageB64, mimeType string) (*genclient.Result, error)
	Configured() bool
}

type Server struct {
	cfg      *models.Config
	router   *gin.Engine
	store    *storage.Storage
	proc     *imageproc.Processor
	gen      Generator
	injector gpano.Injector
	log      *zap.SugaredLogger
	httpSrv  *http.Server
}

func NewServer(cfg *models.Config, store *storage.Storage, proc *imageproc.Processor,
	gen Generator, injector gpano.Injector, log *zap.SugaredLogger) *Server {

	r := gin.Default()

	s := &Server{
		cfg:      cfg,
		router:   r,
		store:    store,
		proc:     proc,
		gen:      gen,
		injector: injector,
		log:      log,
	}

	viewer := filepath.Join(cfg.StaticDir, "viewer.html")
	r.StaticFile("/", viewer)
	r.StaticFile("/viewer.html", viewer)
	r.Static("/generated", cfg.GeneratedDir)
	// Serves both /gallery/<name> and /gallery/thumbs/<name>.
	r.Static("/gallery", store.GalleryDir())

	r.POST("/api/generate", s.handleGenerate)
	r.POST("/api/fix-ratio", s.handleFixRatio)
	r.GET("/api/gallery", s.handleGalleryList)
	r.POST("/api/gallery", s.handleGallerySave)
	r.DELETE("/api/gallery/:filename", s.handleGalleryDelete)
	r.POST("/api/convert-heic", s.handleConvertHEIC)
	r.GET("/api/status", s.handleStatus)

	return s
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine { return s.router }

func (s *Server) Start() error {
	s.httpSrv = &http.Server{Addr: s.cfg.ServerAddr, Handler: s.router}
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleGenerate(c *gin.Context) {
	var req models.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No JSON data provided"})
		return
	}
	if req.Image == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image provided"})
		return
	}
	if req.Prompt == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No prompt provided"})
		return
	}

	mimeType := req.MimeType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	mode := req.RatioMode
	if mode == "" {
		mode = imageproc.ModePad
	}
	fixRatio := true
	if req.FixRatio != nil {
		fixRatio = *req.FixRatio
	}

	res, err := s.gen.GeneratePanorama(c.Request.Context(), req.Prompt, stripDataURL(req.Image), mimeType)
	if err != nil {
		var noImg *genclient.NoImageError
		if errors.As(err, &noImg) {
			msg := noImg.Text
			if msg == "" {
				msg = "Model did not return an image"
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "No image generated", "message": msg})
			return
		}
		s.log.Errorw("generation failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	data := res.Image
	if fixRatio {
		if fixed, ferr := s.proc.Normalize(data, mode); ferr != nil {
			s.log.Warnw("could not fix aspect ratio", "error", ferr)
		} else {
			data = fixed
		}
	}

	filename := fmt.Sprintf("ai_generated_%s_360.jpg", shortID())
	message := res.Text
	if message == "" {
		message = "Image generated successfully"
	}
	s.finishSave(c, data, filename, message)
}

func (s *Server) handleFixRatio(c *gin.Context) {
	var req models.FixRatioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No JSON data provided"})
		return
	}
	if req.Image == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image provided"})
		return
	}

	mode := req.Mode
	if mode == "" {
		mode = imageproc.ModePad
	}
	name := req.Name
	if name == "" {
		name = "image"
	}
	saveToGallery := true
	if req.SaveToGallery != nil {
		saveToGallery = *req.SaveToGallery
	}

	raw, err := base64.StdEncoding.DecodeString(stripDataURL(req.Image))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid base64 image data"})
		return
	}
	processed, err := s.proc.Normalize(raw, mode)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if stem == "" {
		stem = "image"
	}
	filename := stem + "_360.jpg"

	if !saveToGallery {
		c.JSON(http.StatusOK, models.ProcessedImageResponse{
			Success:  true,
			Image:    base64.StdEncoding.EncodeToString(processed),
			Filename: filename,
		})
		return
	}
	s.finishSave(c, processed, filename, "")
}

// finishSave runs the shared tail of the processing pipeline: save to the
// gallery, inject GPano tags, create a thumbnail, and answer with the
// re-read final bytes. Injection and thumbnailing are best-effort.
func (s *Server) finishSave(c *gin.Context, data []byte, suggestedName, message string) {
	saved, err := s.store.Save(data, suggestedName)
	if err != nil {
		s.log.Errorw("could not save to gallery", "name", suggestedName, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	path, err := s.store.ImagePath(saved)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	injected := s.injector.Inject(c.Request.Context(), path)

	thumbPath, err := s.store.ThumbPath(saved)
	if err == nil {
		if terr := s.proc.CreateThumbnail(path, thumbPath); terr != nil {
			s.log.Warnw("could not create thumbnail", "name", saved, "error", terr)
		}
	}

	final, err := os.ReadFile(path)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.ProcessedImageResponse{
		Success:       true,
		Image:         base64.StdEncoding.EncodeToString(final),
		Filename:      saved,
		GalleryURL:    strPtr("/gallery/" + saved),
		ThumbURL:      strPtr("/gallery/thumbs/" + saved),
		GpanoInjected: injected,
		Message:       message,
	})
}

func (s *Server) handleGalleryList(c *gin.Context) {
	entries, err := s.store.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	images := make([]models.GalleryEntry, 0, len(entries))
	for _, e := range entries {
		images = append(images, models.GalleryEntry{
			Filename: e.Filename,
			Size:     e.Size,
			Created:  e.ModTime.Unix(),
			URL:      "/gallery/" + e.Filename,
			ThumbURL: "/gallery/thumbs/" + e.Filename,
		})
	}
	c.JSON(http.StatusOK, gin.H{"images": images})
}

func (s *Server) handleGallerySave(c *gin.Context) {
	var req models.GallerySaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No JSON data provided"})
		return
	}
	if req.Image == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image provided"})
		return
	}

	name := req.Name
	if name == "" {
		name = "image_" + shortID()
	}

	raw, err := base64.StdEncoding.DecodeString(stripDataURL(req.Image))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid base64 image data"})
		return
	}

	saved, err := s.store.Save(raw, name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"filename": saved,
		"url":      "/gallery/" + saved,
	})
}

func (s *Server) handleGalleryDelete(c *gin.Context) {
	name := c.Param("filename")
	if err := s.store.Delete(name); err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrBadName) {
			c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleConvertHEIC(c *gin.Context) {
	if !imageproc.HEICSupported() {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "HEIC support not available"})
		return
	}

	var req models.ConvertHEICRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No JSON data provided"})
		return
	}
	if req.Image == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image provided"})
		return
	}

	raw, err := base64.StdEncoding.DecodeString(stripDataURL(req.Image))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid base64 image data"})
		return
	}
	jpegData, w, h, err := s.proc.ConvertHEIC(raw)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"image":     base64.StdEncoding.EncodeToString(jpegData),
		"width":     w,
		"height":    h,
		"mime_type": "image/jpeg",
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	configured := s.gen.Configured()
	message := "Ready"
	if !configured {
		message = "OPENROUTER_API_KEY not set"
	}
	c.JSON(http.StatusOK, models.StatusResponse{
		APIConfigured:     configured,
		ExifToolAvailable: s.injector.Available(),
		HEICSupported:     imageproc.HEICSupported(),
		Message:           message,
	})
}

// stripDataURL drops a data-URL prefix ("data:image/png;base64,") when
// present, leaving bare base64.
func stripDataURL(b64 string) string {
	if i := strings.IndexByte(b64, ','); i >= 0 {
		return b64[i+1:]
	}
	return b64
}

func shortID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}

func strPtr(s string) *string { return &s }
