package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/describer/internal/auth"
	"github.com/example/describer/internal/imageprocessor"
	"github.com/example/describer/internal/session"
	"github.com/example/describer/internal/usecase"
)

// MaxUploadSize is the largest accepted image upload.
const MaxUploadSize = 20 << 20

// multipartOverhead leaves room for the form framing around the file.
const multipartOverhead = 1 << 20

var allowedMediaTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// Dependencies are the collaborators of the page handlers.
type Dependencies struct {
	Store     session.Store
	Describer session.Describer
	InFlight  *session.InFlight
	Stats     *usecase.Stats
	Hero      HeroImage
	Logger    *zap.Logger
}

type handler struct {
	store     session.Store
	describer session.Describer
	inFlight  *session.InFlight
	locks     *session.Locks
	stats     *usecase.Stats
	hero      HeroImage
	markdown  *markdownRenderer
	logger    *zap.Logger
}

// RegisterRoutes wires the page and its actions to the Gin router.
func RegisterRoutes(router *gin.Engine, deps Dependencies, sessionMiddleware gin.HandlerFunc) {
	if deps.InFlight == nil {
		deps.InFlight = session.NewInFlight()
	}
	if deps.Stats == nil {
		deps.Stats = usecase.NewStats()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	h := &handler{
		store:     deps.Store,
		describer: deps.Describer,
		inFlight:  deps.InFlight,
		locks:     session.NewLocks(),
		stats:     deps.Stats,
		hero:      deps.Hero,
		markdown:  newMarkdownRenderer(),
		logger:    deps.Logger.Named("handlers"),
	}

	router.SetHTMLTemplate(pageTemplate)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "describe": h.stats.Summary()})
	})

	page := router.Group("/", sessionMiddleware)
	page.GET("/", h.index)
	page.GET("/preview", h.preview)
	page.POST("/upload", h.upload)
	page.POST("/length", h.length)
	page.POST("/describe", h.describe)
	page.POST("/clear", h.clear)
	page.POST("/clear-text", h.clearText)
	page.POST("/copy", h.copy)
}

func (h *handler) index(c *gin.Context) {
	h.render(c, http.StatusOK, "")
}

func (h *handler) preview(c *gin.Context) {
	s, ok := h.load(c)
	if !ok {
		return
	}
	if s.Staged == nil {
		c.Status(http.StatusNotFound)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Header("X-Content-Type-Options", "nosniff")
	c.Data(http.StatusOK, s.Staged.MediaType, s.Staged.Data)
}

func (h *handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadSize+multipartOverhead)
	file, err := c.FormFile("image")
	if err != nil {
		if isTooLarge(err) {
			h.reject(c, http.StatusRequestEntityTooLarge, "The image is too large.")
			return
		}
		h.reject(c, http.StatusBadRequest, "Please choose an image file to upload.")
		return
	}
	if file.Size > MaxUploadSize {
		h.reject(c, http.StatusRequestEntityTooLarge, "The image is too large.")
		return
	}

	src, err := file.Open()
	if err != nil {
		h.reject(c, http.StatusBadRequest, "Unable to open the uploaded image.")
		return
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		h.logger.Error("failed to read upload", zap.Error(err))
		h.reject(c, http.StatusInternalServerError, "Failed to read the uploaded image.")
		return
	}

	mediaType, ok := uploadMediaType(file.Header.Get("Content-Type"), file.Filename, data)
	if !ok {
		h.reject(c, http.StatusUnsupportedMediaType, "Unsupported file type. Upload a PNG, JPEG, GIF or WEBP image.")
		return
	}

	img := imageprocessor.UploadedImage{
		Data:      data,
		MediaType: mediaType,
		Filename:  filepath.Base(file.Filename),
	}
	h.apply(c, func(s *session.Session) { s.Upload(img) })
}

func (h *handler) length(c *gin.Context) {
	words, err := strconv.Atoi(strings.TrimSpace(c.PostForm("words")))
	if err != nil {
		h.reject(c, http.StatusBadRequest, "Description length must be a whole number.")
		return
	}
	h.apply(c, func(s *session.Session) { s.AdjustLength(words) })
}

// describe holds the session lock only to capture the input and to record the
// result, so transitions made while the model runs are not overwritten.
func (h *handler) describe(c *gin.Context) {
	words, err := strconv.Atoi(strings.TrimSpace(c.PostForm("words")))
	hasWords := err == nil
	adjust := func(s *session.Session) {
		if hasWords {
			s.AdjustLength(words)
		}
	}

	id := auth.SessionID(c)
	if !h.inFlight.TryAcquire(id) {
		h.apply(c, func(s *session.Session) {
			adjust(s)
			s.Warn(session.MsgInFlight)
		})
		return
	}
	defer h.inFlight.Release(id)

	var (
		req   session.DescribeRequest
		ready bool
	)
	if !h.update(c, func(s *session.Session) {
		adjust(s)
		req, ready = s.BeginDescribe()
	}) {
		return
	}

	if ready {
		res := h.describer.Describe(c.Request.Context(), id, req.Image, req.WordLimit)
		if !h.update(c, func(s *session.Session) { s.Apply(res) }) {
			return
		}
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *handler) clear(c *gin.Context) {
	h.apply(c, (*session.Session).Clear)
}

func (h *handler) clearText(c *gin.Context) {
	h.apply(c, (*session.Session).ClearText)
}

func (h *handler) copy(c *gin.Context) {
	h.apply(c, func(s *session.Session) { s.Copy() })
}

// apply runs transition and redirects back to the page.
func (h *handler) apply(c *gin.Context, transition func(*session.Session)) {
	if h.update(c, transition) {
		c.Redirect(http.StatusSeeOther, "/")
	}
}

// update runs transition on the stored session under its lock and saves it.
func (h *handler) update(c *gin.Context, transition func(*session.Session)) bool {
	unlock := h.locks.Lock(auth.SessionID(c))
	defer unlock()

	s, ok := h.load(c)
	if !ok {
		return false
	}
	transition(s)
	return h.save(c, s)
}

func (h *handler) load(c *gin.Context) (*session.Session, bool) {
	id := auth.SessionID(c)
	s, err := h.store.Load(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("failed to load session", zap.String("session_id", id), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session unavailable"})
		return nil, false
	}
	return s, true
}

func (h *handler) save(c *gin.Context, s *session.Session) bool {
	if err := h.store.Save(c.Request.Context(), s); err != nil {
		h.logger.Error("failed to save session", zap.String("session_id", s.ID), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session unavailable"})
		return false
	}
	return true
}

// reject renders the page with a warning and a non-2xx status.
func (h *handler) reject(c *gin.Context, status int, message string) {
	h.render(c, status, message)
}

// render consumes the one-shot notice and clipboard payload and draws the
// page. The session is written back only when it held one of them.
func (h *handler) render(c *gin.Context, status int, warning string) {
	s, notice, clipboard, hasClipboard, ok := h.takeOneShots(c, warning)
	if !ok {
		return
	}

	view, err := h.newPageView(s, notice, clipboard, hasClipboard)
	if err != nil {
		h.logger.Error("failed to build page", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "unable to render page"})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.HTML(status, pageTemplateName, view)
}

func (h *handler) takeOneShots(c *gin.Context, warning string) (s *session.Session, notice *session.Notice, clipboard string, hasClipboard, ok bool) {
	unlock := h.locks.Lock(auth.SessionID(c))
	defer unlock()

	s, ok = h.load(c)
	if !ok {
		return nil, nil, "", false, false
	}
	pending := s.Notice != nil || s.Clipboard != nil
	if warning != "" {
		s.Warn(warning)
	}
	notice = s.TakeNotice()
	clipboard, hasClipboard = s.TakeClipboard()
	if pending && !h.save(c, s) {
		return nil, nil, "", false, false
	}
	return s, notice, clipboard, hasClipboard, true
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}

// uploadMediaType accepts the declared content type when it is a supported
// image type. Generic declarations fall back to sniffing the bytes.
func uploadMediaType(declared, filename string, data []byte) (string, bool) {
	mediaType, _, err := mime.ParseMediaType(declared)
	if err != nil {
		mediaType = ""
	}
	if mediaType == "image/jpg" {
		mediaType = "image/jpeg"
	}
	if allowedMediaTypes[mediaType] {
		return mediaType, true
	}
	if mediaType != "" && mediaType != "application/octet-stream" {
		return "", false
	}
	if !allowedExtensions[strings.ToLower(filepath.Ext(filename))] {
		return "", false
	}
	detected := mimetype.Detect(data).String()
	if allowedMediaTypes[detected] {
		return detected, true
	}
	return "", false
}
