package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dutchcoders/go-clamd"
	"github.com/gin-gonic/gin"

	"launchpadResume/internal/resume"
	"launchpadResume/internal/storage"
)

const (
	maxPhotoBytes   = 5 << 20
	photoURLTTL     = 15 * time.Minute
	photoFormField  = "photo"
	sniffPrefixSize = 512
)

// 允许的图片类型以内容嗅探为准，不信任客户端声明的 Content-Type。
var photoExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

var errInfected = errors.New("malicious file detected")

// VirusScanner 扫描上传内容；发现病毒时返回 errInfected。
type VirusScanner interface {
	Scan(r io.Reader) error
}

// ClamdScanner 通过 clamd 的 INSTREAM 接口扫描。
type ClamdScanner struct {
	Addr string
}

func (s ClamdScanner) Scan(r io.Reader) error {
	abort := make(chan bool)
	defer close(abort)

	results, err := clamd.NewClamd(s.Addr).ScanStream(r, abort)
	if err != nil {
		return fmt.Errorf("scan stream: %w", err)
	}
	for result := range results {
		switch result.Status {
		case clamd.RES_OK:
		case clamd.RES_FOUND:
			return fmt.Errorf("%w: %s", errInfected, result.Description)
		default:
			return fmt.Errorf("scan result %s: %s", result.Status, result.Description)
		}
	}
	return nil
}

// PhotoHandler 负责简历头像的上传与访问。
type PhotoHandler struct {
	store   *resume.Store
	objects storage.ObjectStore
	scanner VirusScanner
	now     func() time.Time
}

// NewPhotoHandler 返回 PhotoHandler 实例。scanner may be nil to skip scanning.
func NewPhotoHandler(store *resume.Store, objects storage.ObjectStore, scanner VirusScanner) *PhotoHandler {
	return &PhotoHandler{store: store, objects: objects, scanner: scanner, now: time.Now}
}

// UploadPhoto 处理头像上传，并在上传前扫描病毒。
func (h *PhotoHandler) UploadPhoto(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if h.objects == nil {
		Error(c, http.StatusServiceUnavailable, "storage unavailable")
		return
	}

	ctx := c.Request.Context()
	logger := loggerFromContext(c).With(slog.Uint64("resume_id", uint64(id)))

	existing, err := h.store.Get(ctx, id, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	file, err := c.FormFile(photoFormField)
	if err != nil {
		BadRequest(c, "missing photo")
		return
	}
	if file.Size <= 0 || file.Size > maxPhotoBytes {
		Error(c, http.StatusRequestEntityTooLarge, fmt.Sprintf("photo must be between 1 byte and %d MB", maxPhotoBytes>>20))
		return
	}

	reader, err := file.Open()
	if err != nil {
		Internal(c, "failed to open file")
		return
	}
	content, err := io.ReadAll(io.LimitReader(reader, maxPhotoBytes+1))
	reader.Close()
	if err != nil {
		Internal(c, "failed to read file")
		return
	}
	if len(content) > maxPhotoBytes {
		Error(c, http.StatusRequestEntityTooLarge, "photo too large")
		return
	}

	contentType := http.DetectContentType(content[:min(len(content), sniffPrefixSize)])
	ext, allowed := photoExtensions[contentType]
	if !allowed {
		Error(c, http.StatusUnsupportedMediaType, "photo must be a JPEG, PNG or WebP image")
		return
	}

	if h.scanner != nil {
		if err := h.scanner.Scan(bytes.NewReader(content)); err != nil {
			if errors.Is(err, errInfected) {
				logger.Warn("infected photo rejected", slog.Any("error", err))
				BadRequest(c, errInfected.Error())
				return
			}
			logger.Error("scan photo failed", slog.Any("error", err))
			Internal(c, "failed to scan file")
			return
		}
	}

	key := storage.PhotoKey(userID, id, h.now().UnixNano(), ext)
	if err := h.objects.Put(ctx, key, bytes.NewReader(content), int64(len(content)), contentType); err != nil {
		logger.Error("upload photo failed", slog.Any("error", err))
		Internal(c, "failed to upload file")
		return
	}
	if err := h.store.SetPhoto(ctx, id, userID, key); err != nil {
		_ = h.objects.Delete(ctx, key)
		respondError(c, err)
		return
	}

	if old := strings.TrimSpace(existing.ProfilePhoto); old != "" && old != key && storage.IsPhotoKey(userID, id, old) {
		if err := h.objects.Delete(ctx, old); err != nil {
			logger.Warn("delete previous photo failed", slog.String("object_key", old), slog.Any("error", err))
		}
	}

	url, err := h.objects.PresignGet(ctx, key, photoURLTTL)
	if err != nil {
		logger.Error("presign photo failed", slog.Any("error", err))
		url = ""
	}
	c.JSON(http.StatusCreated, gin.H{"objectKey": key, "url": url})
}

// GetPhotoURL 返回头像的临时预签名 URL。
func (h *PhotoHandler) GetPhotoURL(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if h.objects == nil {
		Error(c, http.StatusServiceUnavailable, "storage unavailable")
		return
	}

	ctx := c.Request.Context()
	r, err := h.store.Get(ctx, id, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if !storage.IsPhotoKey(userID, id, r.ProfilePhoto) {
		NotFound(c, "photo not found")
		return
	}

	url, err := h.objects.PresignGet(ctx, r.ProfilePhoto, photoURLTTL)
	if err != nil {
		loggerFromContext(c).Error("presign photo failed", slog.Any("error", err))
		Internal(c, "failed to generate url")
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url, "expiresIn": int(photoURLTTL.Seconds())})
}
