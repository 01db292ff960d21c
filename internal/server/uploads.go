package server

import (
	"bytes"
	"crypto/sha1" // #nosec G505: content fingerprint for file names, not a security boundary
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"revayat/internal/observability"
	"revayat/internal/remote"

	"github.com/chai2010/webp"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
)

const (
	uploadPath = remote.PathUploadImage

	// PreviewMaxSize bounds both sides of the WebP preview.
	PreviewMaxSize = 480
	// WebPQuality is the lossy quality of the preview.
	WebPQuality = 70
	// MaxImagePixels caps the declared width*height of an upload before it
	// is decoded.
	MaxImagePixels = 40_000_000
)

var (
	dataURLPattern   = regexp.MustCompile(`(?i)^data:image/(png|jpe?g|gif);base64,`)
	referenceCleaner = regexp.MustCompile(`[^a-zA-Z0-9\-_]`)
)

// uploadRelay writes inline images to dir and answers with their public URL.
type uploadRelay struct {
	dir        string
	publicBase string
	maxBytes   int64
}

func newUploadRelay(dir, publicBase string, maxBytes int64) *uploadRelay {
	return &uploadRelay{
		dir:        dir,
		publicBase: strings.TrimRight(publicBase, "/"),
		maxBytes:   maxBytes,
	}
}

func (u *uploadRelay) handle(c *fiber.Ctx) error {
	var req remote.UploadRequest
	if len(bytes.TrimSpace(c.Body())) > 0 {
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return jsonError(c, fiber.StatusBadRequest, "Invalid JSON body.")
		}
	}
	if req.Data == "" {
		return jsonError(c, fiber.StatusBadRequest, "Image data is required.")
	}

	match := dataURLPattern.FindStringSubmatch(req.Data)
	if match == nil {
		return u.reject(c, "unsupported", "Only GIF/JPEG/PNG base64 data URLs are supported.")
	}
	ext := strings.ToLower(match[1])
	if ext == "jpeg" {
		ext = "jpg"
	}

	binary, err := base64.StdEncoding.DecodeString(req.Data[len(match[0]):])
	if err != nil {
		return u.reject(c, "invalid_base64", "Invalid base64 payload.")
	}
	if u.maxBytes > 0 && int64(len(binary)) > u.maxBytes {
		observability.ImageUploads.WithLabelValues("relay", "too_large").Inc()
		return jsonError(c, fiber.StatusRequestEntityTooLarge, "Image is too large.")
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(binary))
	if err != nil {
		return u.reject(c, "undecodable", "Image data could not be decoded.")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxImagePixels {
		observability.ImageUploads.WithLabelValues("relay", "too_large").Inc()
		return jsonError(c, fiber.StatusRequestEntityTooLarge, "Image dimensions are too large.")
	}
	decoded, _, err := image.Decode(bytes.NewReader(binary))
	if err != nil {
		return u.reject(c, "undecodable", "Image data could not be decoded.")
	}

	filename := UploadFilename(req.Reference, binary, ext)
	if err := writeBytesToFile(filepath.Join(u.dir, filename), binary); err != nil {
		observability.Logger.ErrorContext(c.UserContext(), "upload write failed",
			slog.String("file", filename),
			slog.String("error", err.Error()),
		)
		return jsonError(c, fiber.StatusInternalServerError, "Failed to store image.")
	}

	resp := remote.UploadResponse{URL: u.publicURL(c, filename)}

	preview := previewName(filename)
	if webpBytes, err := encodeWebP(resizeToFit(decoded, PreviewMaxSize, PreviewMaxSize), WebPQuality); err != nil {
		observability.Logger.WarnContext(c.UserContext(), "preview encode failed",
			slog.String("file", filename),
			slog.String("error", err.Error()),
		)
	} else if err := writeBytesToFile(filepath.Join(u.dir, preview), webpBytes); err != nil {
		observability.Logger.WarnContext(c.UserContext(), "preview write failed",
			slog.String("file", preview),
			slog.String("error", err.Error()),
		)
	} else {
		resp.Preview = u.publicURL(c, preview)
	}

	observability.ImageUploads.WithLabelValues("relay", "ok").Inc()
	return c.JSON(resp)
}

func (u *uploadRelay) reject(c *fiber.Ctx, outcome, message string) error {
	observability.ImageUploads.WithLabelValues("relay", outcome).Inc()
	return jsonError(c, fiber.StatusBadRequest, message)
}

func (u *uploadRelay) publicURL(c *fiber.Ctx, filename string) string {
	base := u.publicBase
	if base == "" {
		base = c.BaseURL()
	}
	return base + "/uploads/" + filename
}

// SanitizeReference keeps only [a-zA-Z0-9-_] from value and lowercases it.
// An empty result falls back to prefix plus a random suffix.
func SanitizeReference(value, prefix string) string {
	clean := referenceCleaner.ReplaceAllString(value, "")
	if clean == "" {
		clean = prefix + "-" + uuid.NewString()
	}
	return strings.ToLower(clean)
}

// UploadFilename is the stored name of an upload: the sanitized reference,
// the first 8 hex digits of the content's SHA-1 and the extension.
func UploadFilename(reference string, content []byte, ext string) string {
	sum := sha1.Sum(content) // #nosec G401
	return fmt.Sprintf("%s-%s.%s", SanitizeReference(reference, "photo"), hex.EncodeToString(sum[:])[:8], ext)
}

func previewName(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename)) + ".preview.webp"
}

func writeBytesToFile(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, content, 0o644) // #nosec G306: uploads are public
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := float64(maxWidth) / float64(w)
	if s := float64(maxHeight) / float64(h); s < scale {
		scale = s
	}
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
