// Package photo validates uploaded profile pictures and turns them into
// bounded JPEG blobs ready to be stored in the users table.
package photo

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/JosKno/CapaIntermedia/util/common"
	"github.com/JosKno/CapaIntermedia/util/validator"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/webp"
)

const (
	MaxUploadSize = 5 << 20
	MaxWidth      = 800
	MaxHeight     = 800
	JPEGQuality   = 85

	// Decoding allocates the full bitmap, so source images are bounded
	// by side length and by pixel count.
	MaxDimension = 10000
	MaxPixels    = 40_000_000
)

var allowedTypes = []string{
	"image/jpeg",
	"image/jpg",
	"image/png",
	"image/gif",
	"image/webp",
}

// ErrProcessImage is returned by the processing functions for any
// validation, decode or encode failure. The cause is wrapped.
var ErrProcessImage = errors.New("unable to process image")

var dataURLPrefix = regexp.MustCompile(`^data:image/[\w.+-]+;base64,`)

// ImageInfo describes an image that passed validation.
type ImageInfo struct {
	MimeType string
	Width    int
	Height   int
}

func invalid(format string, a ...any) error {
	return &validator.Error{Messages: []string{fmt.Sprintf(format, a...)}}
}

// ValidateImage checks that u holds an allowed image no larger than
// MaxUploadSize, MaxDimension per side and MaxPixels in total. The MIME type
// is sniffed from the content.
func ValidateImage(u *Upload) (*ImageInfo, error) {
	if u == nil || (u.Err == nil && len(u.Data) == 0) {
		return nil, invalid("No file was uploaded")
	}
	if u.Err != nil {
		return nil, invalid("Error uploading file: %s", u.Err)
	}
	if u.Size > MaxUploadSize || len(u.Data) > MaxUploadSize {
		return nil, invalid("The file is too large. Maximum allowed: %s", common.FormatBytes(MaxUploadSize))
	}

	mimeType := mimetype.Detect(u.Data).String()
	if !mimetype.EqualsAny(mimeType, allowedTypes...) {
		return nil, invalid("File type not allowed. Only images are accepted (JPG, PNG, GIF, WEBP)")
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(u.Data))
	if err != nil || cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, invalid("The file is not a valid image")
	}
	if cfg.Width > MaxDimension || cfg.Height > MaxDimension || cfg.Width*cfg.Height > MaxPixels {
		return nil, invalid("The image dimensions are too large. Maximum allowed: %dx%d pixels and %d megapixels",
			MaxDimension, MaxDimension, MaxPixels/1_000_000)
	}

	return &ImageInfo{MimeType: mimeType, Width: cfg.Width, Height: cfg.Height}, nil
}

// ProcessImageForBlob validates u, shrinks it to fit maxWidth x maxHeight
// keeping its aspect ratio and re-encodes it as JPEG. Images are never
// upscaled.
func ProcessImageForBlob(u *Upload, maxWidth, maxHeight int) ([]byte, error) {
	info, err := ValidateImage(u)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProcessImage, err)
	}

	src, err := decode(info.MimeType, u.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProcessImage, err)
	}

	out := flatten(Fit(src, maxWidth, maxHeight))

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProcessImage, err)
	}
	return buf.Bytes(), nil
}

// ProcessBase64Image accepts a data URL or raw base64 payload and processes
// it like an uploaded file. The decoded bytes go through a temporary file
// that is removed on every path.
func ProcessBase64Image(encoded string, maxWidth, maxHeight int) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if strings.HasPrefix(encoded, "data:image") {
		encoded = dataURLPrefix.ReplaceAllString(encoded, "")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProcessImage, err)
	}

	tmp, err := os.CreateTemp("", "img")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProcessImage, err)
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.Write(data)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProcessImage, err)
	}

	return ProcessImageForBlob(FromFile(tmp.Name()), maxWidth, maxHeight)
}

// GetMimeTypeFromBlob sniffs the MIME type of stored image bytes.
func GetMimeTypeFromBlob(blob []byte) string {
	return mimetype.Detect(blob).String()
}

// ScaledSize returns the dimensions of a w x h image shrunk to fit inside
// maxWidth x maxHeight. Sizes that already fit are returned unchanged.
func ScaledSize(w, h, maxWidth, maxHeight int) (int, int) {
	ratio := min(float64(maxWidth)/float64(w), float64(maxHeight)/float64(h))
	if ratio >= 1 {
		return w, h
	}
	return max(1, int(float64(w)*ratio)), max(1, int(float64(h)*ratio))
}

// Fit resamples src to ScaledSize. Sources with transparency are resampled
// on an NRGBA canvas so their alpha survives.
func Fit(src image.Image, maxWidth, maxHeight int) image.Image {
	b := src.Bounds()
	w, h := ScaledSize(b.Dx(), b.Dy(), maxWidth, maxHeight)
	if w == b.Dx() && h == b.Dy() {
		return src
	}

	rect := image.Rect(0, 0, w, h)
	var dst draw.Image
	if hasAlpha(src) {
		dst = image.NewNRGBA(rect)
	} else {
		dst = image.NewRGBA(rect)
	}
	draw.CatmullRom.Scale(dst, rect, src, b, draw.Src, nil)
	return dst
}

func decode(mimeType string, data []byte) (image.Image, error) {
	r := bytes.NewReader(data)
	switch mimeType {
	case "image/jpeg", "image/jpg":
		return jpeg.Decode(r)
	case "image/png":
		return png.Decode(r)
	case "image/gif":
		return gif.Decode(r)
	case "image/webp":
		return webp.Decode(r)
	}
	return nil, fmt.Errorf("unsupported image type %s", mimeType)
}

func hasAlpha(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	return true
}

// flatten composes img over a white background; JPEG has no alpha channel.
func flatten(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}

var placeholder = sync.OnceValue(func() []byte {
	const size = 200
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{200, 200, 200, 255}), image.Point{}, draw.Src)

	const text = "No photo"
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{100, 100, 100, 255}),
		Face: face,
	}
	x := (size - d.MeasureString(text).Ceil()) / 2
	d.Dot = fixed.P(x, size/2+face.Ascent/2)
	d.DrawString(text)

	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
})

// Placeholder returns the PNG served for users without a profile photo.
func Placeholder() []byte {
	return placeholder()
}
