// Package imageprocessor turns uploaded images into the single encoding the
// model client is allowed to send.
package imageprocessor

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	_ "golang.org/x/image/webp"
)

// MediaType is the content type of every NormalizedImage.
const MediaType = "image/png"

// pngColorTypeGrayAlpha is the IHDR colour type of luminance+alpha PNGs.
const pngColorTypeGrayAlpha = 4

// MaxPixels bounds width*height of an accepted image, which keeps a small
// compressed file from expanding into gigabytes of pixels.
const MaxPixels = 89_478_485

var (
	// ErrEmptyImage is returned for a zero length upload.
	ErrEmptyImage = errors.New("image is empty")
	// ErrTooManyPixels is returned when the declared dimensions exceed MaxPixels.
	ErrTooManyPixels = errors.New("image has too many pixels")
)

// UploadedImage is the raw upload as received from the browser.
type UploadedImage struct {
	Data      []byte `json:"data"`
	MediaType string `json:"media_type"`
	Filename  string `json:"filename"`
}

// NormalizedImage is PNG encoded image data. It can only be produced by
// Normalize, so its MediaType always matches its bytes.
type NormalizedImage struct {
	data   []byte
	width  int
	height int
}

// Bytes returns the PNG encoded image.
func (n NormalizedImage) Bytes() []byte { return n.data }

// Base64 returns the PNG encoded image in standard base64.
func (n NormalizedImage) Base64() string { return base64.StdEncoding.EncodeToString(n.data) }

// MediaType returns the content type of Bytes.
func (n NormalizedImage) MediaType() string { return MediaType }

func (n NormalizedImage) Width() int  { return n.width }
func (n NormalizedImage) Height() int { return n.height }

// DecodeError reports an upload that is not a decodable image.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode image: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Normalize decodes raw (PNG, JPEG, GIF or WEBP) and re-encodes it as PNG.
// Palette and luminance+alpha sources keep their alpha channel; everything
// else is flattened to three channel colour by dropping alpha.
func Normalize(raw []byte) (NormalizedImage, error) {
	if len(raw) == 0 {
		return NormalizedImage{}, &DecodeError{Err: ErrEmptyImage}
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return NormalizedImage{}, &DecodeError{Err: err}
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return NormalizedImage{}, &DecodeError{
			Err: fmt.Errorf("%w: %dx%d exceeds %d", ErrTooManyPixels, cfg.Width, cfg.Height, MaxPixels),
		}
	}

	src, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return NormalizedImage{}, &DecodeError{Err: err}
	}

	keepAlpha := isPaletted(src) || (format == "png" && isPNGGrayAlpha(raw))
	dst := toNRGBA(src, keepAlpha)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return NormalizedImage{}, fmt.Errorf("encode png: %w", err)
	}

	bounds := dst.Bounds()
	return NormalizedImage{
		data:   buf.Bytes(),
		width:  bounds.Dx(),
		height: bounds.Dy(),
	}, nil
}

func isPaletted(img image.Image) bool {
	_, ok := img.(*image.Paletted)
	return ok
}

// isPNGGrayAlpha reads the colour type straight from the IHDR chunk, which
// the standard decoder folds into NRGBA.
func isPNGGrayAlpha(raw []byte) bool {
	const colorTypeOffset = 8 + 4 + 4 + 4 + 4 + 1 // signature, length, "IHDR", width, height, bit depth
	if len(raw) <= colorTypeOffset || string(raw[12:16]) != "IHDR" {
		return false
	}
	return raw[colorTypeOffset] == pngColorTypeGrayAlpha
}

// toNRGBA copies src into a zero-origin NRGBA image. Without keepAlpha every
// pixel is made opaque using its straight (non premultiplied) colour, so the
// PNG encoder emits plain RGB.
func toNRGBA(src image.Image, keepAlpha bool) *image.NRGBA {
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			if !keepAlpha {
				c.A = 0xff
			}
			dst.SetNRGBA(x-b.Min.X, y-b.Min.Y, c)
		}
	}
	return dst
}
