package services

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"math"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// Whitening tunes the background cleanup applied to garment photos before
// their colours are extracted.
type Whitening struct {
	// luminance where pixels start blending towards white
	Lower uint8
	// luminance from which pixels are pure white
	Upper uint8
	// share of width and height in the centre that is never touched
	ProtectedRatio float64
}

// DefaultWhitening leaves the middle half of the photo, where the garment
// usually is, untouched.
var DefaultWhitening = Whitening{Lower: 190, Upper: 235, ProtectedRatio: 0.5}

func (w Whitening) validate() error {
	if w.Lower >= w.Upper {
		return fmt.Errorf("lower threshold %d must be less than upper threshold %d", w.Lower, w.Upper)
	}
	if w.ProtectedRatio < 0.0 || w.ProtectedRatio > 1.0 {
		return fmt.Errorf("protected ratio must be between 0.0 and 1.0, got %v", w.ProtectedRatio)
	}
	return nil
}

func DecodeImage(imageBytes []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// WhitenBackground pushes light pixels outside the protected centre towards
// white, blending across the threshold range so no hard edge appears.
func WhitenBackground(img image.Image, w Whitening) (*image.RGBA, error) {
	if err := w.validate(); err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	out := image.NewRGBA(bounds)

	protectedWidth := int(float64(width) * w.ProtectedRatio)
	protectedHeight := int(float64(height) * w.ProtectedRatio)
	x0 := bounds.Min.X + (width-protectedWidth)/2
	y0 := bounds.Min.Y + (height-protectedHeight)/2
	x1 := x0 + protectedWidth
	y1 := y0 + protectedHeight

	transition := float64(w.Upper - w.Lower)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			original := img.At(x, y)
			if x >= x0 && x < x1 && y >= y0 && y < y1 {
				out.Set(x, y, original)
				continue
			}

			r, g, b, a := original.RGBA()
			r8, g8, b8, a8 := uint8(r>>8), uint8(g>>8), uint8(b>>8), uint8(a>>8)
			luminance := 0.299*float64(r8) + 0.587*float64(g8) + 0.114*float64(b8)

			switch {
			case luminance <= float64(w.Lower):
				out.Set(x, y, original)
			case luminance >= float64(w.Upper):
				out.Set(x, y, color.RGBA{R: 255, G: 255, B: 255, A: a8})
			default:
				blend := (luminance - float64(w.Lower)) / transition
				out.Set(x, y, color.RGBA{
					R: blendTowardsWhite(r8, blend),
					G: blendTowardsWhite(g8, blend),
					B: blendTowardsWhite(b8, blend),
					A: a8,
				})
			}
		}
	}
	return out, nil
}

func blendTowardsWhite(channel uint8, factor float64) uint8 {
	return uint8(math.Round(float64(channel)*(1.0-factor) + 255.0*factor))
}

// FeatherBackground replaces everything at or above the threshold luminance
// with white through a blurred mask, so shadows fade out instead of cutting
// off. Unlike WhitenBackground nothing is protected.
func FeatherBackground(img image.Image, threshold uint8, sigma float64) (*image.NRGBA, error) {
	if sigma <= 0 {
		return nil, fmt.Errorf("blur sigma must be positive, got %v", sigma)
	}
	bounds := img.Bounds()

	// white marks background
	mask := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			luminance := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
			if luminance >= float64(threshold) {
				mask.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	// imaging returns images anchored at the origin
	blurred := imaging.Blur(mask, sigma)

	out := image.NewNRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			background := float64(blurred.NRGBAAt(x-bounds.Min.X, y-bounds.Min.Y).R) / 255
			out.SetNRGBA(x, y, color.NRGBA{
				R: blendTowardsWhite(uint8(r>>8), background),
				G: blendTowardsWhite(uint8(g>>8), background),
				B: blendTowardsWhite(uint8(b>>8), background),
				A: uint8(a >> 8),
			})
		}
	}
	return out, nil
}

// WhitenBackgroundBytes is WhitenBackground over encoded bytes, returning a PNG.
func WhitenBackgroundBytes(imageBytes []byte, w Whitening) ([]byte, error) {
	img, _, err := DecodeImage(imageBytes)
	if err != nil {
		return nil, err
	}
	whitened, err := WhitenBackground(img, w)
	if err != nil {
		return nil, err
	}
	return encodePNG(whitened)
}

func FeatherBackgroundBytes(imageBytes []byte, threshold uint8, sigma float64) ([]byte, error) {
	img, _, err := DecodeImage(imageBytes)
	if err != nil {
		return nil, err
	}
	feathered, err := FeatherBackground(img, threshold, sigma)
	if err != nil {
		return nil, err
	}
	return encodePNG(feathered)
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image to png: %w", err)
	}
	return buf.Bytes(), nil
}
