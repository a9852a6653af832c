package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"

	xdraw "golang.org/x/image/draw"

	cryptoDomain "github.com/allisson/piimask/internal/crypto/domain"
	maskingDomain "github.com/allisson/piimask/internal/masking/domain"
	spanDomain "github.com/allisson/piimask/internal/span/domain"
)

var opaqueBlack = color.RGBA{A: 0xff}

// DefaultMaxImagePixels caps width*height of decoded images. At 4 bytes per RGBA pixel
// a 40 megapixel image needs about 160 MiB per working copy.
const DefaultMaxImagePixels int64 = 40_000_000

// ImageStrategy masks single-page PNG and JPEG images by painting opaque black boxes.
// Artifacts are always PNG so masked regions survive without compression noise.
//
// The span's detected text is sealed as the entry value. When regions are preserved,
// the original pixels of each box are PNG-encoded and sealed too, which is what lets
// restoration reproduce the image.
//
// Image headers are read before decoding; anything larger than maxPixels is refused
// with ErrDocumentTooLarge, since a small compressed file can expand to gigabytes.
type ImageStrategy struct {
	maxPixels int64
}

// NewImageStrategy creates an ImageStrategy. maxPixels <= 0 selects DefaultMaxImagePixels.
func NewImageStrategy(maxPixels int64) *ImageStrategy {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxImagePixels
	}
	return &ImageStrategy{maxPixels: maxPixels}
}

// Formats implements Strategy.
func (s *ImageStrategy) Formats() []maskingDomain.Format {
	return []maskingDomain.Format{maskingDomain.FormatPNG, maskingDomain.FormatJPEG}
}

// Mask implements Strategy. All regions are captured from the unmodified image before
// any box is painted, so overlapping boxes each keep their own original pixels.
func (s *ImageStrategy) Mask(ctx context.Context, in MaskInput) (*MaskOutput, error) {
	src, err := decodeRGBA(in.Content, s.maxPixels)
	if errors.Is(err, maskingDomain.ErrDocumentTooLarge) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", maskingDomain.ErrUnsupportedFormat, err)
	}

	for _, sp := range in.Spans {
		if err := checkRegion(sp.Location, src.Bounds()); err != nil {
			return nil, maskingDomain.NewSpanError(sp.ID, sp.Location, err)
		}
	}

	out := &MaskOutput{}
	for _, sp := range in.Spans {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		box := sp.Location.Image.Box

		value, err := in.Sealer.Seal(purposeValue, []byte(sp.Text), sealAAD(in.TaskID, sp.ID, purposeValue))
		if err != nil {
			return nil, maskingDomain.NewSpanError(sp.ID, sp.Location, err)
		}

		var region []byte
		if in.PreserveRegions {
			roi, err := encodePNG(src.SubImage(rect(box)))
			if err != nil {
				return nil, maskingDomain.NewSpanError(sp.ID, sp.Location, err)
			}
			if region, err = in.Sealer.Seal(purposeRegion, roi, sealAAD(in.TaskID, sp.ID, purposeRegion)); err != nil {
				return nil, maskingDomain.NewSpanError(sp.ID, sp.Location, err)
			}
		}

		out.Placeholders = append(out.Placeholders, maskingDomain.Placeholder{
			SpanID:   sp.ID,
			Label:    sp.Label,
			Location: sp.Location.Clone(),
		})
		out.Entries = append(out.Entries, maskingDomain.RecordEntry{
			SpanID:          sp.ID,
			Label:           sp.Label,
			Confidence:      sp.Confidence,
			Layers:          append([]spanDomain.SourceLayer(nil), sp.Layers...),
			Location:        sp.Location.Clone(),
			SourceLocation:  sp.Location.Clone(),
			EncryptedValue:  value,
			EncryptedRegion: region,
		})
	}

	masked := image.NewRGBA(src.Bounds())
	xdraw.Draw(masked, masked.Bounds(), src, src.Bounds().Min, xdraw.Src)
	for _, sp := range in.Spans {
		xdraw.Draw(masked, rect(sp.Location.Image.Box), image.NewUniform(opaqueBlack), image.Point{}, xdraw.Src)
	}

	if out.Content, err = encodePNG(masked); err != nil {
		return nil, err
	}
	return out, nil
}

// Restore implements Strategy. Every box must still be solid black. Regions without
// preserved pixels stay masked and their decrypted text is reported as revealed.
func (s *ImageStrategy) Restore(ctx context.Context, in RestoreInput) (*RestoreOutput, error) {
	img, err := decodeRGBA(in.Content, s.maxPixels)
	if errors.Is(err, maskingDomain.ErrDocumentTooLarge) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: artifact is not a decodable image: %v", maskingDomain.ErrPlaceholderMismatch, err)
	}

	for _, e := range in.Entries {
		if err := checkRegion(e.Location, img.Bounds()); err != nil {
			return nil, maskingDomain.NewSpanError(e.SpanID, e.Location, maskingDomain.ErrPlaceholderMismatch)
		}
		if !isSolid(img, rect(e.Location.Image.Box), opaqueBlack) {
			return nil, maskingDomain.NewSpanError(e.SpanID, e.Location, maskingDomain.ErrPlaceholderMismatch)
		}
	}

	values := make([][]byte, len(in.Entries))
	regions := make([]image.Image, len(in.Entries))
	for i, e := range in.Entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		values[i], err = in.Sealer.Open(purposeValue, e.EncryptedValue, sealAAD(in.TaskID, e.SpanID, purposeValue))
		if err != nil {
			return nil, maskingDomain.NewSpanError(e.SpanID, e.Location, cryptoDomain.ErrDecryptionFailed)
		}
		if len(e.EncryptedRegion) == 0 {
			continue
		}
		roi, err := in.Sealer.Open(purposeRegion, e.EncryptedRegion, sealAAD(in.TaskID, e.SpanID, purposeRegion))
		if err != nil {
			return nil, maskingDomain.NewSpanError(e.SpanID, e.Location, cryptoDomain.ErrDecryptionFailed)
		}
		if regions[i], err = png.Decode(bytes.NewReader(roi)); err != nil {
			return nil, maskingDomain.NewSpanError(e.SpanID, e.Location,
				fmt.Errorf("%w: preserved region is not a PNG", maskingDomain.ErrInvalidRecord))
		}
	}

	out := &RestoreOutput{}
	for i, e := range in.Entries {
		if regions[i] == nil {
			out.Revealed = append(out.Revealed, RevealedValue{SpanID: e.SpanID, Label: e.Label, Value: string(values[i])})
			continue
		}
		dst := rect(e.Location.Image.Box)
		roi := regions[i]
		if roi.Bounds().Dx() == dst.Dx() && roi.Bounds().Dy() == dst.Dy() {
			xdraw.Draw(img, dst, roi, roi.Bounds().Min, xdraw.Src)
			continue
		}
		xdraw.CatmullRom.Scale(img, dst, roi, roi.Bounds(), xdraw.Src, nil)
	}

	if out.Content, err = encodePNG(img); err != nil {
		return nil, err
	}
	return out, nil
}

func rect(b spanDomain.BoundingBox) image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

// checkRegion accepts image locations on page 0 that fit inside bounds.
func checkRegion(loc spanDomain.Location, bounds image.Rectangle) error {
	if loc.Kind != spanDomain.LocationImage || loc.Image == nil {
		return maskingDomain.ErrUnsupportedFormat
	}
	if loc.Image.Page != 0 {
		return fmt.Errorf("%w: page %d of a single-page image", maskingDomain.ErrSpanOutOfBounds, loc.Image.Page)
	}
	r := rect(loc.Image.Box).Add(bounds.Min)
	if !r.In(bounds) {
		return fmt.Errorf("%w: image is %dx%d", maskingDomain.ErrSpanOutOfBounds, bounds.Dx(), bounds.Dy())
	}
	return nil
}

func isSolid(img *image.RGBA, r image.Rectangle, c color.RGBA) bool {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if img.RGBAAt(x, y) != c {
				return false
			}
		}
	}
	return true
}

// decodeRGBA decodes PNG or JPEG into an RGBA image anchored at the origin. The
// header is checked against maxPixels before any pixel data is allocated.
func decodeRGBA(content []byte, maxPixels int64) (*image.RGBA, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > maxPixels {
		return nil, fmt.Errorf("%w: image is %dx%d, limit is %d pixels",
			maskingDomain.ErrDocumentTooLarge, cfg.Width, cfg.Height, maxPixels)
	}

	src, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(dst, dst.Bounds(), src, b.Min, xdraw.Src)
	return dst, nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}
