package domain

import (
	"fmt"

	"github.com/allisson/piimask/internal/errors"
)

// LocationKind discriminates the Location union.
type LocationKind string

const (
	LocationText  LocationKind = "text"
	LocationImage LocationKind = "image"
)

// TextRange is a half-open [Start, End) range of Unicode code points.
type TextRange struct {
	Start int
	End   int
}

// Len returns the number of code points covered by the range.
func (r TextRange) Len() int {
	return r.End - r.Start
}

// Overlaps reports whether the two half-open ranges share at least one code point.
func (r TextRange) Overlaps(other TextRange) bool {
	return r.Start < other.End && other.Start < r.End
}

// BoundingBox is an axis-aligned pixel rectangle anchored at its top-left corner.
type BoundingBox struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Area returns the box area in pixels.
func (b BoundingBox) Area() int {
	return b.Width * b.Height
}

// Intersect returns the overlapping box, or a zero-sized box when they are disjoint.
func (b BoundingBox) Intersect(other BoundingBox) BoundingBox {
	x0, y0 := max(b.X, other.X), max(b.Y, other.Y)
	x1 := min(b.X+b.Width, other.X+other.Width)
	y1 := min(b.Y+b.Height, other.Y+other.Height)
	if x1 <= x0 || y1 <= y0 {
		return BoundingBox{}
	}
	return BoundingBox{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Union returns the smallest box containing both boxes.
func (b BoundingBox) Union(other BoundingBox) BoundingBox {
	x0, y0 := min(b.X, other.X), min(b.Y, other.Y)
	x1 := max(b.X+b.Width, other.X+other.Width)
	y1 := max(b.Y+b.Height, other.Y+other.Height)
	return BoundingBox{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// IoU returns the intersection-over-union ratio of the two boxes.
func (b BoundingBox) IoU(other BoundingBox) float64 {
	inter := b.Intersect(other).Area()
	if inter == 0 {
		return 0
	}
	union := b.Area() + other.Area() - inter
	return float64(inter) / float64(union)
}

// ImageRegion locates a box on a page of an image document. Single images use page 0.
type ImageRegion struct {
	Page int
	Box  BoundingBox
}

// Location is a tagged union: exactly one of Text or Image is set, matching Kind.
type Location struct {
	Kind  LocationKind
	Text  *TextRange
	Image *ImageRegion
}

// TextLocation builds a text location for [start, end).
func TextLocation(start, end int) Location {
	return Location{Kind: LocationText, Text: &TextRange{Start: start, End: end}}
}

// ImageLocation builds an image location.
func ImageLocation(page int, box BoundingBox) Location {
	return Location{Kind: LocationImage, Image: &ImageRegion{Page: page, Box: box}}
}

// Validate checks the union is well formed and the coordinates are possible.
// Text ranges are half-open and must be non-empty, so Start == End is rejected.
// Image boxes need positive width and height.
func (l Location) Validate() error {
	switch l.Kind {
	case LocationText:
		if l.Text == nil || l.Image != nil {
			return errors.Wrap(ErrInvalidSpan, "text location must carry only a text range")
		}
		if l.Text.Start < 0 {
			return errors.Wrapf(ErrInvalidSpan, "start %d is negative", l.Text.Start)
		}
		if l.Text.Start >= l.Text.End {
			return errors.Wrapf(ErrInvalidSpan, "start %d must be before end %d", l.Text.Start, l.Text.End)
		}
		return nil
	case LocationImage:
		if l.Image == nil || l.Text != nil {
			return errors.Wrap(ErrInvalidSpan, "image location must carry only an image region")
		}
		if l.Image.Page < 0 {
			return errors.Wrapf(ErrInvalidSpan, "page %d is negative", l.Image.Page)
		}
		b := l.Image.Box
		if b.Width <= 0 || b.Height <= 0 {
			return errors.Wrapf(ErrInvalidSpan, "box %dx%d must have positive dimensions", b.Width, b.Height)
		}
		if b.X < 0 || b.Y < 0 {
			return errors.Wrapf(ErrInvalidSpan, "box origin (%d,%d) is negative", b.X, b.Y)
		}
		return nil
	default:
		return errors.Wrapf(ErrUnknownLocationKind, "%q", l.Kind)
	}
}

// Clone returns a deep copy so merged spans never alias detector input.
func (l Location) Clone() Location {
	out := Location{Kind: l.Kind}
	if l.Text != nil {
		t := *l.Text
		out.Text = &t
	}
	if l.Image != nil {
		r := *l.Image
		out.Image = &r
	}
	return out
}

func (l Location) String() string {
	switch l.Kind {
	case LocationText:
		if l.Text != nil {
			return fmt.Sprintf("text[%d,%d)", l.Text.Start, l.Text.End)
		}
	case LocationImage:
		if l.Image != nil {
			b := l.Image.Box
			return fmt.Sprintf("image[page=%d x=%d y=%d w=%d h=%d]", l.Image.Page, b.X, b.Y, b.Width, b.Height)
		}
	}
	return fmt.Sprintf("%s[?]", l.Kind)
}

// before orders locations by start: text by offset, images by page then top-left corner.
// Text sorts ahead of image so mixed input is deterministic.
func (l Location) before(other Location) bool {
	if l.Kind != other.Kind {
		return l.Kind == LocationText
	}
	switch l.Kind {
	case LocationText:
		if l.Text.Start != other.Text.Start {
			return l.Text.Start < other.Text.Start
		}
		return l.Text.End > other.Text.End
	case LocationImage:
		a, b := l.Image, other.Image
		if a.Page != b.Page {
			return a.Page < b.Page
		}
		if a.Box.Y != b.Box.Y {
			return a.Box.Y < b.Box.Y
		}
		return a.Box.X < b.Box.X
	}
	return false
}
