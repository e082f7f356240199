package model

import "image/color"

// Role selects which facet of a row [ObjectList.Data] returns
type Role int

const (
	// DisplayRole yields the filename as a string
	DisplayRole Role = iota
	// ForegroundRole yields a Foreground
	ForegroundRole
	// ObjectIDRole yields the row's mtpview.ObjectID
	ObjectIDRole
	// SizeRole yields the object size in bytes as uint64
	SizeRole
	// FormatRole yields the mtpview.ObjectFormat
	FormatRole
)

// Foreground is the text style hint for a row
type Foreground int

const (
	PlainForeground Foreground = iota
	ContainerForeground
)

// Color returns the RGB color views should draw the row with
func (f Foreground) Color() color.RGBA {
	if f == ContainerForeground {
		return color.RGBA{R: 0, G: 0, B: 128, A: 0xff}
	}
	return color.RGBA{A: 0xff}
}

// Hex returns the color as "#rrggbb"
func (f Foreground) Hex() string {
	if f == ContainerForeground {
		return "#000080"
	}
	return "#000000"
}
