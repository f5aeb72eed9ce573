// Package cutplan lays furniture parts out on stock sheets for the CNC
// router. Parts are padded by the blade kerf, sorted by length and packed
// left to right in rows (shelf packing).
package cutplan

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

const (
	DefaultSheetWidth  = 1210.0
	DefaultSheetLength = 2430.0
	DefaultKerf        = 12.7

	// MaxPieces caps the expanded quantities of one cut list
	MaxPieces = 10000
)

var (
	ErrPieceTooLarge = errors.New("piece does not fit on a sheet")
	ErrInvalidPart   = errors.New("invalid part")
)

// Part is one line of a cut list; dimensions are in millimetres
type Part struct {
	ID          int     `json:"id"`
	Width       float64 `json:"width"`
	Length      float64 `json:"length"`
	Quantity    int     `json:"quantity"`
	Description string  `json:"description"`
}

// Placement is one piece on a sheet. X and Y locate its corner; the padded
// size includes the kerf.
type Placement struct {
	PartID       int     `json:"partId"`
	Description  string  `json:"description"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Width        float64 `json:"width"`
	Length       float64 `json:"length"`
	PaddedWidth  float64 `json:"paddedWidth"`
	PaddedLength float64 `json:"paddedLength"`
}

type Sheet struct {
	Number      int         `json:"number"`
	Placements  []Placement `json:"placements"`
	UsedArea    float64     `json:"usedArea"`
	Utilization float64     `json:"utilization"`
}

type Plan struct {
	SheetWidth  float64 `json:"sheetWidth"`
	SheetLength float64 `json:"sheetLength"`
	Kerf        float64 `json:"kerf"`
	Pieces      int     `json:"pieces"`
	Sheets      []Sheet `json:"sheets"`
	Utilization float64 `json:"utilization"`
}

// Planner holds the sheet size and kerf
type Planner struct {
	SheetWidth  float64
	SheetLength float64
	Kerf        float64
}

// NewPlanner returns a planner; non-positive or non-finite sizes fall back
// to the defaults and a negative or non-finite kerf to zero
func NewPlanner(sheetWidth, sheetLength, kerf float64) Planner {
	if !Finite(sheetWidth) || sheetWidth <= 0 {
		sheetWidth = DefaultSheetWidth
	}
	if !Finite(sheetLength) || sheetLength <= 0 {
		sheetLength = DefaultSheetLength
	}
	if !Finite(kerf) || kerf < 0 {
		kerf = 0
	}
	return Planner{SheetWidth: sheetWidth, SheetLength: sheetLength, Kerf: kerf}
}

// Nest expands quantities into pieces and packs them onto as many sheets as needed
func (p Planner) Nest(parts []Part) (*Plan, error) {
	if !Finite(p.SheetWidth) || !Finite(p.SheetLength) || !Finite(p.Kerf) ||
		p.SheetWidth <= 0 || p.SheetLength <= 0 || p.Kerf < 0 {
		return nil, fmt.Errorf("%w: sheet %gx%g, kerf %g",
			ErrInvalidPart, p.SheetWidth, p.SheetLength, p.Kerf)
	}

	total := 0
	for _, part := range parts {
		if !Finite(part.Width) || !Finite(part.Length) ||
			part.Width <= 0 || part.Length <= 0 || part.Quantity < 0 {
			return nil, fmt.Errorf("%w: part %d is %gx%g, quantity %d",
				ErrInvalidPart, part.ID, part.Width, part.Length, part.Quantity)
		}
		if part.Quantity > MaxPieces-total {
			return nil, fmt.Errorf("%w: cut list has more than %d pieces", ErrInvalidPart, MaxPieces)
		}
		total += part.Quantity
	}

	pieces := make([]Placement, 0, total)
	for _, part := range parts {
		if part.Width > p.SheetWidth || part.Length > p.SheetLength {
			return nil, fmt.Errorf("%w: part %d is %gx%g, sheet is %gx%g",
				ErrPieceTooLarge, part.ID, part.Width, part.Length, p.SheetWidth, p.SheetLength)
		}
		for i := 0; i < part.Quantity; i++ {
			pieces = append(pieces, Placement{
				PartID:       part.ID,
				Description:  part.Description,
				Width:        part.Width,
				Length:       part.Length,
				PaddedWidth:  part.Width + p.Kerf,
				PaddedLength: part.Length + p.Kerf,
			})
		}
	}

	sort.SliceStable(pieces, func(i, j int) bool {
		return pieces[i].PaddedLength > pieces[j].PaddedLength
	})

	plan := &Plan{
		SheetWidth:  p.SheetWidth,
		SheetLength: p.SheetLength,
		Kerf:        p.Kerf,
		Pieces:      len(pieces),
		Sheets:      []Sheet{},
	}

	var current []Placement
	var x, y, rowHeight float64
	for _, piece := range pieces {
		if x > 0 && x+piece.PaddedWidth > p.SheetWidth {
			x = 0
			y += rowHeight
			rowHeight = 0
		}
		if len(current) > 0 && y+piece.PaddedLength > p.SheetLength {
			plan.Sheets = append(plan.Sheets, p.sheet(len(plan.Sheets)+1, current))
			current = nil
			x, y, rowHeight = 0, 0, 0
		}
		piece.X, piece.Y = x, y
		current = append(current, piece)
		x += piece.PaddedWidth
		if piece.PaddedLength > rowHeight {
			rowHeight = piece.PaddedLength
		}
	}
	if len(current) > 0 {
		plan.Sheets = append(plan.Sheets, p.sheet(len(plan.Sheets)+1, current))
	}

	if n := len(plan.Sheets); n > 0 {
		var used float64
		for _, s := range plan.Sheets {
			used += s.UsedArea
		}
		plan.Utilization = used / (float64(n) * p.SheetWidth * p.SheetLength)
	}

	return plan, nil
}

func (p Planner) sheet(number int, placements []Placement) Sheet {
	var used float64
	for _, pl := range placements {
		used += pl.Width * pl.Length
	}
	return Sheet{
		Number:      number,
		Placements:  placements,
		UsedArea:    used,
		Utilization: used / (p.SheetWidth * p.SheetLength),
	}
}

// Finite reports whether f is neither NaN nor an infinity
func Finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
