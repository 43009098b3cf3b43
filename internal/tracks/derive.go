// Package tracks derives the junior-year rotation tracks from a base
// sequence. The workbook's explicit track grid cells are formula-derived;
// they are always recomputed here, never read back as values.
package tracks

import (
	"fmt"
	"strings"
	"sync"
)

// BiweekCodes is one position of the base sequence: the rotation held in
// the first and second half of a block. Most positions repeat the same code
// in both halves.
type BiweekCodes struct {
	A string `json:"a"`
	B string `json:"b"`
}

// Cell is one biweek of a derived track.
type Cell struct {
	Block  int    `json:"block"`
	Biweek string `json:"biweek"` // "A" or "B"
	Code   string `json:"code"`
}

// Track is a full-year rotation sequence for one track number.
type Track struct {
	Number int    `json:"number"`
	Label  string `json:"label"`
	Cells  []Cell `json:"cells"`
}

// ToWeekly expands biweek cells into a weekly schedule: biweek A covers
// weeks 1-2 of the block, biweek B weeks 3-4.
func (t Track) ToWeekly() map[int]string {
	out := make(map[int]string, len(t.Cells)*2)
	for _, c := range t.Cells {
		base := (c.Block-1)*4 + 1
		switch c.Biweek {
		case "A":
			out[base] = c.Code
			out[base+1] = c.Code
		case "B":
			out[base+2] = c.Code
			out[base+3] = c.Code
		}
	}
	return out
}

const (
	numBlocks = 13
	stride    = 2 // biweekly cycling through the base sequence
)

// PositionFor is the derivation formula: the base-sequence index (0-based)
// for track t at block b.
func PositionFor(track, block, seqLen int) int {
	return ((track - 1) + (block-1)*stride) % seqLen
}

var cache = struct {
	sync.Mutex
	m map[string][]Track
}{m: make(map[string][]Track)}

func cacheKey(base []BiweekCodes, count int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d|", count)
	for _, bc := range base {
		sb.WriteString(bc.A)
		sb.WriteByte('/')
		sb.WriteString(bc.B)
		sb.WriteByte(';')
	}
	return sb.String()
}

// Derive produces `count` tracks from the base sequence. The derivation is
// pure; results are cached per (sequence, count).
//
// Warnings:
//   - sequence shorter than the class → at least two residents share a
//     schedule (duplicate tracks)
//   - sequence longer than the class → some positions are never reached
//     (missed rotations)
func Derive(base []BiweekCodes, count int) ([]Track, []string, error) {
	if len(base) == 0 {
		return nil, nil, fmt.Errorf("empty base sequence")
	}
	if count <= 0 {
		return nil, nil, fmt.Errorf("track count must be positive, got %d", count)
	}

	var warnings []string
	if len(base) < count {
		warnings = append(warnings,
			fmt.Sprintf("base sequence length %d < %d tracks: duplicate tracks will be issued", len(base), count))
	}
	if len(base) > count {
		warnings = append(warnings,
			fmt.Sprintf("base sequence length %d > %d tracks: some rotations are unreachable", len(base), count))
	}

	key := cacheKey(base, count)
	cache.Lock()
	cached, ok := cache.m[key]
	cache.Unlock()
	if ok {
		return cached, warnings, nil
	}

	tracks := make([]Track, count)
	for t := 1; t <= count; t++ {
		tr := Track{Number: t, Label: fmt.Sprintf("Track %d", t)}
		for b := 1; b <= numBlocks; b++ {
			pos := PositionFor(t, b, len(base))
			bc := base[pos]
			if bc.A != "" {
				tr.Cells = append(tr.Cells, Cell{Block: b, Biweek: "A", Code: bc.A})
			}
			if bc.B != "" {
				tr.Cells = append(tr.Cells, Cell{Block: b, Biweek: "B", Code: bc.B})
			}
		}
		tracks[t-1] = tr
	}

	cache.Lock()
	cache.m[key] = tracks
	cache.Unlock()
	return tracks, warnings, nil
}
