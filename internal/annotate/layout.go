package annotate

import (
	"fmt"
	"math"
	"unicode/utf8"
)

const (
	margin      = 20.0
	maxFontSize = 9
	minFontSize = 5

	// Helvetica averages roughly half an em per glyph.
	glyphWidth = 0.5
	lineHeight = 1.2
)

// Placement is where and how a stamp is drawn on one page.
type Placement struct {
	FontSize int
	Lines    []string
	OffsetX  float64
	OffsetY  float64
}

// Layout fits lines into a box anchored at the bottom-left corner of a page of
// the given size. The font shrinks from 9pt to 5pt until the longest line fits
// the page width and the block fits the lower third of the page. At the floor
// size long lines are cut and surplus lines collapse into a "(+N more)" line.
func Layout(width, height float64, lines []string) Placement {
	p := Placement{FontSize: minFontSize, OffsetX: margin, OffsetY: margin}
	if len(lines) == 0 {
		p.FontSize = maxFontSize
		return p
	}

	availW := math.Max(width-2*margin, 1)
	availH := math.Max(height/3-margin, 1)

	for size := maxFontSize; size >= minFontSize; size-- {
		if widest(lines)*glyphWidth*float64(size) <= availW && capacity(availH, size) >= len(lines) {
			p.FontSize = size
			p.Lines = append([]string(nil), lines...)
			return p
		}
	}

	maxChars := int(availW / (glyphWidth * minFontSize))
	rows := capacity(availH, minFontSize)
	if rows < 1 {
		rows = 1
	}

	visible := lines
	overflow := 0
	if len(lines) > rows {
		visible = lines[:rows-1]
		overflow = len(lines) - len(visible)
	}
	for _, line := range visible {
		p.Lines = append(p.Lines, truncate(line, maxChars))
	}
	if overflow > 0 {
		p.Lines = append(p.Lines, fmt.Sprintf("… (+%d more)", overflow))
	}
	return p
}

func capacity(availH float64, size int) int {
	return int(availH / (lineHeight * float64(size)))
}

func widest(lines []string) float64 {
	n := 0
	for _, line := range lines {
		if c := utf8.RuneCountInString(line); c > n {
			n = c
		}
	}
	return float64(n)
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	r := []rune(s)
	return string(r[:max-1]) + "…"
}
