// Package shaper lays out the output of a brainfuck program as glyphs.
//
// The text being shaped is the program itself: everything before the first
// '#' is the program and everything after it is its input line. Each
// character the program prints becomes one glyph; a newline ends the
// current line.
package shaper

import (
	"context"
	"strings"

	"github.com/MarcinKonowalczyk/bfvm/bf"
	"github.com/containerd/log"
)

// Font resolves characters to glyphs and reports their advances.
type Font interface {
	Glyph(r rune) uint32
	HAdvance(glyph uint32) int32
	VAdvance(glyph uint32) int32
}

type Glyph struct {
	Codepoint uint32
	Cluster   uint32
	XAdvance  int32
	YAdvance  int32
}

// Separator splits the shaped text into program and input.
const Separator = "#"

// Split returns the program and input line held in text. The input, when
// present, gets a trailing newline.
func Split(text string) (string, string) {
	program, input, found := strings.Cut(text, Separator)
	if !found {
		return text, ""
	}
	return program, input + "\n"
}

// Text keeps the low byte of every codepoint.
func Text(codepoints []uint32) string {
	buf := make([]byte, len(codepoints))
	for i, c := range codepoints {
		buf[i] = byte(c)
	}
	return strings.ToValidUTF8(string(buf), "\uFFFD")
}

// Shape runs the program held in codepoints and lays out its output. A
// failed run is shaped as the text "error".
func Shape(ctx context.Context, codepoints []uint32, font Font, opts ...bf.Option) []Glyph {
	program, input := Split(Text(codepoints))
	output, err := bf.ExecuteContext(ctx, program, input, opts...)
	if err != nil {
		log.G(ctx).WithError(err).Debug("shaping failed program")
		output = "error"
	}
	return Layout([]rune(output), font)
}

// Layout places chars left to right. Newlines produce no glyph; the glyph
// before a newline instead moves the pen back to the start of the line and
// down by its vertical advance.
func Layout(chars []rune, font Font) []Glyph {
	glyphs := make([]Glyph, 0, len(chars))
	var lineWidth int32
	for i, c := range chars {
		if c == '\n' {
			continue
		}

		g := Glyph{
			Codepoint: font.Glyph(c),
			Cluster:   uint32(i),
		}
		if i+1 < len(chars) && chars[i+1] == '\n' {
			g.XAdvance = -lineWidth
			g.YAdvance = font.VAdvance(g.Codepoint)
			lineWidth = 0
		} else {
			g.XAdvance = font.HAdvance(g.Codepoint)
			lineWidth += g.XAdvance
		}
		glyphs = append(glyphs, g)
	}
	return glyphs
}
