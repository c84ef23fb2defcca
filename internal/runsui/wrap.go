package runsui

import (
	"strings"
	"unicode"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

var (
	letterStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	markStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

type styledRune struct {
	s       string
	width   int
	isSpace bool
	isBreak bool
}

// buildStyledRunes renders letters bright and everything else muted.
func buildStyledRunes(text string) []styledRune {
	out := make([]styledRune, 0, len(text))
	for _, r := range text {
		switch {
		case r == '\n':
			out = append(out, styledRune{isBreak: true})
			continue
		case r == '\t' || r == '\r':
			r = ' '
		}
		style := markStyle
		if unicode.IsLetter(r) {
			style = letterStyle
		}
		out = append(out, styledRune{
			s:       style.Render(string(r)),
			width:   runewidth.RuneWidth(r),
			isSpace: r == ' ',
		})
	}
	return out
}

func renderStyledRunes(runes []styledRune) string {
	var b strings.Builder
	for _, item := range runes {
		b.WriteString(item.s)
	}
	return b.String()
}

// wrapText word-wraps text to width display cells, keeping explicit line breaks.
func wrapText(text string, width int) string {
	return wrapStyledRunes(buildStyledRunes(text), width)
}

func wrapStyledRunes(runes []styledRune, width int) string {
	if width <= 0 {
		width = 1 << 30
	}
	var out strings.Builder
	line := make([]styledRune, 0, len(runes))
	lineWidth := 0
	lastSpaceIdx := -1

	flush := func() {
		out.WriteString(renderStyledRunes(line))
		out.WriteRune('\n')
		line = line[:0]
		lineWidth = 0
		lastSpaceIdx = -1
	}

	for i := 0; i < len(runes); {
		item := runes[i]
		if item.isBreak {
			flush()
			i++
			continue
		}
		if lineWidth+item.width > width && len(line) > 0 {
			if item.isSpace {
				flush()
				i++
				continue
			}
			if lastSpaceIdx >= 0 {
				out.WriteString(renderStyledRunes(line[:lastSpaceIdx]))
				out.WriteRune('\n')
				line = append([]styledRune{}, line[lastSpaceIdx+1:]...)
				lineWidth = lineWidthOf(line)
				lastSpaceIdx = lastSpaceIndex(line)
			} else {
				flush()
			}
			continue
		}
		line = append(line, item)
		lineWidth += item.width
		if item.isSpace {
			lastSpaceIdx = len(line) - 1
		}
		i++
	}
	out.WriteString(renderStyledRunes(line))
	return out.String()
}

func lineWidthOf(line []styledRune) int {
	total := 0
	for _, item := range line {
		total += item.width
	}
	return total
}

func lastSpaceIndex(line []styledRune) int {
	for i := len(line) - 1; i >= 0; i-- {
		if line[i].isSpace {
			return i
		}
	}
	return -1
}
