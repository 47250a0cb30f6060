// Package display keeps a character grid for the node's small screen and
// pushes it to the panel.
package display

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

const (
	Rows = 8
	Cols = 18
)

// Panel receives a full frame of text lines.
type Panel interface {
	Show(lines []string) error
}

// Grid is a fixed size character buffer. Print overwrites in place, text
// past the right edge is dropped and there is no scrolling.
type Grid struct {
	lock  sync.Mutex
	cells [Rows][Cols]rune
	panel Panel
}

func NewGrid(panel Panel) *Grid {
	g := &Grid{panel: panel}
	g.Clear()
	return g
}

func (g *Grid) Clear() {
	g.lock.Lock()
	defer g.lock.Unlock()
	for r := range g.cells {
		for c := range g.cells[r] {
			g.cells[r][c] = ' '
		}
	}
}

// Print writes text starting at row, col.
func (g *Grid) Print(text string, row int, col int) {
	if row < 0 || row >= Rows || col < 0 {
		return
	}
	g.lock.Lock()
	defer g.lock.Unlock()
	for _, ch := range text {
		if col >= Cols {
			return
		}
		g.cells[row][col] = ch
		col++
	}
}

// Lines returns the grid with trailing spaces trimmed.
func (g *Grid) Lines() []string {
	g.lock.Lock()
	defer g.lock.Unlock()
	lines := make([]string, Rows)
	for r := range g.cells {
		lines[r] = strings.TrimRight(string(g.cells[r][:]), " ")
	}
	return lines
}

// Flush sends the grid to the panel, if there is one.
func (g *Grid) Flush() error {
	if g.panel == nil {
		return nil
	}
	return g.panel.Show(g.Lines())
}

// Terminal is a Panel that redraws the frame on a text terminal.
type Terminal struct {
	W io.Writer
}

func (t Terminal) Show(lines []string) error {
	// home the cursor and clear so the frame overwrites the previous one
	if _, err := io.WriteString(t.W, "\x1b[H\x1b[2J"); err != nil {
		return err
	}
	for _, l := range lines {
		if _, err := fmt.Fprintln(t.W, l); err != nil {
			return err
		}
	}
	return nil
}
