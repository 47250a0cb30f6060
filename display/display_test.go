package display

import (
	"bytes"
	"image"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

type recordingPanel struct {
	frames [][]string
}

func (p *recordingPanel) Show(lines []string) error {
	p.frames = append(p.frames, lines)
	return nil
}

func TestGridPrint(t *testing.T) {
	g := NewGrid(nil)
	g.Print("Humid: ", 2, 0)
	g.Print("45.00", 2, 10)
	g.Print("%", 2, 15)

	lines := g.Lines()
	require.Len(t, lines, Rows)
	assert.Equal(t, "Humid:    45.00%", lines[2])
	assert.Equal(t, "", lines[0])
}

func TestGridOverwriteAndClip(t *testing.T) {
	g := NewGrid(nil)
	g.Print("PWS: N/U", 6, 0)
	g.Print("success", 6, 5)
	assert.Equal(t, "PWS: success", g.Lines()[6])

	g.Print("abcdefghijklmnopqrstuvwxyz", 7, 0)
	assert.Equal(t, "abcdefghijklmnopqr", g.Lines()[7])

	// out of range rows are ignored
	g.Print("x", Rows, 0)
	g.Print("x", -1, 0)
	assert.Equal(t, "abcdefghijklmnopqr", g.Lines()[7])
}

func TestGridFlush(t *testing.T) {
	p := &recordingPanel{}
	g := NewGrid(p)
	g.Print("Weather Station", 0, 0)
	require.NoError(t, g.Flush())
	require.Len(t, p.frames, 1)
	assert.Equal(t, "Weather Station", p.frames[0][0])

	assert.NoError(t, NewGrid(nil).Flush())
}

func TestTerminal(t *testing.T) {
	var out bytes.Buffer
	term := Terminal{W: &out}
	require.NoError(t, term.Show([]string{"a", "b"}))
	assert.True(t, strings.HasSuffix(out.String(), "a\nb\n"))
}

func litRows(img *image1bit.VerticalLSB) map[int]int {
	rows := map[int]int{}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.BitAt(x, y) {
				rows[y]++
			}
		}
	}
	return rows
}

func TestRenderKeepsRowsApart(t *testing.T) {
	bounds := image.Rect(0, 0, 128, 64)
	for row := 0; row < Rows; row++ {
		lines := make([]string, Rows)
		lines[row] = "Temp: Hy|gjpq_{}@"
		lit := litRows(render(lines, bounds))
		require.NotEmpty(t, lit, "row %v drew nothing", row)
		for y := range lit {
			assert.GreaterOrEqual(t, y, row*cellHeight, "row %v", row)
			assert.Less(t, y, (row+1)*cellHeight, "row %v", row)
		}
	}
}

func TestRenderFullFrameFitsPanel(t *testing.T) {
	g := NewGrid(nil)
	for row := 0; row < Rows; row++ {
		g.Print(strings.Repeat("W", Cols), row, 0)
	}
	img := render(g.Lines(), image.Rect(0, 0, 128, 64))
	// the last column of every row is drawn, nothing falls off the panel
	lastX := (Cols-1)*cellWidth + glyphWidth - 1
	for row := 0; row < Rows; row++ {
		lit := false
		for y := row * cellHeight; y < row*cellHeight+glyphHeight; y++ {
			lit = lit || bool(img.BitAt(lastX, y))
		}
		assert.True(t, lit, "row %v", row)
	}
}

func TestFaceCoversPrintableASCII(t *testing.T) {
	assert.Len(t, glyphs5x7, '~'-' '+1)
	for i, g := range glyphs5x7 {
		for _, col := range g {
			assert.Zero(t, col&0x80, "glyph %q spills below the cell", rune(' '+i))
		}
	}
}
