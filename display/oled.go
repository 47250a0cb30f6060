package display

import (
	"fmt"
	"image"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// OLED renders the grid on a 128x64 SSD1306: 8 text rows of cellHeight
// pixels, and Face5x7 advances 6 pixels so the 18 columns fit in 128.
type OLED struct {
	dev *ssd1306.Dev
}

func NewOLED(bus i2c.Bus) (*OLED, error) {
	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return nil, fmt.Errorf("ssd1306: %w", err)
	}
	return &OLED{dev: dev}, nil
}

func (o *OLED) Show(lines []string) error {
	bounds := o.dev.Bounds()
	return o.dev.Draw(bounds, render(lines, bounds), image.Point{})
}

// render draws each line in its own band of cellHeight pixel lines.
func render(lines []string, bounds image.Rectangle) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(bounds)
	drawer := font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{C: image1bit.On},
		Face: Face5x7,
	}
	for row, line := range lines {
		// baseline under the glyph, the last line of the band stays blank
		drawer.Dot = fixed.P(0, row*cellHeight+glyphHeight)
		drawer.DrawString(line)
	}
	return img
}

func (o *OLED) Halt() error {
	return o.dev.Halt()
}
