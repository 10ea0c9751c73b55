package processor

import (
	"fmt"
	"image/color"

	"github.com/nci/satlib/utils"
)

// GrayPalette ramps from black to white.
var GrayPalette = &utils.Palette{
	Interpolate: true,
	Colours:     []color.RGBA{{0, 0, 0, 255}, {255, 255, 255, 255}},
}

// MaskPalette paints excluded pixels (0) dark blue and usable pixels (1)
// light green; any other value maps to the last colour.
var MaskPalette = &utils.Palette{
	Interpolate: false,
	Colours:     []color.RGBA{{20, 40, 120, 255}, {170, 220, 140, 255}},
}

func interpolateUint8(a, b uint8, i, sectionLength int) uint8 {
	return a + uint8((i * (int(b) - int(a)) / sectionLength))
}

func interpolateColor(a, b color.RGBA, i, sectionLength int) color.RGBA {
	return color.RGBA{interpolateUint8(a.R, b.R, i, sectionLength),
		interpolateUint8(a.G, b.G, i, sectionLength),
		interpolateUint8(a.B, b.B, i, sectionLength),
		255}
}

// GradientRGBAPalette expands palette into a 256 entry lookup table.
// Interpolated palettes blend between consecutive colours; the others
// repeat each colour over an equal share of the table, except that a
// palette of two colours keeps the first for 0 only, so that 0/1 masks
// render with both colours.
func GradientRGBAPalette(palette *utils.Palette) ([]color.RGBA, error) {
	if palette == nil {
		return nil, nil
	}
	if len(palette.Colours) < 2 {
		return nil, fmt.Errorf("The colour palette must contain at least 2 colours.")
	}

	ramp := make([]color.RGBA, 256)

	if palette.Interpolate {
		bins := len(palette.Colours) - 1
		sectionLength := 256 / bins
		bonus := 256 - (sectionLength * bins)
		bonusArr := make([]int, bins)
		for i := 0; i < bonus; i++ {
			bonusArr[i] = 1
		}

		index := 0
		for section, upperColour := range palette.Colours[1:] {
			for i := 0; i < sectionLength+bonusArr[section]; i++ {
				ramp[index] = interpolateColor(palette.Colours[section], upperColour, i, sectionLength)
				index++
			}
		}
		return ramp, nil
	}

	if len(palette.Colours) == 2 {
		ramp[0] = palette.Colours[0]
		for i := 1; i < len(ramp); i++ {
			ramp[i] = palette.Colours[1]
		}
		return ramp, nil
	}

	bins := len(palette.Colours)
	sectionLength := 256 / bins
	bonus := 256 - (sectionLength * bins)
	bonusArr := make([]int, bins)
	for i := 0; i < bonus; i++ {
		bonusArr[i] = 1
	}

	index := 0
	for section, colour := range palette.Colours {
		for i := 0; i < sectionLength+bonusArr[section]; i++ {
			ramp[index] = colour
			index++
		}
	}
	return ramp, nil
}
