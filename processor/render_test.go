package processor

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"

	"github.com/nci/satlib/utils"
)

func TestGradientRGBAPalette(t *testing.T) {
	ramp, err := GradientRGBAPalette(GrayPalette)
	if err != nil {
		t.Fatalf("GradientRGBAPalette failed: %v", err)
	}
	if len(ramp) != 256 || ramp[0] != (color.RGBA{0, 0, 0, 255}) {
		t.Errorf("unexpected gray ramp start %v", ramp[0])
	}
	for i := 1; i < len(ramp); i++ {
		if ramp[i].R < ramp[i-1].R {
			t.Errorf("gray ramp is not increasing at %d", i)
			break
		}
	}

	ramp, err = GradientRGBAPalette(MaskPalette)
	if err != nil {
		t.Fatalf("GradientRGBAPalette failed: %v", err)
	}
	if ramp[0] != MaskPalette.Colours[0] || ramp[1] != MaskPalette.Colours[1] || ramp[200] != MaskPalette.Colours[1] {
		t.Errorf("unexpected mask ramp %v %v %v", ramp[0], ramp[1], ramp[200])
	}

	steps := &utils.Palette{Colours: []color.RGBA{{255, 0, 0, 255}, {0, 255, 0, 255}, {0, 0, 255, 255}, {9, 9, 9, 255}}}
	ramp, err = GradientRGBAPalette(steps)
	if err != nil {
		t.Fatalf("GradientRGBAPalette failed: %v", err)
	}
	if ramp[0] != steps.Colours[0] || ramp[64] != steps.Colours[1] || ramp[255] != steps.Colours[3] {
		t.Errorf("unexpected stepped ramp")
	}

	if _, err := GradientRGBAPalette(&utils.Palette{Colours: []color.RGBA{{}}}); err == nil {
		t.Errorf("expecting an error for a single colour palette")
	}
}

func TestFalseColorPNG(t *testing.T) {
	rgb, err := MakeFalseColor(testDataset(t, []uint8{0, 0, 0, 0}), []string{"B06", "B05", "B04"})
	if err != nil {
		t.Fatalf("MakeFalseColor failed: %v", err)
	}

	out, err := FalseColorPNG(rgb)
	if err != nil {
		t.Fatalf("FalseColorPNG failed: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("failed to decode PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 2 || b.Dy() != 2 {
		t.Errorf("expecting a 2x2 image, actual %v", b)
	}
	got := color.RGBAModel.Convert(img.At(0, 0)).(color.RGBA)
	if got != (color.RGBA{191, 255, 64, 255}) {
		t.Errorf("unexpected first pixel %v", got)
	}

	band := testBand(t, &utils.Float32Raster{Data: []float32{0, 1, 2, 3}}, nil)
	if _, err := FalseColorPNG(band); err == nil {
		t.Errorf("expecting an error for a float raster")
	}
}

func TestRenderBand(t *testing.T) {
	band := testBand(t, &utils.Float32Raster{Data: []float32{0, 0.5, 1, -9999}}, nil)
	band.SetNoData(-9999)

	out, err := RenderBand(band, utils.ScaleParams{Scale: 254, Clip: 1}, nil)
	if err != nil {
		t.Fatalf("RenderBand failed: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("failed to decode PNG: %v", err)
	}
	if _, _, _, a := img.At(1, 1).RGBA(); a != 0 {
		t.Errorf("no-data pixels must be transparent, alpha %d", a)
	}
	if r, _, _, _ := img.At(0, 0).RGBA(); r != 0 {
		t.Errorf("expecting a black first pixel, red %d", r)
	}

	rgb, err := MakeFalseColor(testDataset(t, []uint8{0, 0, 0, 0}), []string{"B06", "B05", "B04"})
	if err != nil {
		t.Fatalf("MakeFalseColor failed: %v", err)
	}
	if _, err := RenderBand(rgb, utils.ScaleParams{Scale: 1, Clip: 255}, nil); err == nil {
		t.Errorf("expecting an error for a 3 band raster")
	}
}

func TestMaskPNG(t *testing.T) {
	mask, err := MakeBoolMask(&utils.ByteRaster{Data: []uint8{2, 0, 32, 1}, Height: 2, Width: 2})
	if err != nil {
		t.Fatalf("MakeBoolMask failed: %v", err)
	}
	out, err := MaskPNG(mask)
	if err != nil {
		t.Fatalf("MaskPNG failed: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("failed to decode PNG: %v", err)
	}
	if got := color.RGBAModel.Convert(img.At(1, 0)).(color.RGBA); got != MaskPalette.Colours[1] {
		t.Errorf("expecting %v for a clear pixel, actual %v", MaskPalette.Colours[1], got)
	}
	if got := color.RGBAModel.Convert(img.At(0, 0)).(color.RGBA); got != MaskPalette.Colours[0] {
		t.Errorf("expecting %v for a flagged pixel, actual %v", MaskPalette.Colours[0], got)
	}
}
