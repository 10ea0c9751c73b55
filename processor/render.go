package processor

import (
	"fmt"

	"github.com/nci/satlib/utils"
)

// FalseColorPNG encodes a composite made by MakeFalseColor.
func FalseColorPNG(da *utils.DataArray) ([]byte, error) {
	br, ok := da.Data.(*utils.ByteRaster)
	if !ok {
		return nil, fmt.Errorf("false color image must be a Byte raster, got %s", da.Data.Type())
	}
	if len(da.Shape) != 3 || da.Shape[0] != 3 {
		return nil, fmt.Errorf("false color image must have 3 bands, got shape %v", da.Shape)
	}

	bands, err := utils.SplitBands(br)
	if err != nil {
		return nil, err
	}
	return utils.EncodePNG(bands, nil)
}

// RenderBand scales a single band to bytes and paints it through
// palette; no-data and NaN pixels are left transparent.
func RenderBand(da *utils.DataArray, params utils.ScaleParams, palette *utils.Palette) ([]byte, error) {
	if palette == nil {
		palette = GrayPalette
	}
	height, width := utils.Dims(da.Data)
	if height*width != da.Data.Len() {
		return nil, fmt.Errorf("can only render a single band, got shape %v", da.Shape)
	}

	br, err := utils.ScaleDataArray(da, params)
	if err != nil {
		return nil, err
	}
	plt, err := GradientRGBAPalette(palette)
	if err != nil {
		return nil, err
	}
	return utils.EncodePNG([]*utils.ByteRaster{br}, plt)
}

// MaskPNG renders a sampling mask made by MakeBoolMask.
func MaskPNG(mask *utils.ByteRaster) ([]byte, error) {
	plt, err := GradientRGBAPalette(MaskPalette)
	if err != nil {
		return nil, err
	}
	return utils.EncodePNG([]*utils.ByteRaster{mask}, plt)
}
