package processor

import (
	"fmt"
	"math"
	"strconv"

	"github.com/nci/satlib/utils"
)

// DefaultFmask flags cirrus, cloud and water pixels.
var DefaultFmask = &utils.Mask{ID: "fmask", Value: fmt.Sprintf("%08b", utils.CloudWaterCirrusBits)}

// ComputeMask returns true for every fmask pixel flagged by mask.
func ComputeMask(mask *utils.Mask, fmask utils.Raster) (out []bool, err error) {
	if mask == nil {
		return nil, fmt.Errorf("mask is nil")
	}
	if len(mask.Value) == 0 {
		if len(mask.BitTests) == 0 {
			err = fmt.Errorf("Please specify either mask.Value or mask.BitTests")
			return
		} else if len(mask.BitTests)%2 != 0 {
			err = fmt.Errorf("The entries in mask.BitTests must be in pairs")
			return
		}
	}
	if !utils.IsIntegerRaster(fmask) {
		return nil, fmt.Errorf("fmask must be an integer raster, got %s", fmask.Type())
	}

	if len(mask.Value) > 0 {
		maskValue, err := strconv.ParseUint(mask.Value, 2, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid mask value %q: %v", mask.Value, err)
		}
		return bitsHit(fmask, uint16(maskValue))
	}

	filters := make([]uint16, len(mask.BitTests)/2)
	values := make([]uint16, len(mask.BitTests)/2)
	for j := 0; j < len(mask.BitTests); j += 2 {
		maskFilter, err := strconv.ParseUint(mask.BitTests[j], 2, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid bit test filter %q: %v", mask.BitTests[j], err)
		}
		maskValue, err := strconv.ParseUint(mask.BitTests[j+1], 2, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid bit test value %q: %v", mask.BitTests[j+1], err)
		}
		filters[j/2] = uint16(maskFilter)
		values[j/2] = uint16(maskValue)
	}

	out = make([]bool, fmask.Len())
	for i := range out {
		val, err := utils.Bits(fmask, i)
		if err != nil {
			return nil, err
		}
		for j := range filters {
			if val&filters[j] == values[j] {
				out[i] = true
				break
			}
		}
	}
	return out, nil
}

// bitsHit flags pixels sharing at least one bit with maskValue.
func bitsHit(fmask utils.Raster, maskValue uint16) ([]bool, error) {
	out := make([]bool, fmask.Len())
	for i := range out {
		val, err := utils.Bits(fmask, i)
		if err != nil {
			return nil, err
		}
		out[i] = val&maskValue != 0
	}
	return out, nil
}

// MakeBoolMask turns a Landsat fmask into a sampling mask where clear
// land pixels are 1 and cloud, cirrus or water pixels are 0.
func MakeBoolMask(fmask utils.Raster) (*utils.ByteRaster, error) {
	return MakeSamplingMask(fmask, DefaultFmask)
}

// MakeSamplingMask writes 0 for pixels flagged by mask and 1 for the
// rest. The result has the shape of fmask.
func MakeSamplingMask(fmask utils.Raster, mask *utils.Mask) (*utils.ByteRaster, error) {
	flagged, err := ComputeMask(mask, fmask)
	if err != nil {
		return nil, err
	}

	height, width := utils.Dims(fmask)
	out := &utils.ByteRaster{Data: make([]uint8, len(flagged)), Height: height, Width: width}
	for i, hit := range flagged {
		if !hit {
			out.Data[i] = 1
		}
	}
	return out, nil
}

// MaskImage returns a float copy of image with every pixel whose fmask
// shares a bit with maskValue set to NaN.
func MaskImage(image, fmask *utils.DataArray, maskValue uint16) (*utils.DataArray, error) {
	if image.Data.Len() != fmask.Data.Len() {
		return nil, fmt.Errorf("image has %d pixels but fmask has %d", image.Data.Len(), fmask.Data.Len())
	}
	hits, err := bitsHit(fmask.Data, maskValue)
	if err != nil {
		return nil, err
	}

	height, width := utils.Dims(image.Data)
	masked := &utils.Float32Raster{
		Data:   make([]float32, image.Data.Len()),
		Height: height,
		Width:  width,
		NoData: image.Data.GetNoData(),
	}
	nan := float32(math.NaN())
	for i, hit := range hits {
		if hit {
			masked.Data[i] = nan
		} else {
			masked.Data[i] = float32(image.Data.Value(i))
		}
	}

	out := image.Copy()
	out.Data = masked
	return out, nil
}
