package utils

import (
	"fmt"
	"math"
)

type ScaleParams struct {
	Offset float64
	Scale  float64
	Clip   float64
}

// scale converts r to bytes. No-data pixels (and NaN for float rasters)
// become 0xFF.
func scale(r Raster, params ScaleParams, hasNoData bool) (*ByteRaster, error) {
	switch t := r.(type) {
	case *ByteRaster:
		out := &ByteRaster{NoData: t.NoData, Data: make([]uint8, len(t.Data)), Width: t.Width, Height: t.Height}
		noData := uint8(t.NoData)
		scale := params.Scale
		clip := uint8(params.Clip)

		for i, value := range t.Data {
			if hasNoData && value == noData {
				out.Data[i] = 0xFF
			} else {
				if value > clip {
					value = clip
				}
				out.Data[i] = uint8(float64(value) * scale)
			}
		}
		return out, nil

	case *Int16Raster:
		out := &ByteRaster{NoData: t.NoData, Data: make([]uint8, len(t.Data)), Width: t.Width, Height: t.Height}
		noData := int16(t.NoData)
		clip := int16(params.Clip)
		for i, value := range t.Data {
			if hasNoData && value == noData {
				out.Data[i] = 0xFF
			} else {
				if value > clip {
					value = clip
				}
				if value < 0 {
					value = 0
				}
				out.Data[i] = uint8(float32(value) * 254.0 / float32(clip))
			}
		}
		return out, nil

	case *UInt16Raster:
		out := &ByteRaster{NoData: t.NoData, Data: make([]uint8, len(t.Data)), Width: t.Width, Height: t.Height}
		noData := uint16(t.NoData)
		clip := uint16(params.Clip)
		for i, value := range t.Data {
			if hasNoData && value == noData {
				out.Data[i] = 0xFF
			} else {
				if value > clip {
					value = clip
				}
				out.Data[i] = uint8(float32(value) * 254.0 / float32(clip))
			}
		}
		return out, nil

	case *Float32Raster:
		out := &ByteRaster{NoData: t.NoData, Data: make([]uint8, len(t.Data)), Width: t.Width, Height: t.Height}

		noData := float32(t.NoData)
		scale := float32(params.Scale)
		offset := float32(params.Offset)
		clip := float32(params.Clip)

		for i, value := range t.Data {
			if (hasNoData && value == noData) || value != value {
				out.Data[i] = 0xFF
			} else {
				value += offset
				if value > clip {
					value = clip
				}
				if value < 0 {
					value = 0
				}
				out.Data[i] = uint8(value * scale)
			}
		}
		return out, nil

	default:
		return &ByteRaster{}, fmt.Errorf("Raster type not implemented")
	}
}

func Scale(rs []Raster, params ScaleParams) ([]*ByteRaster, error) {
	out := make([]*ByteRaster, len(rs))

	for i, r := range rs {
		br, err := scale(r, params, true)
		if err != nil {
			return out, err
		}
		out[i] = br
	}

	return out, nil
}

// ScaleDataArray scales the raster of da, treating its pixels as
// no-data only when a no-data value has been registered.
func ScaleDataArray(da *DataArray, params ScaleParams) (*ByteRaster, error) {
	_, hasNoData := da.NoData()
	return scale(da.Data, params, hasNoData)
}

// ImgAsUbyte converts floats in [-1, 1] to bytes: values are multiplied
// by 255, rounded half to even and negatives clipped to 0. NaN becomes 0.
func ImgAsUbyte(values []float64) ([]uint8, error) {
	out := make([]uint8, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if v < -1 || v > 1 {
			return nil, fmt.Errorf("images of type float must be between -1 and 1, got %v", v)
		}
		v = math.RoundToEven(v * 255)
		if v < 0 {
			v = 0
		}
		out[i] = uint8(v)
	}
	return out, nil
}
