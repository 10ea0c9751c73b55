package utils

import (
	"fmt"
	"math"
)

// Raster is a flat, row-major pixel buffer. Height and Width are the
// two trailing dimensions; any leading planes are stored one after the
// other.
type Raster interface {
	GetNoData() float64
	Len() int
	Type() string
	Value(i int) float64
}

type ByteRaster struct {
	Data          []uint8
	Height, Width int
	NoData        float64
}

func (r *ByteRaster) GetNoData() float64 { return r.NoData }
func (r *ByteRaster) Len() int { return len(r.Data) }
func (r *ByteRaster) Type() string { return "Byte" }
func (r *ByteRaster) Value(i int) float64 { return float64(r.Data[i]) }

type Int16Raster struct {
	Data          []int16
	Height, Width int
	NoData        float64
}

func (r *Int16Raster) GetNoData() float64 { return r.NoData }
func (r *Int16Raster) Len() int { return len(r.Data) }
func (r *Int16Raster) Type() string { return "Int16" }
func (r *Int16Raster) Value(i int) float64 { return float64(r.Data[i]) }

type UInt16Raster struct {
	Data          []uint16
	Height, Width int
	NoData        float64
}

func (r *UInt16Raster) GetNoData() float64 { return r.NoData }
func (r *UInt16Raster) Len() int { return len(r.Data) }
func (r *UInt16Raster) Type() string { return "UInt16" }
func (r *UInt16Raster) Value(i int) float64 { return float64(r.Data[i]) }

type Float32Raster struct {
	Data          []float32
	Height, Width int
	NoData        float64
}

func (r *Float32Raster) GetNoData() float64 { return r.NoData }
func (r *Float32Raster) Len() int { return len(r.Data) }
func (r *Float32Raster) Type() string { return "Float32" }
func (r *Float32Raster) Value(i int) float64 { return float64(r.Data[i]) }

// IsIntegerRaster reports whether r holds integer pixels that can take
// part in bitwise flag tests.
func IsIntegerRaster(r Raster) bool {
	switch r.(type) {
	case *ByteRaster, *Int16Raster, *UInt16Raster:
		return true
	}
	return false
}

// Bits returns pixel i of an integer raster as an unsigned bit pattern.
// Int16 values keep their two's complement bits.
func Bits(r Raster, i int) (uint16, error) {
	switch t := r.(type) {
	case *ByteRaster:
		return uint16(t.Data[i]), nil
	case *Int16Raster:
		return uint16(t.Data[i]), nil
	case *UInt16Raster:
		return t.Data[i], nil
	default:
		return 0, fmt.Errorf("bitwise operations need an integer raster, got %s", r.Type())
	}
}

// Dims returns the height and width of r.
func Dims(r Raster) (int, int) {
	switch t := r.(type) {
	case *ByteRaster:
		return t.Height, t.Width
	case *Int16Raster:
		return t.Height, t.Width
	case *UInt16Raster:
		return t.Height, t.Width
	case *Float32Raster:
		return t.Height, t.Width
	}
	return 0, 0
}

// Float64s copies the pixels of r into a float64 slice.
func Float64s(r Raster) []float64 {
	out := make([]float64, r.Len())
	for i := range out {
		out[i] = r.Value(i)
	}
	return out
}

// CloneRaster returns a deep copy of r.
func CloneRaster(r Raster) Raster {
	switch t := r.(type) {
	case *ByteRaster:
		return &ByteRaster{Data: append([]uint8(nil), t.Data...), Height: t.Height, Width: t.Width, NoData: t.NoData}
	case *Int16Raster:
		return &Int16Raster{Data: append([]int16(nil), t.Data...), Height: t.Height, Width: t.Width, NoData: t.NoData}
	case *UInt16Raster:
		return &UInt16Raster{Data: append([]uint16(nil), t.Data...), Height: t.Height, Width: t.Width, NoData: t.NoData}
	case *Float32Raster:
		return &Float32Raster{Data: append([]float32(nil), t.Data...), Height: t.Height, Width: t.Width, NoData: t.NoData}
	}
	return nil
}

func setRasterShape(r Raster, height, width int) {
	switch t := r.(type) {
	case *ByteRaster:
		t.Height, t.Width = height, width
	case *Int16Raster:
		t.Height, t.Width = height, width
	case *UInt16Raster:
		t.Height, t.Width = height, width
	case *Float32Raster:
		t.Height, t.Width = height, width
	}
}

func setRasterNoData(r Raster, noData float64) {
	switch t := r.(type) {
	case *ByteRaster:
		t.NoData = noData
	case *Int16Raster:
		t.NoData = noData
	case *UInt16Raster:
		t.NoData = noData
	case *Float32Raster:
		t.NoData = noData
	}
}

// IsMissing reports whether v is NaN or equals the registered no-data
// value.
func IsMissing(v, noData float64, hasNoData bool) bool {
	if math.IsNaN(v) {
		return true
	}
	return hasNoData && v == noData
}

func ValidateRasterSlice(rs []Raster) (int, int, string, error) {
	var width, height int
	var rasterType string

	for i, r := range rs {
		if r == nil {
			return 0, 0, "", fmt.Errorf("raster %d is nil", i)
		}
		switch r.(type) {
		case *ByteRaster, *Int16Raster, *UInt16Raster, *Float32Raster:
		default:
			return 0, 0, "", fmt.Errorf("Raster type not implemented")
		}

		h, w := Dims(r)
		if i == 0 {
			rasterType, height, width = r.Type(), h, w
			continue
		}
		if rasterType != r.Type() {
			return 0, 0, "", fmt.Errorf("Mixed types")
		}
		if width != w {
			return 0, 0, "", fmt.Errorf("Mixed width sizes")
		}
		if height != h {
			return 0, 0, "", fmt.Errorf("Mixed height sizes")
		}
	}
	return width, height, rasterType, nil
}
