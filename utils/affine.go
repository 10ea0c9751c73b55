package utils

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

var ErrSingularTransform = errors.New("affine transform is not invertible")

// Affine maps pixel (col, row) to coordinates (x, y):
//
//	x = A*col + B*row + C
//	y = D*col + E*row + F
type Affine struct {
	A, B, C float64
	D, E, F float64
}

func (t Affine) Apply(col, row float64) (float64, float64) {
	return t.A*col + t.B*row + t.C, t.D*col + t.E*row + t.F
}

func (t Affine) Invert() (Affine, error) {
	det := t.A*t.E - t.B*t.D
	if det == 0 || math.IsNaN(det) {
		return Affine{}, ErrSingularTransform
	}
	idet := 1.0 / det
	ra := t.E * idet
	rb := -t.B * idet
	rd := -t.D * idet
	re := t.A * idet
	return Affine{
		A: ra, B: rb, C: -t.C*ra - t.F*rb,
		D: rd, E: re, F: -t.C*rd - t.F*re,
	}, nil
}

// GeoTransform returns t in GDAL order.
func (t Affine) GeoTransform() []float64 {
	return []float64{t.C, t.A, t.B, t.F, t.D, t.E}
}

func AffineFromGeoTransform(geot []float64) (Affine, error) {
	if len(geot) != 6 {
		return Affine{}, fmt.Errorf("geotransform needs 6 values, got %d", len(geot))
	}
	return Affine{A: geot[1], B: geot[2], C: geot[0], D: geot[4], E: geot[5], F: geot[3]}, nil
}

// GetAffine derives an axis-aligned transform from the x and y
// coordinates of da. The resolution is the mean coordinate step, so
// irregular grids are only approximated.
func GetAffine(da *DataArray) (Affine, error) {
	x, err := da.Coord("x")
	if err != nil {
		return Affine{}, err
	}
	y, err := da.Coord("y")
	if err != nil {
		return Affine{}, err
	}
	if len(x) < 2 || len(y) < 2 {
		return Affine{}, fmt.Errorf("need at least 2 x and y coordinates, got %d and %d", len(x), len(y))
	}

	return Affine{
		A: stat.Mean(diff(x), nil), B: 0, C: x[0],
		D: 0, E: stat.Mean(diff(y), nil), F: y[0],
	}, nil
}

func diff(v []float64) []float64 {
	out := make([]float64, len(v)-1)
	for i := range out {
		out[i] = v[i+1] - v[i]
	}
	return out
}

// GetRowCol maps coordinate pairs to pixel indices with the inverse of
// t. Note the order of the results: columns first, then rows. Pixel
// indices that are NaN or fall outside the int32 range are an error.
func GetRowCol(t Affine, xCoords, yCoords []float64) ([]int32, []int32, error) {
	if len(xCoords) != len(yCoords) {
		return nil, nil, fmt.Errorf("x and y coordinates differ in length: %d != %d", len(xCoords), len(yCoords))
	}
	inv, err := t.Invert()
	if err != nil {
		return nil, nil, err
	}

	cols := make([]int32, len(xCoords))
	rows := make([]int32, len(yCoords))
	for i := range xCoords {
		col, row := inv.Apply(xCoords[i], yCoords[i])
		col, row = math.RoundToEven(col), math.RoundToEven(row)
		if !inInt32Range(col) || !inInt32Range(row) {
			return nil, nil, fmt.Errorf("coordinate (%v, %v) maps to pixel (%v, %v) outside the int32 range", xCoords[i], yCoords[i], col, row)
		}
		cols[i] = int32(col)
		rows[i] = int32(row)
	}
	return cols, rows, nil
}

// inInt32Range is false for NaN and infinities.
func inInt32Range(v float64) bool {
	return v >= math.MinInt32 && v <= math.MaxInt32
}
