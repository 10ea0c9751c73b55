package utils

import (
	"fmt"
	"strings"
)

const DefaultRasterName = "name_here"

// Attrs holds the scalar metadata of a raster, e.g. date, cloud_cover,
// target_lat.
type Attrs map[string]interface{}

func (a Attrs) Copy() Attrs {
	out := make(Attrs, len(a))
	for k, v := range a {
		if s, ok := v.([]string); ok {
			v = append([]string(nil), s...)
		}
		out[k] = v
	}
	return out
}

// DataArray is a labeled, georeferenced raster: a typed pixel buffer
// plus its dimension names, coordinate axes, CRS, affine transform and
// attributes.
type DataArray struct {
	Name      string
	Dims      []string
	Shape     []int
	Coords    map[string][]float64
	Attrs     Attrs
	CRS       string
	Transform Affine
	Data      Raster

	hasNoData bool
}

type RasterOptions struct {
	Attrs  Attrs
	NoData *float64
	Name   string
}

// NewDataArray wraps data with its coordinates, dimension names, CRS and
// transform. Every dimension needs a coordinate and the coordinate
// lengths must multiply out to the number of pixels.
func NewDataArray(data Raster, coords map[string][]float64, dims []string, crs string, transform Affine, opts *RasterOptions) (*DataArray, error) {
	if data == nil {
		return nil, fmt.Errorf("raster data is nil")
	}
	if len(dims) == 0 {
		return nil, fmt.Errorf("raster needs at least one dimension")
	}

	shape := make([]int, len(dims))
	size := 1
	for i, dim := range dims {
		c, ok := coords[dim]
		if !ok {
			return nil, fmt.Errorf("dimension %q has no coordinate", dim)
		}
		shape[i] = len(c)
		size *= len(c)
	}
	if size != data.Len() {
		return nil, fmt.Errorf("coordinate shape %v does not match %d pixels", shape, data.Len())
	}

	if strings.HasPrefix(strings.ToUpper(crs), "EPSG:") {
		if _, err := ExtractEPSGCode(crs); err != nil {
			return nil, fmt.Errorf("invalid CRS %q: %v", crs, err)
		}
	}

	da := &DataArray{
		Name:      DefaultRasterName,
		Dims:      append([]string(nil), dims...),
		Shape:     shape,
		Coords:    make(map[string][]float64, len(dims)),
		Attrs:     Attrs{},
		CRS:       crs,
		Transform: transform,
		Data:      CloneRaster(data),
	}
	for _, dim := range dims {
		da.Coords[dim] = append([]float64(nil), coords[dim]...)
	}
	da.syncRasterShape()

	if opts != nil {
		if len(opts.Name) > 0 {
			da.Name = opts.Name
		}
		for k, v := range opts.Attrs.Copy() {
			da.Attrs[k] = v
		}
		if opts.NoData != nil {
			da.SetNoData(*opts.NoData)
		}
	}
	return da, nil
}

// syncRasterShape keeps the raster's Height/Width in step with the last
// two dimensions.
func (da *DataArray) syncRasterShape() {
	height, width := 1, 1
	switch n := len(da.Shape); {
	case n >= 2:
		height, width = da.Shape[n-2], da.Shape[n-1]
	case n == 1:
		width = da.Shape[0]
	}
	setRasterShape(da.Data, height, width)
}

// SetNoData registers v as the value marking missing pixels.
func (da *DataArray) SetNoData(v float64) {
	setRasterNoData(da.Data, v)
	da.hasNoData = true
}

func (da *DataArray) NoData() (float64, bool) {
	return da.Data.GetNoData(), da.hasNoData
}

// Copy returns a deep copy of da.
func (da *DataArray) Copy() *DataArray {
	out := &DataArray{
		Name:      da.Name,
		Dims:      append([]string(nil), da.Dims...),
		Shape:     append([]int(nil), da.Shape...),
		Coords:    make(map[string][]float64, len(da.Coords)),
		Attrs:     da.Attrs.Copy(),
		CRS:       da.CRS,
		Transform: da.Transform,
		Data:      CloneRaster(da.Data),
		hasNoData: da.hasNoData,
	}
	for k, v := range da.Coords {
		out.Coords[k] = append([]float64(nil), v...)
	}
	return out
}

// Squeeze returns a copy of da without its length-1 dimensions.
func (da *DataArray) Squeeze() *DataArray {
	out := da.Copy()
	out.Dims = out.Dims[:0]
	out.Shape = out.Shape[:0]
	for i, dim := range da.Dims {
		if da.Shape[i] == 1 {
			delete(out.Coords, dim)
			continue
		}
		out.Dims = append(out.Dims, dim)
		out.Shape = append(out.Shape, da.Shape[i])
	}
	out.syncRasterShape()
	return out
}

// Coord returns the coordinate values along dim.
func (da *DataArray) Coord(dim string) ([]float64, error) {
	c, ok := da.Coords[dim]
	if !ok {
		return nil, fmt.Errorf("raster %q has no %q coordinate", da.Name, dim)
	}
	return c, nil
}

// SameGrid reports whether da and other share shape, CRS and transform.
func (da *DataArray) SameGrid(other *DataArray) bool {
	if len(da.Shape) != len(other.Shape) {
		return false
	}
	for i := range da.Shape {
		if da.Shape[i] != other.Shape[i] || da.Dims[i] != other.Dims[i] {
			return false
		}
	}
	return da.CRS == other.CRS && da.Transform == other.Transform
}
