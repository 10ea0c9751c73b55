package processor

import (
	"errors"
	"fmt"
	"sort"

	"github.com/nci/satlib/utils"
)

var (
	ErrEmptyDataset = errors.New("dataset needs at least one band")
	ErrBandMismatch = errors.New("band does not share the dataset grid")
	ErrVarNotFound  = errors.New("variable not found in dataset")
)

// Dataset is a set of named rasters sharing one grid. The grid,
// CRS, transform and attributes come from the first band name in sorted
// order.
type Dataset struct {
	Vars      map[string]*utils.DataArray
	Names     []string
	Dims      []string
	Shape     []int
	Coords    map[string][]float64
	Attrs     utils.Attrs
	CRS       string
	Transform utils.Affine
}

// MakeDataset combines single band rasters keyed by band name, e.g.
// "B03" or "fmask". Every band must share the grid of the first one.
func MakeDataset(bands map[string]*utils.DataArray) (*Dataset, error) {
	if len(bands) == 0 {
		return nil, ErrEmptyDataset
	}

	names := make([]string, 0, len(bands))
	for name, band := range bands {
		if band == nil {
			return nil, fmt.Errorf("band %s is nil", name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	first := bands[names[0]]
	for _, name := range names[1:] {
		if !bands[name].SameGrid(first) {
			return nil, fmt.Errorf("%w: %s differs from %s", ErrBandMismatch, name, names[0])
		}
	}

	ds := &Dataset{
		Vars:      make(map[string]*utils.DataArray, len(bands)),
		Names:     names,
		Dims:      append([]string(nil), first.Dims...),
		Shape:     append([]int(nil), first.Shape...),
		Coords:    make(map[string][]float64, len(first.Coords)),
		Attrs:     first.Attrs.Copy(),
		CRS:       first.CRS,
		Transform: first.Transform,
	}
	for k, v := range first.Coords {
		ds.Coords[k] = append([]float64(nil), v...)
	}
	for _, name := range names {
		band := bands[name].Copy()
		band.Name = name
		ds.Vars[name] = band
	}
	return ds, nil
}

func (ds *Dataset) Get(name string) (*utils.DataArray, error) {
	da, ok := ds.Vars[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrVarNotFound, name)
	}
	return da, nil
}

// Squeeze drops the length-1 dimensions of the dataset and of every
// variable.
func (ds *Dataset) Squeeze() *Dataset {
	out := &Dataset{
		Vars:      make(map[string]*utils.DataArray, len(ds.Vars)),
		Names:     append([]string(nil), ds.Names...),
		Coords:    make(map[string][]float64, len(ds.Coords)),
		Attrs:     ds.Attrs.Copy(),
		CRS:       ds.CRS,
		Transform: ds.Transform,
	}
	for i, dim := range ds.Dims {
		if ds.Shape[i] == 1 {
			continue
		}
		out.Dims = append(out.Dims, dim)
		out.Shape = append(out.Shape, ds.Shape[i])
		out.Coords[dim] = append([]float64(nil), ds.Coords[dim]...)
	}
	for name, da := range ds.Vars {
		out.Vars[name] = da.Squeeze()
	}
	return out
}
