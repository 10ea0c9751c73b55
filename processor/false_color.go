package processor

import (
	"fmt"
	"strconv"

	"github.com/nci/satlib/utils"
)

// FmaskVar is the dataset variable holding the quality flags.
const FmaskVar = "fmask"

// MakeFalseColor returns a histogram equalized 3x(y)x(x) byte composite
// with red, green and blue mapped to bandNames in order, e.g.
//
//	landsat654, err := MakeFalseColor(ds, []string{"B06", "B05", "B04"})
//
// The dataset must hold the three bands and an fmask variable.
func MakeFalseColor(ds *Dataset, bandNames []string) (*utils.DataArray, error) {
	return MakeFalseColorWithConfig(ds, bandNames, utils.DefaultCompositeConfig())
}

func MakeFalseColorWithConfig(ds *Dataset, bandNames []string, cfg *utils.CompositeConfig) (*utils.DataArray, error) {
	if len(bandNames) != 3 {
		return nil, fmt.Errorf("a false color image needs 3 bands, got %d", len(bandNames))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ds = ds.Squeeze()
	bands := make([]*utils.DataArray, len(bandNames))
	bandNums := make([]float64, len(bandNames))
	for i, name := range bandNames {
		band, err := ds.Get(name)
		if err != nil {
			return nil, err
		}
		num, err := bandNumber(name)
		if err != nil {
			return nil, err
		}
		bands[i] = band
		bandNums[i] = float64(num)
	}

	crs := ds.CRS
	transform := ds.Transform
	fmask, err := ds.Get(FmaskVar)
	if err != nil {
		return nil, err
	}
	boolMask, err := MakeSamplingMask(fmask.Data, cfg.Mask)
	if err != nil {
		return nil, err
	}
	nrows, ncols := boolMask.Height, boolMask.Width
	nPix := nrows * ncols

	bandValues := &utils.ByteRaster{Data: make([]uint8, 0, len(bandNames)*nPix), Height: nrows, Width: ncols}
	for i, band := range bands {
		if band.Data.Len() != nPix {
			return nil, fmt.Errorf("band %s has %d pixels, expecting %dx%d", bandNames[i], band.Data.Len(), nrows, ncols)
		}
		stretched, err := EqualizeHist(band.Data, boolMask, cfg.HistogramBins)
		if err != nil {
			return nil, fmt.Errorf("equalizing %s: %w", bandNames[i], err)
		}
		scaled, err := utils.ImgAsUbyte(stretched)
		if err != nil {
			return nil, fmt.Errorf("rescaling %s: %v", bandNames[i], err)
		}
		bandValues.Data = append(bandValues.Data, scaled...)
	}

	y, err := coordOf(ds, "y")
	if err != nil {
		return nil, err
	}
	x, err := coordOf(ds, "x")
	if err != nil {
		return nil, err
	}

	attrs := utils.Attrs{}
	for _, key := range cfg.KeepAttrs {
		if v, ok := ds.Attrs[key]; ok {
			attrs[key] = v
		}
	}
	attrs["history"] = cfg.History
	attrs["landsat_rgb_bands"] = append([]string(nil), bandNames...)

	coords := map[string][]float64{"band": bandNums, "y": y, "x": x}
	dims := []string{"band", "y", "x"}
	return utils.NewDataArray(bandValues, coords, dims, crs, transform, &utils.RasterOptions{Attrs: attrs})
}

// bandNumber parses the trailing digits of a band name: "B06" is 6.
func bandNumber(name string) (int, error) {
	i := len(name)
	for i > 0 && name[i-1] >= '0' && name[i-1] <= '9' {
		i--
	}
	if i == len(name) {
		return 0, fmt.Errorf("band name %q does not end with a band number", name)
	}
	return strconv.Atoi(name[i:])
}

func coordOf(ds *Dataset, dim string) ([]float64, error) {
	c, ok := ds.Coords[dim]
	if !ok {
		return nil, fmt.Errorf("dataset has no %q coordinate", dim)
	}
	return c, nil
}
