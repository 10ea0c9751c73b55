package processor

import (
	"testing"

	"github.com/nci/satlib/utils"
)

var testTransform = utils.Affine{A: 30, C: 100, E: -30, F: 20}

// testBand builds a 1x2x2 (time, y, x) band on the shared test grid.
func testBand(t *testing.T, data utils.Raster, attrs utils.Attrs) *utils.DataArray {
	coords := map[string][]float64{"time": {0}, "y": {20, -10}, "x": {100, 130}}
	da, err := utils.NewDataArray(data, coords, []string{"time", "y", "x"}, "EPSG:32610", testTransform, &utils.RasterOptions{Attrs: attrs})
	if err != nil {
		t.Fatalf("failed to create band: %v", err)
	}
	return da
}

func sceneAttrs() utils.Attrs {
	return utils.Attrs{
		"cloud_cover": 3.5,
		"date":        "2024-07-20",
		"day":         202.0,
		"target_lat":  47.6,
		"target_lon":  -122.3,
		"sensor":      "OLI",
	}
}

func testDataset(t *testing.T, fmask []uint8) *Dataset {
	bands := map[string]*utils.DataArray{
		"B04":   testBand(t, &utils.UInt16Raster{Data: []uint16{1, 2, 3, 4}}, sceneAttrs()),
		"B05":   testBand(t, &utils.UInt16Raster{Data: []uint16{40, 30, 20, 10}}, sceneAttrs()),
		"B06":   testBand(t, &utils.UInt16Raster{Data: []uint16{7, 7, 7, 9}}, sceneAttrs()),
		"fmask": testBand(t, &utils.ByteRaster{Data: fmask}, sceneAttrs()),
	}
	ds, err := MakeDataset(bands)
	if err != nil {
		t.Fatalf("MakeDataset failed: %v", err)
	}
	return ds
}

func floatsEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
