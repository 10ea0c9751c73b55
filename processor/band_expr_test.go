package processor

import (
	"math"
	"testing"

	"github.com/nci/satlib/utils"
)

func TestEvalBandExpression(t *testing.T) {
	b04 := testBand(t, &utils.UInt16Raster{Data: []uint16{1, 2, 0, 4}}, nil)
	b04.SetNoData(0)
	b05 := testBand(t, &utils.UInt16Raster{Data: []uint16{3, 2, 5, 4}}, nil)
	ds, err := MakeDataset(map[string]*utils.DataArray{"B04": b04, "B05": b05})
	if err != nil {
		t.Fatalf("MakeDataset failed: %v", err)
	}

	ndvi, err := EvalBandExpression(ds, "ndvi", "(B05 - B04) / (B05 + B04)")
	if err != nil {
		t.Fatalf("EvalBandExpression failed: %v", err)
	}

	data := ndvi.Data.(*utils.Float32Raster).Data
	if data[0] != 0.5 || data[1] != 0 || !math.IsNaN(float64(data[2])) || data[3] != 0 {
		t.Errorf("unexpected ndvi %v", data)
	}
	if ndvi.Name != "ndvi" || ndvi.Attrs["expression"] != "(B05 - B04) / (B05 + B04)" {
		t.Errorf("unexpected name or attributes: %s %v", ndvi.Name, ndvi.Attrs)
	}
	if ndvi.CRS != ds.CRS || ndvi.Transform != ds.Transform || len(ndvi.Dims) != len(ds.Dims) {
		t.Errorf("expression result is not on the dataset grid")
	}
}

func TestParseBandExpression(t *testing.T) {
	ds := testDataset(t, []uint8{0, 0, 0, 0})

	_, vars, err := ParseBandExpression(ds, "B05 * 2 + B05 - B04")
	if err != nil {
		t.Fatalf("ParseBandExpression failed: %v", err)
	}
	if len(vars) != 2 || vars[0] != "B05" || vars[1] != "B04" {
		t.Errorf("unexpected variables %v", vars)
	}

	if _, _, err := ParseBandExpression(ds, "B99 * 2"); err == nil {
		t.Errorf("expecting an error for an unknown variable")
	}
	if _, _, err := ParseBandExpression(ds, "  "); err == nil {
		t.Errorf("expecting an error for an empty expression")
	}
	if _, _, err := ParseBandExpression(ds, "(B05 - "); err == nil {
		t.Errorf("expecting an error for a broken expression")
	}
}
