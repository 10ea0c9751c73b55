package processor

import (
	"fmt"
	"math"
	"strings"

	goeval "github.com/edisonguo/govaluate"

	"github.com/nci/satlib/utils"
)

// ParseBandExpression compiles expr and checks that every variable it
// uses names a dataset variable.
func ParseBandExpression(ds *Dataset, expr string) (*goeval.EvaluableExpression, []string, error) {
	if len(strings.TrimSpace(expr)) == 0 {
		return nil, nil, fmt.Errorf("band expression is empty")
	}

	parsed, err := goeval.NewEvaluableExpression(expr)
	if err != nil {
		return nil, nil, err
	}

	var varNames []string
	seen := make(map[string]struct{})
	for _, token := range parsed.Tokens() {
		if token.Kind != goeval.VARIABLE {
			continue
		}
		varName, ok := token.Value.(string)
		if !ok {
			return nil, nil, fmt.Errorf("variable token '%v' failed to cast string", token.Value)
		}
		if _, found := ds.Vars[varName]; !found {
			return nil, nil, fmt.Errorf("variable %v is not supported. Valid variables are %v", varName, ds.Names)
		}
		if _, found := seen[varName]; !found {
			seen[varName] = struct{}{}
			varNames = append(varNames, varName)
		}
	}
	return parsed, varNames, nil
}

// EvalBandExpression evaluates expr pixel by pixel over the dataset
// variables, e.g. "(B05 - B04) / (B05 + B04)". Missing inputs and non
// numeric results give NaN.
func EvalBandExpression(ds *Dataset, name, expr string) (*utils.DataArray, error) {
	parsed, varNames, err := ParseBandExpression(ds, expr)
	if err != nil {
		return nil, err
	}

	nPix := 1
	for _, n := range ds.Shape {
		nPix *= n
	}

	type input struct {
		name      string
		data      utils.Raster
		noData    float64
		hasNoData bool
	}
	inputs := make([]input, len(varNames))
	for i, v := range varNames {
		da := ds.Vars[v]
		if da.Data.Len() != nPix {
			return nil, fmt.Errorf("variable %s has %d pixels, expecting %d", v, da.Data.Len(), nPix)
		}
		noData, hasNoData := da.NoData()
		inputs[i] = input{name: v, data: da.Data, noData: noData, hasNoData: hasNoData}
	}

	out := &utils.Float32Raster{Data: make([]float32, nPix)}
	nan := float32(math.NaN())
	params := make(map[string]interface{}, len(inputs))
	for p := 0; p < nPix; p++ {
		missing := false
		for _, in := range inputs {
			v := in.data.Value(p)
			if utils.IsMissing(v, in.noData, in.hasNoData) {
				missing = true
				break
			}
			params[in.name] = v
		}
		if missing {
			out.Data[p] = nan
			continue
		}

		res, err := parsed.Evaluate(params)
		if err != nil {
			out.Data[p] = nan
			continue
		}
		val, ok := res.(float64)
		if !ok {
			out.Data[p] = nan
			continue
		}
		out.Data[p] = float32(val)
	}

	return utils.NewDataArray(out, ds.Coords, ds.Dims, ds.CRS, ds.Transform,
		&utils.RasterOptions{Name: name, Attrs: utils.Attrs{"expression": expr}})
}
