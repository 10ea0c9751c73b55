package utils

import (
	"fmt"
	"io/ioutil"
	"time"

	"gopkg.in/yaml.v2"
)

// SceneMetadata is the georeferencing and the scalar attributes read
// from a scene sidecar document.
type SceneMetadata struct {
	CRS       string
	Transform Affine
	Attrs     Attrs
}

// LoadSceneMetadata reads a YAML sidecar such as
//
//	crs: EPSG:32610
//	geotransform: [499980, 30, 0, 5500020, 0, -30]
//	cloud_cover: 12.5
//	date: 2024-07-20
//
// The crs and geotransform keys set the georeferencing; every other
// scalar key becomes an attribute.
func LoadSceneMetadata(filename string) (*SceneMetadata, error) {
	rawData, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	md := make(map[string]interface{})
	err = yaml.Unmarshal(rawData, &md)
	if err != nil {
		return nil, fmt.Errorf("Error parsing scene metadata %s: %v", filename, err)
	}

	scene := &SceneMetadata{Attrs: Attrs{}}
	for key, raw := range md {
		switch key {
		case "crs":
			crs, ok := raw.(string)
			if !ok {
				return nil, fmt.Errorf("crs in %s is not a string: %v", filename, raw)
			}
			scene.CRS = crs

		case "geotransform":
			items, ok := raw.([]interface{})
			if !ok {
				return nil, fmt.Errorf("geotransform in %s is not a list: %v", filename, raw)
			}
			geot := make([]float64, len(items))
			for i, item := range items {
				v, ok := toFloat(item)
				if !ok {
					return nil, fmt.Errorf("geotransform in %s has a non numeric value: %v", filename, item)
				}
				geot[i] = v
			}
			scene.Transform, err = AffineFromGeoTransform(geot)
			if err != nil {
				return nil, fmt.Errorf("%s: %v", filename, err)
			}

		default:
			switch v := raw.(type) {
			case string, bool, float64:
				scene.Attrs[key] = v
			case int:
				scene.Attrs[key] = float64(v)
			case int64:
				scene.Attrs[key] = float64(v)
			case time.Time:
				scene.Attrs[key] = v.Format("2006-01-02")
			}
		}
	}
	return scene, nil
}

func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float64:
		return t, true
	}
	return 0, false
}
