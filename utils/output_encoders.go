package utils

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strconv"
	"strings"
)

// EncodePNG encodes one or three byte rasters as a PNG. Three rasters
// are written as opaque red, green and blue planes. A single raster is
// looked up in palette, with 0xFF left transparent; without a palette
// it is written as gray.
func EncodePNG(br []*ByteRaster, palette []color.RGBA) ([]byte, error) {
	buf := new(bytes.Buffer)
	if len(br) == 0 || br[0] == nil {
		return []byte{}, fmt.Errorf("No raster to encode")
	}

	switch len(br) {
	case 1:
		raster := br[0]
		if len(raster.Data) != raster.Width*raster.Height {
			return []byte{}, fmt.Errorf("raster holds %d pixels, expected %dx%d", len(raster.Data), raster.Height, raster.Width)
		}

		if palette == nil {
			canvas := image.NewGray(image.Rect(0, 0, raster.Width, raster.Height))
			copy(canvas.Pix, raster.Data)
			err := png.Encode(buf, canvas)
			return buf.Bytes(), err
		}

		if len(palette) < 256 {
			return []byte{}, fmt.Errorf("palette needs 256 colours, got %d", len(palette))
		}
		canvas := image.NewRGBA(image.Rect(0, 0, raster.Width, raster.Height))
		for x := 0; x < raster.Width; x++ {
			for y := 0; y < raster.Height; y++ {
				if raster.Data[y*raster.Width+x] != 0xFF {
					canvas.Set(x, y, palette[raster.Data[y*raster.Width+x]])
				}
			}
		}
		err := png.Encode(buf, canvas)
		return buf.Bytes(), err

	case 3:
		rasterR := br[0]
		rasterG := br[1]
		rasterB := br[2]

		if rasterR == nil || rasterG == nil || rasterB == nil {
			return []byte{}, fmt.Errorf("At least one of the bands is nil")
		}
		if _, _, _, err := ValidateRasterSlice([]Raster{rasterR, rasterG, rasterB}); err != nil {
			return []byte{}, err
		}
		nPix := rasterR.Width * rasterR.Height
		if len(rasterR.Data) != nPix || len(rasterG.Data) != nPix || len(rasterB.Data) != nPix {
			return []byte{}, fmt.Errorf("Inconsistent band sizes")
		}

		canvas := image.NewRGBA(image.Rect(0, 0, rasterR.Width, rasterR.Height))
		var start int
		for i := 0; i < nPix; i++ {
			start = i * 4
			canvas.Pix[start] = rasterR.Data[i]
			canvas.Pix[start+1] = rasterG.Data[i]
			canvas.Pix[start+2] = rasterB.Data[i]
			canvas.Pix[start+3] = 0xff
		}
		err := png.Encode(buf, canvas)
		return buf.Bytes(), err

	default:
		return []byte{}, fmt.Errorf("Cannot encode other than 1 or 3 bands into a PNG: Received %d", len(br))
	}
}

// SplitBands cuts a multi-plane byte raster into one raster per plane.
func SplitBands(r *ByteRaster) ([]*ByteRaster, error) {
	plane := r.Height * r.Width
	if plane == 0 || len(r.Data)%plane != 0 {
		return nil, fmt.Errorf("raster of %d pixels is not a stack of %dx%d planes", len(r.Data), r.Height, r.Width)
	}

	out := make([]*ByteRaster, len(r.Data)/plane)
	for i := range out {
		out[i] = &ByteRaster{Data: r.Data[i*plane : (i+1)*plane], Height: r.Height, Width: r.Width, NoData: r.NoData}
	}
	return out, nil
}

// ExtractEPSGCode parses an SRS string and gets
// the EPSG code
func ExtractEPSGCode(srs string) (int, error) {
	if len(srs) < 6 || !strings.EqualFold(srs[:5], "EPSG:") {
		return 0, fmt.Errorf("not an EPSG code: %q", srs)
	}
	return strconv.Atoi(srs[5:])
}
