package transformpipeline

import (
	"image"

	"github.com/drivescene/scapes/rimage"
)

// Raw 16 bit disparity encodes d as 256*d + 1; zero marks an invalid pixel.
const disparityEncoding = 256.0

// ConvertDisparity turns a raw disparity plane into scaled disparity, or into metric depth when
// disparityOut is false. Invalid pixels are 0, and so is the rotation fill. In depth mode a band
// along the bottom (H/10 rows) and both sides (W/20 columns each) is cleared.
func ConvertDisparity(raw *rimage.Plane, scale float64, disparityOut bool, calib DepthCalibration) *rimage.DepthMap {
	w, h := raw.Width(), raw.Height()
	dm := rimage.NewDepthMap(w, h)
	backing := dm.Matrix().RawMatrix()
	data := raw.Data()
	focalBaseline := calib.BaselineM * calib.FocalPx
	for y := 0; y < h; y++ {
		row := backing.Data[y*backing.Stride : y*backing.Stride+w]
		for x := range row {
			v := data[y*w+x]
			if v <= 0 {
				continue
			}
			d := scale * float64(v-1) / disparityEncoding
			if d <= 0 {
				continue
			}
			if disparityOut {
				row[x] = d
			} else {
				row[x] = focalBaseline / d
			}
		}
	}

	if !disparityOut {
		side := w / 20
		bottom := h / 10
		dm.ZeroRegion(image.Rect(0, h-bottom, w, h))
		dm.ZeroRegion(image.Rect(0, 0, side, h))
		dm.ZeroRegion(image.Rect(w-side, 0, w, h))
	}
	return dm
}
