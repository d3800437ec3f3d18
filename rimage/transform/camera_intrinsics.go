// Package transform holds camera geometry: stereo camera parameters as shipped with the dataset
// and the matrices derived from them.
package transform

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/mat"
)

// ErrMalformedCameraFile is wrapped by every MalformedCameraFileError.
var ErrMalformedCameraFile = errors.New("malformed camera file")

// MalformedCameraFileError reports a camera file missing a required field or holding an
// invalid value.
type MalformedCameraFileError struct {
	Field string
	Err   error
}

// NewMalformedCameraFileError returns an error for the given field.
func NewMalformedCameraFileError(field string, err error) error {
	return &MalformedCameraFileError{Field: field, Err: err}
}

func (e *MalformedCameraFileError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: field %q: %v", ErrMalformedCameraFile, e.Field, e.Err)
	}
	return fmt.Sprintf("%s: missing field %q", ErrMalformedCameraFile, e.Field)
}

// Unwrap lets errors.Is match ErrMalformedCameraFile and the underlying cause.
func (e *MalformedCameraFileError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMalformedCameraFile}
	}
	return []error{ErrMalformedCameraFile, e.Err}
}

// CameraParameters is the stereo camera description stored next to each frame. Fields are
// pointers so that absent keys can be told apart from zeros.
type CameraParameters struct {
	Intrinsic struct {
		Fx *float64 `json:"fx"`
		Fy *float64 `json:"fy"`
		U0 *float64 `json:"u0"`
		V0 *float64 `json:"v0"`
	} `json:"intrinsic"`
	Extrinsic struct {
		Baseline *float64 `json:"baseline"`
		Pitch    float64  `json:"pitch"`
		Roll     float64  `json:"roll"`
		Yaw      float64  `json:"yaw"`
		X        float64  `json:"x"`
		Y        float64  `json:"y"`
		Z        float64  `json:"z"`
	} `json:"extrinsic"`
}

// CheckValid reports the first required field that is missing.
func (params *CameraParameters) CheckValid() error {
	for _, f := range []struct {
		name string
		val  *float64
	}{
		{"intrinsic.fx", params.Intrinsic.Fx},
		{"intrinsic.fy", params.Intrinsic.Fy},
		{"intrinsic.u0", params.Intrinsic.U0},
		{"intrinsic.v0", params.Intrinsic.V0},
		{"extrinsic.baseline", params.Extrinsic.Baseline},
	} {
		if f.val == nil {
			return NewMalformedCameraFileError(f.name, nil)
		}
	}
	return nil
}

// CameraIntrinsics are the matrices a depth or flow network consumes.
type CameraIntrinsics struct {
	// K is the 4x4 homogeneous intrinsic matrix.
	K *mat.Dense
	// InvK is the Moore-Penrose pseudo-inverse of K.
	InvK *mat.Dense
	// StereoT translates the left camera onto the right one along x by the baseline.
	StereoT *mat.Dense
}

// NewCameraIntrinsics derives the intrinsic matrices from validated camera parameters.
func NewCameraIntrinsics(params *CameraParameters) (*CameraIntrinsics, error) {
	if err := params.CheckValid(); err != nil {
		return nil, err
	}
	k := identity(4)
	k.Set(0, 0, *params.Intrinsic.Fx)
	k.Set(1, 1, *params.Intrinsic.Fy)
	k.Set(0, 2, *params.Intrinsic.U0)
	k.Set(1, 2, *params.Intrinsic.V0)

	stereoT := identity(4)
	stereoT.Set(0, 3, *params.Extrinsic.Baseline)

	return &CameraIntrinsics{K: k, InvK: PseudoInverse(k), StereoT: stereoT}, nil
}

// ReadCameraIntrinsics decodes camera parameters and derives the intrinsic matrices.
func ReadCameraIntrinsics(r io.Reader) (*CameraIntrinsics, error) {
	var params CameraParameters
	if err := json.NewDecoder(r).Decode(&params); err != nil {
		return nil, NewMalformedCameraFileError("", errors.Wrap(err, "error parsing JSON string"))
	}
	return NewCameraIntrinsics(&params)
}

// NewCameraIntrinsicsFromJSON is ReadCameraIntrinsics over an in-memory document.
func NewCameraIntrinsicsFromJSON(data []byte) (*CameraIntrinsics, error) {
	return ReadCameraIntrinsics(bytes.NewReader(data))
}

// NewCameraIntrinsicsFromJSONFile takes in a file path to a JSON and turns it into CameraIntrinsics.
func NewCameraIntrinsicsFromJSONFile(jsonPath string) (*CameraIntrinsics, error) {
	//nolint:gosec
	jsonFile, err := os.Open(jsonPath)
	if err != nil {
		return nil, errors.Wrap(err, "error opening JSON file")
	}
	defer utils.UncheckedErrorFunc(jsonFile.Close)
	return ReadCameraIntrinsics(jsonFile)
}

// PixelToPoint back-projects pixel (x, y) at the given depth into camera coordinates.
func (ci *CameraIntrinsics) PixelToPoint(x, y, depth float64) (float64, float64, float64) {
	var p mat.VecDense
	p.MulVec(ci.InvK, mat.NewVecDense(4, []float64{x, y, 1, 1}))
	return p.AtVec(0) * depth, p.AtVec(1) * depth, depth
}

// PointToPixel projects a camera space point onto the image plane. Points at zero depth
// project to (-1, -1).
func (ci *CameraIntrinsics) PointToPixel(x, y, z float64) (float64, float64) {
	if z == 0 {
		return -1, -1
	}
	var p mat.VecDense
	p.MulVec(ci.K, mat.NewVecDense(4, []float64{x / z, y / z, 1, 1}))
	return p.AtVec(0), p.AtVec(1)
}

// Singular values below this fraction of the largest are treated as zero.
const pinvRcond = 1e-15

// PseudoInverse returns the Moore-Penrose pseudo-inverse of m computed from its SVD.
func PseudoInverse(m mat.Matrix) *mat.Dense {
	r, c := m.Dims()
	var svd mat.SVD
	if ok := svd.Factorize(m, mat.SVDFull); !ok {
		return mat.NewDense(c, r, nil)
	}
	rank := svd.Rank(pinvRcond)
	if rank == 0 {
		return mat.NewDense(c, r, nil)
	}
	var inv mat.Dense
	svd.SolveTo(&inv, identity(r), rank)
	return &inv
}

func identity(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}
