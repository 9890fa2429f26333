package landmark

// Feature names a semantically fixed facial point. Estimators ask a Scheme
// for features by name; the scheme maps them to detector-specific indices.
type Feature int

const (
	NoseTip Feature = iota
	Chin
	LeftEyeOuter
	LeftEyeInner
	LeftEyeTop
	LeftEyeBottom
	RightEyeOuter
	RightEyeInner
	RightEyeTop
	RightEyeBottom
	MouthLeft
	MouthRight
)

// Eye selects one of the two eyes. Left and right are in image terms
// (left = the eye on the left side of an unmirrored frame).
type Eye int

const (
	LeftEye Eye = iota
	RightEye
)

// Scheme maps named features to indices in a detector's landmark layout.
type Scheme interface {
	// Name identifies the scheme, for diagnostics.
	Name() string

	// Count is the fixed number of points a conforming Set must carry.
	Count() int

	// Index resolves a named feature to a point index.
	// ok is false when the scheme has no point for the feature.
	Index(f Feature) (idx int, ok bool)

	// Iris returns the indices whose centroid is the iris center of the
	// given eye. Empty when the scheme carries no iris refinement.
	Iris(eye Eye) []int
}

// faceMesh is the MediaPipe FaceMesh layout with iris refinement:
// 468 mesh points plus 5 iris points per eye.
type faceMesh struct{}

// FaceMesh returns the MediaPipe FaceMesh scheme (478 points, iris refined).
func FaceMesh() Scheme { return faceMesh{} }

// FaceMeshPointCount is the point count of the refined FaceMesh layout.
const FaceMeshPointCount = 478

var faceMeshIndices = map[Feature]int{
	NoseTip:        1,
	Chin:           152,
	LeftEyeOuter:   33,
	LeftEyeInner:   133,
	LeftEyeTop:     159,
	LeftEyeBottom:  145,
	RightEyeOuter:  263,
	RightEyeInner:  362,
	RightEyeTop:    386,
	RightEyeBottom: 374,
	MouthLeft:      61,
	MouthRight:     291,
}

var (
	faceMeshLeftIris  = []int{468, 469, 470, 471, 472}
	faceMeshRightIris = []int{473, 474, 475, 476, 477}
)

func (faceMesh) Name() string { return "facemesh" }

func (faceMesh) Count() int { return FaceMeshPointCount }

func (faceMesh) Index(f Feature) (int, bool) {
	idx, ok := faceMeshIndices[f]
	return idx, ok
}

func (faceMesh) Iris(eye Eye) []int {
	if eye == LeftEye {
		return faceMeshLeftIris
	}
	return faceMeshRightIris
}
