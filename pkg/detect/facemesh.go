package detect

import (
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/focuswatch/go-focuswatch/pkg/landmark"
)

// FaceMeshConfig holds paths and thresholds for the on-device mesh pipeline.
type FaceMeshConfig struct {
	// FaceModelPath is the YuNet face detection ONNX model.
	FaceModelPath string
	// MeshModelPath is the face-mesh landmark ONNX model (478 points).
	MeshModelPath string
	// ConfidenceThresh rejects weak face candidates.
	ConfidenceThresh float32
	// MeshInputSize is the square input resolution of the mesh network.
	MeshInputSize int
	// CropPadding expands the face box before cropping, as a fraction of
	// box size. The mesh network expects some forehead and chin context.
	CropPadding float64
}

// DefaultFaceMeshConfig returns production defaults.
func DefaultFaceMeshConfig() FaceMeshConfig {
	return FaceMeshConfig{
		FaceModelPath:    "models/face_detection_yunet.onnx",
		MeshModelPath:    "models/face_mesh_with_iris.onnx",
		ConfidenceThresh: 0.7,
		MeshInputSize:    192,
		CropPadding:      0.25,
	}
}

// FaceMesh runs landmark detection locally: YuNet finds the face box, the
// mesh network regresses all landmark points inside the crop.
type FaceMesh struct {
	mu       sync.Mutex
	detector gocv.FaceDetectorYN
	mesh     gocv.Net
	config   FaceMeshConfig
	scheme   landmark.Scheme
}

// NewFaceMesh loads both models and prepares the pipeline.
func NewFaceMesh(cfg FaceMeshConfig, scheme landmark.Scheme) (*FaceMesh, error) {
	for _, path := range []string{cfg.FaceModelPath, cfg.MeshModelPath} {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("detect: model file not found: %s", path)
		}
	}

	detector := gocv.NewFaceDetectorYNWithParams(
		cfg.FaceModelPath,
		"",
		image.Pt(320, 320), // resized per frame
		cfg.ConfidenceThresh,
		0.3,  // NMS threshold
		5000, // top K
		int(gocv.NetBackendDefault),
		int(gocv.NetTargetCPU),
	)

	mesh := gocv.ReadNetFromONNX(cfg.MeshModelPath)
	if mesh.Empty() {
		detector.Close()
		return nil, fmt.Errorf("detect: failed to load mesh model from %s", cfg.MeshModelPath)
	}
	mesh.SetPreferableBackend(gocv.NetBackendDefault)
	mesh.SetPreferableTarget(gocv.NetTargetCPU)

	return &FaceMesh{
		detector: detector,
		mesh:     mesh,
		config:   cfg,
		scheme:   scheme,
	}, nil
}

// Detect runs the two-stage pipeline on one JPEG frame.
func (f *FaceMesh) Detect(jpeg []byte) (*landmark.Set, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	img, err := gocv.IMDecode(jpeg, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("detect: decode image: %w", err)
	}
	defer img.Close()
	if img.Empty() {
		return nil, fmt.Errorf("detect: empty image")
	}

	crop, ok := f.bestFaceCrop(img)
	if !ok {
		return nil, ErrNoFace
	}

	points, err := f.meshPoints(img, crop)
	if err != nil {
		return nil, err
	}
	set, err := landmark.NewSet(points, f.scheme, img.Cols(), img.Rows())
	if err != nil {
		return nil, fmt.Errorf("detect: invalid landmark set: %w", err)
	}
	return set, nil
}

// bestFaceCrop runs YuNet and returns the padded box of the highest-scoring
// face, clamped to the frame.
func (f *FaceMesh) bestFaceCrop(img gocv.Mat) (image.Rectangle, bool) {
	f.detector.SetInputSize(image.Pt(img.Cols(), img.Rows()))

	faces := gocv.NewMat()
	defer faces.Close()
	f.detector.Detect(img, &faces)

	best := image.Rectangle{}
	bestScore := float32(0)
	for r := 0; r < faces.Rows(); r++ {
		// YuNet row: x, y, w, h, 5 landmark pairs, score.
		score := faces.GetFloatAt(r, 14)
		if score < f.config.ConfidenceThresh || score <= bestScore {
			continue
		}
		x := float64(faces.GetFloatAt(r, 0))
		y := float64(faces.GetFloatAt(r, 1))
		w := float64(faces.GetFloatAt(r, 2))
		h := float64(faces.GetFloatAt(r, 3))

		padX := w * f.config.CropPadding
		padY := h * f.config.CropPadding
		rect := image.Rect(
			int(x-padX), int(y-padY),
			int(x+w+padX), int(y+h+padY),
		).Intersect(image.Rect(0, 0, img.Cols(), img.Rows()))
		if rect.Empty() {
			continue
		}
		best = rect
		bestScore = score
	}
	return best, bestScore > 0
}

// meshPoints runs the mesh network on the crop and maps its output back to
// normalized full-frame coordinates.
func (f *FaceMesh) meshPoints(img gocv.Mat, crop image.Rectangle) ([]landmark.Point, error) {
	region := img.Region(crop)
	defer region.Close()

	size := image.Pt(f.config.MeshInputSize, f.config.MeshInputSize)
	blob := gocv.BlobFromImage(region, 1.0/255.0, size, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	f.mesh.SetInput(blob, "")
	output := f.mesh.Forward("")
	defer output.Close()

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("detect: read mesh output: %w", err)
	}
	want := f.scheme.Count() * 3
	if len(data) < want {
		return nil, fmt.Errorf("detect: mesh output has %d values, want %d", len(data), want)
	}

	// Mesh output is (x, y, z) triples in input-crop pixel space. Map back
	// through the crop into normalized frame coordinates; z stays relative
	// to the crop width, matching the x scale.
	scaleX := float64(crop.Dx()) / float64(f.config.MeshInputSize)
	scaleY := float64(crop.Dy()) / float64(f.config.MeshInputSize)
	frameW := float64(img.Cols())
	frameH := float64(img.Rows())

	points := make([]landmark.Point, f.scheme.Count())
	for i := range points {
		x := float64(data[i*3])*scaleX + float64(crop.Min.X)
		y := float64(data[i*3+1])*scaleY + float64(crop.Min.Y)
		z := float64(data[i*3+2]) * scaleX
		points[i] = landmark.Point{
			X: x / frameW,
			Y: y / frameH,
			Z: z / frameW,
		}
	}
	return points, nil
}

// Close releases both networks.
func (f *FaceMesh) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detector.Close()
	f.mesh.Close()
	return nil
}
