package geometry

// Face indexes one of the six orthogonal sides of the cube.
type Face int

const (
	FacePosX Face = iota
	FaceNegX
	FacePosY
	FaceNegY
	FacePosZ
	FaceNegZ
)

// NumFaces is the number of faces on a cube.
const NumFaces = 6

// FaceBasis holds a face's outward normal and its local right/up axes.
type FaceBasis struct {
	N, R, U Vec3
}

// faceBases is the fixed basis table from spec §4.1. Order matters: the
// face index doubles as the sign+axis lookup used by the step operator.
var faceBases = [NumFaces]FaceBasis{
	FacePosX: {N: Vec3{1, 0, 0}, R: Vec3{0, 0, -1}, U: Vec3{0, 1, 0}},
	FaceNegX: {N: Vec3{-1, 0, 0}, R: Vec3{0, 0, 1}, U: Vec3{0, 1, 0}},
	FacePosY: {N: Vec3{0, 1, 0}, R: Vec3{1, 0, 0}, U: Vec3{0, 0, -1}},
	FaceNegY: {N: Vec3{0, -1, 0}, R: Vec3{1, 0, 0}, U: Vec3{0, 0, 1}},
	FacePosZ: {N: Vec3{0, 0, 1}, R: Vec3{1, 0, 0}, U: Vec3{0, 1, 0}},
	FaceNegZ: {N: Vec3{0, 0, -1}, R: Vec3{-1, 0, 0}, U: Vec3{0, 1, 0}},
}

// Basis returns the fixed basis for a face.
func (f Face) Basis() FaceBasis { return faceBases[f] }

// faceFromAxis picks the face whose outward normal matches the dominant
// axis of v, ties broken X > Y > Z per spec §4.1 step 5.
func faceFromAxis(v Vec3) (face Face, maxAbs int) {
	ax, ay, az := absInt(v.X), absInt(v.Y), absInt(v.Z)
	switch {
	case ax >= ay && ax >= az:
		if v.X >= 0 {
			return FacePosX, ax
		}
		return FaceNegX, ax
	case ay >= az:
		if v.Y >= 0 {
			return FacePosY, ay
		}
		return FaceNegY, ay
	default:
		if v.Z >= 0 {
			return FacePosZ, az
		}
		return FaceNegZ, az
	}
}
