// Package points creates the seed points of the Voronoi diagram.
//
// The Go types in this package are uploaded verbatim into a storage buffer, so
// their memory layout must match the std430 layout of the structs declared in
// the shaders.
package points

import (
	"math/rand/v2"
	"time"

	"github.com/xlab/linmath"
)

// Point is a seed which moves over time. It matches the shaders' Point struct:
// pos at offset 0, dir at 8 and color at 16, 32 bytes in total.
type Point struct {
	Pos   linmath.Vec2
	Dir   linmath.Vec2
	Color linmath.Vec4
}

// StaticPoint is a seed which never moves. It matches the StaticPoint struct of
// the static fragment shader where the vec3 color is aligned to 16 bytes and the
// struct is padded up to 32 bytes.
type StaticPoint struct {
	Pos   linmath.Vec2
	_     [2]float32
	Color linmath.Vec3
	_     float32
}

// Source is the random source used for generating points. A fixed seed makes
// generation repeatable.
type Source struct {
	rng *rand.Rand
}

// NewSource returns a Source seeded with seed. A zero seed picks one from the
// current time.
func NewSource(seed uint64) *Source {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Source{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *Source) unit() float32 {
	return s.rng.Float32()
}

// signed returns a value in [-1, 1).
func (s *Source) signed() float32 {
	return s.unit()*2 - 1
}

func (s *Source) position(aspect float32) linmath.Vec2 {
	return linmath.Vec2{s.unit() * aspect, s.unit()}
}

// Generate returns n moving points. Positions are uniform in the visible,
// aspect corrected area [0, aspect) x [0, 1), direction components uniform in
// [-1, 1) and colors are random opaque RGB.
func (s *Source) Generate(n int, aspect float32) []Point {
	all := make([]Point, n)
	for i := range all {
		all[i] = Point{
			Pos:   s.position(aspect),
			Dir:   linmath.Vec2{s.signed(), s.signed()},
			Color: linmath.Vec4{s.unit(), s.unit(), s.unit(), 1},
		}
	}
	return all
}

// GenerateStatic returns n points for the variant without the update stage.
func (s *Source) GenerateStatic(n int, aspect float32) []StaticPoint {
	all := make([]StaticPoint, n)
	for i := range all {
		all[i] = StaticPoint{
			Pos:   s.position(aspect),
			Color: linmath.Vec3{s.unit(), s.unit(), s.unit()},
		}
	}
	return all
}
