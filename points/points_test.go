package points_test

import (
	"unsafe"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/ironsmile/voronoi-frames/points"
)

var _ = Describe("Point layout", func() {
	It("matches the std430 Point struct", func() {
		var p points.Point
		Expect(unsafe.Sizeof(p)).To(BeEquivalentTo(32))
		Expect(unsafe.Offsetof(p.Pos)).To(BeEquivalentTo(0))
		Expect(unsafe.Offsetof(p.Dir)).To(BeEquivalentTo(8))
		Expect(unsafe.Offsetof(p.Color)).To(BeEquivalentTo(16))
	})

	It("matches the std430 StaticPoint struct", func() {
		var p points.StaticPoint
		Expect(unsafe.Sizeof(p)).To(BeEquivalentTo(32))
		Expect(unsafe.Offsetof(p.Pos)).To(BeEquivalentTo(0))
		Expect(unsafe.Offsetof(p.Color)).To(BeEquivalentTo(16))
	})
})

var _ = Describe("Generate", func() {
	const aspect = float32(1920) / 1080

	It("returns the requested number of points", func() {
		Expect(points.NewSource(1).Generate(30, aspect)).To(HaveLen(30))
		Expect(points.NewSource(1).GenerateStatic(7, aspect)).To(HaveLen(7))
		Expect(points.NewSource(1).Generate(0, aspect)).To(BeEmpty())
	})

	It("keeps every point inside the expected ranges", func() {
		for _, p := range points.NewSource(42).Generate(500, aspect) {
			Expect(p.Pos[0]).To(BeNumerically(">=", 0))
			Expect(p.Pos[0]).To(BeNumerically("<", aspect))
			Expect(p.Pos[1]).To(BeNumerically(">=", 0))
			Expect(p.Pos[1]).To(BeNumerically("<", 1))

			Expect(p.Dir[0]).To(BeNumerically(">=", -1))
			Expect(p.Dir[0]).To(BeNumerically("<", 1))
			Expect(p.Dir[1]).To(BeNumerically(">=", -1))
			Expect(p.Dir[1]).To(BeNumerically("<", 1))

			for _, c := range p.Color[:3] {
				Expect(c).To(BeNumerically(">=", 0))
				Expect(c).To(BeNumerically("<", 1))
			}
			Expect(p.Color[3]).To(BeEquivalentTo(1))
		}
	})

	It("is repeatable for a fixed seed", func() {
		a := points.NewSource(7).Generate(16, aspect)
		b := points.NewSource(7).Generate(16, aspect)
		Expect(a).To(Equal(b))

		c := points.NewSource(8).Generate(16, aspect)
		Expect(c).NotTo(Equal(a))
	})

	It("keeps static points inside the visible area", func() {
		for _, p := range points.NewSource(3).GenerateStatic(200, aspect) {
			Expect(p.Pos[0]).To(BeNumerically("<", aspect))
			Expect(p.Pos[1]).To(BeNumerically("<", 1))
		}
	})
})
