package gpu

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/cockroachdb/errors"
	"github.com/ironsmile/voronoi-frames/points"
	"github.com/ironsmile/voronoi-frames/shaders"
	"github.com/ironsmile/voronoi-frames/unsafer"
	"github.com/xlab/linmath"

	vk "github.com/vulkan-go/vulkan"
)

// The tests in this file need a Vulkan device and the compiled shaders. They
// are skipped when either is missing. `make test-gpu` runs them on the Mesa
// lavapipe software driver.

const testSamples = 4

var testExtent = vk.Extent2D{Width: 64, Height: 32}

func newTestContext(t *testing.T, compute bool) *Context {
	t.Helper()

	ctx, err := NewContext(Options{
		Compute: compute,
		Samples: testSamples,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Skipf("no usable Vulkan device: %s", err)
	}
	t.Cleanup(ctx.Destroy)

	return ctx
}

func loadShader(t *testing.T, name string) []uint32 {
	t.Helper()

	code, err := shaders.Load(os.DirFS("../shaders"), name)
	if err != nil {
		t.Skipf("shader not available: %s", err)
	}
	return code
}

func testParameters(n int) FrameParameters {
	return FrameParameters{
		Resolution:  linmath.Vec2{float32(testExtent.Width), float32(testExtent.Height)},
		Time:        0,
		DeltaTime:   1.0 / 60,
		PointsNum:   uint32(n),
		PointsSpeed: 0.5,
	}
}

type drawFixture struct {
	target   *RenderTarget
	binding  *PointsBinding
	readback *Readback
	stage    *DrawStage
}

func newDrawFixture[T any](t *testing.T, ctx *Context, pts []T, fragment string) *drawFixture {
	t.Helper()
	g := NewWithT(t)

	vert := loadShader(t, shaders.Vertex)
	frag := loadShader(t, fragment)

	buf, err := Upload(ctx, vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit), pts)
	g.Expect(err).NotTo(HaveOccurred())
	t.Cleanup(buf.Destroy)

	target, err := NewRenderTarget(ctx, testExtent)
	g.Expect(err).NotTo(HaveOccurred())
	t.Cleanup(target.Destroy)

	binding, err := NewPointsBinding(ctx, buf)
	g.Expect(err).NotTo(HaveOccurred())
	t.Cleanup(binding.Destroy)

	readback, err := NewReadback(ctx, target.PixelSize())
	g.Expect(err).NotTo(HaveOccurred())
	t.Cleanup(readback.Destroy)

	stage, err := NewDrawStage(ctx, target, binding, readback, vert, frag)
	g.Expect(err).NotTo(HaveOccurred())
	t.Cleanup(stage.Destroy)

	return &drawFixture{
		target:   target,
		binding:  binding,
		readback: readback,
		stage:    stage,
	}
}

func TestUploadEmpty(t *testing.T) {
	g := NewWithT(t)

	_, err := Upload[uint32](nil, 0, nil)
	g.Expect(err).To(HaveOccurred())
	g.Expect(errors.Is(err, ErrResource)).To(BeTrue())
}

func TestUploadRoundTrip(t *testing.T) {
	ctx := newTestContext(t, false)
	g := NewWithT(t)

	g.Expect(ctx.DeviceName()).NotTo(BeEmpty())
	g.Expect(DeviceTypeName(ctx.DeviceType())).NotTo(Equal("Unknown"))
	g.Expect(ctx.Samples()).To(Equal(vk.SampleCountFlagBits(testSamples)))

	data := []uint32{1, 2, 3}
	buf, err := Upload(ctx, vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit), data)
	g.Expect(err).NotTo(HaveOccurred())
	defer buf.Destroy()

	g.Expect(buf.Len).To(Equal(3))
	g.Expect(buf.Size).To(Equal(vk.DeviceSize(12)))

	downloaded, err := Download(ctx, buf)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(downloaded).To(Equal(unsafer.SliceToBytes(data)))
}

func TestUpdateKeepsPoints(t *testing.T) {
	ctx := newTestContext(t, true)
	g := NewWithT(t)

	code := loadShader(t, shaders.Update)

	const count = 100
	aspect := float32(testExtent.Width) / float32(testExtent.Height)
	generated := points.NewSource(7).Generate(count, aspect)

	buf, err := Upload(ctx,
		vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit)|
			vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		generated,
	)
	g.Expect(err).NotTo(HaveOccurred())
	defer buf.Destroy()

	binding, err := NewPointsBinding(ctx, buf)
	g.Expect(err).NotTo(HaveOccurred())
	defer binding.Destroy()

	stage, err := NewUpdateStage(ctx, binding, buf, code)
	g.Expect(err).NotTo(HaveOccurred())
	defer stage.Destroy()

	params := testParameters(count)
	for i := 0; i < 120; i++ {
		params.Time = float32(i) * params.DeltaTime
		g.Expect(stage.Update(params)).To(Succeed())
	}

	raw, err := Download(ctx, buf)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(raw).To(HaveLen(count * 32))

	moved := make([]points.Point, count)
	copy(unsafer.SliceToBytes(moved), raw)

	for i, p := range moved {
		g.Expect(p.Color).To(Equal(generated[i].Color))
		g.Expect(p.Pos[0]).To(BeNumerically(">=", 0))
		g.Expect(p.Pos[0]).To(BeNumerically("<=", aspect))
		g.Expect(p.Pos[1]).To(BeNumerically(">=", 0))
		g.Expect(p.Pos[1]).To(BeNumerically("<=", 1))
	}
}

func TestDrawSolidColor(t *testing.T) {
	ctx := newTestContext(t, false)
	g := NewWithT(t)

	pts := []points.Point{{
		Pos:   linmath.Vec2{0.5, 0.5},
		Color: linmath.Vec4{1, 0, 0, 1},
	}}
	fixture := newDrawFixture(t, ctx, pts, "testdata/solid.spv")

	expected := bytes.Repeat([]byte{255, 0, 0, 255}, int(testExtent.Width*testExtent.Height))

	for frame := 0; frame < 2; frame++ {
		params := testParameters(len(pts))
		params.Time = float32(frame) * params.DeltaTime

		g.Expect(fixture.stage.Draw(params)).To(Succeed())

		pixels, err := fixture.readback.Pixels()
		g.Expect(err).NotTo(HaveOccurred())
		g.Expect(pixels).To(Equal(expected), "frame %d", frame)
	}
}

func TestDrawStaticSinglePoint(t *testing.T) {
	ctx := newTestContext(t, false)
	g := NewWithT(t)

	pts := []points.StaticPoint{{
		Pos:   linmath.Vec2{0.25, 0.75},
		Color: linmath.Vec3{0, 1, 0},
	}}
	fixture := newDrawFixture(t, ctx, pts, shaders.FragmentStatic)

	g.Expect(fixture.stage.Draw(testParameters(len(pts)))).To(Succeed())

	pixels, err := fixture.readback.Pixels()
	g.Expect(err).NotTo(HaveOccurred())

	expected := bytes.Repeat([]byte{0, 255, 0, 255}, int(testExtent.Width*testExtent.Height))
	g.Expect(pixels).To(Equal(expected))
}

func TestDrawIsRepeatable(t *testing.T) {
	ctx := newTestContext(t, false)
	g := NewWithT(t)

	aspect := float32(testExtent.Width) / float32(testExtent.Height)
	pts := points.NewSource(42).Generate(30, aspect)
	fixture := newDrawFixture(t, ctx, pts, shaders.Fragment)

	params := testParameters(len(pts))

	g.Expect(fixture.stage.Draw(params)).To(Succeed())
	first, err := fixture.readback.Pixels()
	g.Expect(err).NotTo(HaveOccurred())
	first = append([]byte(nil), first...)

	g.Expect(fixture.stage.Draw(params)).To(Succeed())
	second, err := fixture.readback.Pixels()
	g.Expect(err).NotTo(HaveOccurred())

	g.Expect(second).To(Equal(first))
	g.Expect(second).To(HaveLen(fixture.target.PixelSize()))
}
