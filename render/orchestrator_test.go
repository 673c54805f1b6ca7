package render_test

import (
	"fmt"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/cockroachdb/errors"
	"github.com/ironsmile/voronoi-frames/gpu"
	"github.com/ironsmile/voronoi-frames/render"
)

// recorder implements every stage and remembers the order of calls.
type recorder struct {
	events []string
	params []gpu.FrameParameters

	failUpdateAt int
	failDrawAt   int
	failReadback bool
	drawn        int
	updated      int
}

func newRecorder() *recorder {
	return &recorder{failUpdateAt: -1, failDrawAt: -1}
}

func (r *recorder) Update(params gpu.FrameParameters) error {
	if r.updated == r.failUpdateAt {
		return errors.New("update failed")
	}
	r.updated++
	r.events = append(r.events, "update")
	r.params = append(r.params, params)
	return nil
}

func (r *recorder) Draw(params gpu.FrameParameters) error {
	if r.drawn == r.failDrawAt {
		return errors.New("draw failed")
	}
	r.drawn++
	r.events = append(r.events, "draw")
	r.params = append(r.params, params)
	return nil
}

func (r *recorder) Pixels() ([]byte, error) {
	if r.failReadback {
		return nil, errors.New("mapping failed")
	}
	r.events = append(r.events, "readback")
	return []byte{1, 2, 3, 4}, nil
}

func (r *recorder) WriteFrame(index int, pixels []byte) (string, error) {
	r.events = append(r.events, fmt.Sprintf("write %d", index))
	return fmt.Sprintf("%09d.png", index), nil
}

type reports struct {
	frames   []int
	paths    []string
	finished bool
}

func (r *reports) Frame(index int, path string, _ time.Duration) {
	r.frames = append(r.frames, index)
	r.paths = append(r.paths, path)
}

func (r *reports) Finish() {
	r.finished = true
}

var _ = Describe("Orchestrator", func() {
	var (
		rec      *recorder
		rep      *reports
		settings render.Settings
	)

	BeforeEach(func() {
		rec = newRecorder()
		rep = &reports{}
		settings = render.Settings{
			Frames:      3,
			Width:       1920,
			Height:      1080,
			DeltaTime:   1.0 / 60,
			PointsNum:   30,
			PointsSpeed: 0.5,
		}
	})

	animated := func() render.Stages {
		return render.Stages{Update: rec, Draw: rec, Readback: rec, Writer: rec}
	}

	It("runs the stages of every frame in order", func() {
		o := render.New(settings, animated(),
			render.WithClock(render.FixedClock{Step: settings.DeltaTime}),
			render.WithReporter(rep),
		)

		Expect(o.Run()).To(Succeed())
		Expect(rec.events).To(Equal([]string{
			"update", "draw", "readback", "write 0",
			"update", "draw", "readback", "write 1",
			"update", "draw", "readback", "write 2",
		}))
		Expect(rep.frames).To(Equal([]int{0, 1, 2}))
		Expect(rep.paths).To(Equal([]string{
			"000000000.png", "000000001.png", "000000002.png",
		}))
		Expect(rep.finished).To(BeTrue())
	})

	It("skips the update stage for static points", func() {
		stages := animated()
		stages.Update = nil

		o := render.New(settings, stages, render.WithReporter(rep))

		Expect(o.Run()).To(Succeed())
		Expect(rec.events).NotTo(ContainElement("update"))
		Expect(rec.drawn).To(Equal(3))
	})

	It("writes nothing when there are no frames", func() {
		settings.Frames = 0
		o := render.New(settings, animated(), render.WithReporter(rep))

		Expect(o.Run()).To(Succeed())
		Expect(rec.events).To(BeEmpty())
		Expect(rep.finished).To(BeTrue())
	})

	It("gives the update and the draw of a frame the same parameters", func() {
		o := render.New(settings, animated(), render.WithReporter(rep))

		Expect(o.Run()).To(Succeed())
		Expect(rec.params).To(HaveLen(6))
		for i := 0; i < len(rec.params); i += 2 {
			Expect(rec.params[i]).To(Equal(rec.params[i+1]))
		}
	})

	It("keeps the delta constant and the time non-decreasing", func() {
		settings.Frames = 50
		o := render.New(settings, animated(), render.WithReporter(rep))

		Expect(o.Run()).To(Succeed())

		var last float32
		for _, p := range rec.params {
			Expect(p.DeltaTime).To(Equal(settings.DeltaTime))
			Expect(p.Time).To(BeNumerically(">=", last))
			last = p.Time
		}
	})

	It("fills the parameters from the settings", func() {
		o := render.New(settings, animated(),
			render.WithClock(render.FixedClock{Step: 0.5}),
		)

		p := o.Parameters(4)
		Expect(p.Resolution[0]).To(Equal(float32(1920)))
		Expect(p.Resolution[1]).To(Equal(float32(1080)))
		Expect(p.Time).To(Equal(float32(2)))
		Expect(p.PointsNum).To(Equal(uint32(30)))
		Expect(p.PointsSpeed).To(Equal(float32(0.5)))
	})

	It("stops at the first failing update", func() {
		rec.failUpdateAt = 1
		o := render.New(settings, animated(), render.WithReporter(rep))

		err := o.Run()
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("frame 1"))
		Expect(rec.events).To(Equal([]string{
			"update", "draw", "readback", "write 0",
		}))
		Expect(rep.finished).To(BeFalse())
	})

	It("does not read back a frame which failed to draw", func() {
		rec.failDrawAt = 0
		o := render.New(settings, animated(), render.WithReporter(rep))

		Expect(o.Run()).To(MatchError(ContainSubstring("draw failed")))
		Expect(rec.events).To(Equal([]string{"update"}))
		Expect(rep.frames).To(BeEmpty())
	})

	It("names the read back step when fetching pixels fails", func() {
		rec.failReadback = true
		o := render.New(settings, animated(), render.WithReporter(rep))

		err := o.Run()
		Expect(err).To(MatchError(ContainSubstring("reading back: mapping failed")))
		Expect(err.Error()).To(ContainSubstring("frame 0"))
		Expect(rec.events).To(Equal([]string{"update", "draw"}))
		Expect(rep.frames).To(BeEmpty())
	})
})

var _ = Describe("Clocks", func() {
	It("advances a fixed clock by one step per frame", func() {
		c := render.FixedClock{Step: 0.25}
		c.Start()

		Expect(c.Time(0)).To(Equal(float32(0)))
		Expect(c.Time(1)).To(Equal(float32(0.25)))
		Expect(c.Time(8)).To(Equal(float32(2)))
	})

	It("never goes back on the wall clock", func() {
		c := render.NewWallClock()

		var last float32
		for i := 0; i < 100; i++ {
			now := c.Time(i)
			Expect(now).To(BeNumerically(">=", last))
			last = now
		}
	})
})
