package output

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/gomega"
)

func solidFrame(w, h int, c color.NRGBA) []byte {
	pixels := make([]byte, w*h*4)
	for i := 0; i < len(pixels); i += 4 {
		pixels[i+0] = c.R
		pixels[i+1] = c.G
		pixels[i+2] = c.B
		pixels[i+3] = c.A
	}
	return pixels
}

func TestFrameName(t *testing.T) {
	g := NewWithT(t)

	g.Expect(FrameName(0)).To(Equal("000000000.png"))
	g.Expect(FrameName(42)).To(Equal("000000042.png"))
	g.Expect(FrameName(599)).To(Equal("000000599.png"))
	g.Expect(FrameName(123456789)).To(Equal("123456789.png"))
}

func TestWriteFrameProducesRGBA8PNG(t *testing.T) {
	g := NewWithT(t)

	dir := t.TempDir()
	w, err := NewWriter(dir, 5, 3)
	g.Expect(err).NotTo(HaveOccurred())

	want := color.NRGBA{R: 200, G: 10, B: 30, A: 255}
	path, err := w.WriteFrame(7, solidFrame(5, 3, want))
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(path).To(Equal(filepath.Join(dir, "000000007.png")))

	f, err := os.Open(path)
	g.Expect(err).NotTo(HaveOccurred())
	defer f.Close()

	img, err := png.Decode(f)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(img.Bounds()).To(Equal(image.Rect(0, 0, 5, 3)))
	g.Expect(img.ColorModel()).To(Equal(color.NRGBAModel))
	g.Expect(color.NRGBAModel.Convert(img.At(4, 2))).To(Equal(want))

	raw, err := os.ReadFile(path)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(raw[24]).To(BeEquivalentTo(8), "bit depth")
	g.Expect(raw[25]).To(BeEquivalentTo(6), "color type RGBA")
}

func TestWriteFrameKeepsPixels(t *testing.T) {
	g := NewWithT(t)

	w, err := NewWriter(t.TempDir(), 3, 2)
	g.Expect(err).NotTo(HaveOccurred())

	pixels := make([]byte, 3*2*4)
	for i := range pixels {
		pixels[i] = byte(i * 9)
	}

	path, err := w.WriteFrame(0, pixels)
	g.Expect(err).NotTo(HaveOccurred())

	f, err := os.Open(path)
	g.Expect(err).NotTo(HaveOccurred())
	defer f.Close()

	img, err := png.Decode(f)
	g.Expect(err).NotTo(HaveOccurred())
	nrgba, ok := img.(*image.NRGBA)
	g.Expect(ok).To(BeTrue())
	g.Expect(nrgba.Pix).To(Equal(pixels))
}

func TestWriteFrameSequence(t *testing.T) {
	g := NewWithT(t)

	dir := t.TempDir()
	w, err := NewWriter(dir, 2, 2)
	g.Expect(err).NotTo(HaveOccurred())

	const frames = 12
	for i := 0; i < frames; i++ {
		_, err := w.WriteFrame(i, solidFrame(2, 2, color.NRGBA{A: 255}))
		g.Expect(err).NotTo(HaveOccurred())
	}

	entries, err := os.ReadDir(dir)
	g.Expect(err).NotTo(HaveOccurred())
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	g.Expect(names).To(HaveLen(frames))
	for i, name := range names {
		g.Expect(name).To(Equal(FrameName(i)))
	}
}

func TestWriteFrameRejectsWrongSize(t *testing.T) {
	g := NewWithT(t)

	w, err := NewWriter(t.TempDir(), 4, 4)
	g.Expect(err).NotTo(HaveOccurred())

	_, err = w.WriteFrame(0, make([]byte, 10))
	g.Expect(errors.Is(err, ErrOutput)).To(BeTrue())
}

func TestNewWriterNeedsExistingDirectory(t *testing.T) {
	g := NewWithT(t)

	_, err := NewWriter(filepath.Join(t.TempDir(), "nope"), 1, 1)
	g.Expect(errors.Is(err, ErrOutput)).To(BeTrue())

	file := filepath.Join(t.TempDir(), "file")
	g.Expect(os.WriteFile(file, nil, 0o600)).To(Succeed())
	_, err = NewWriter(file, 1, 1)
	g.Expect(errors.Is(err, ErrOutput)).To(BeTrue())
}

func TestWriteFrameFailsWhenDirectoryDisappears(t *testing.T) {
	g := NewWithT(t)

	dir := filepath.Join(t.TempDir(), "frames")
	g.Expect(os.Mkdir(dir, 0o755)).To(Succeed())

	w, err := NewWriter(dir, 1, 1)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(os.Remove(dir)).To(Succeed())

	_, err = w.WriteFrame(0, make([]byte, 4))
	g.Expect(errors.Is(err, ErrOutput)).To(BeTrue())
}
