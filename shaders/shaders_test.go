package shaders

import (
	"testing"
	"testing/fstest"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/gomega"

	"github.com/ironsmile/voronoi-frames/unsafer"
)

func module(words ...uint32) []byte {
	return append([]byte(nil), unsafer.SliceToBytes(words)...)
}

func TestLoad(t *testing.T) {
	g := NewWithT(t)

	fsys := fstest.MapFS{
		Vertex: {Data: module(spirvMagic, 0x00010000, 0, 8, 0)},
	}

	words, err := Load(fsys, Vertex)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(words).To(HaveLen(5))
	g.Expect(words[0]).To(Equal(uint32(spirvMagic)))
}

func TestLoadMissingFile(t *testing.T) {
	g := NewWithT(t)

	_, err := Load(fstest.MapFS{}, Fragment)
	g.Expect(err).To(HaveOccurred())
	g.Expect(err.Error()).To(ContainSubstring("go generate"))
}

func TestDecodeRejectsGarbage(t *testing.T) {
	cases := map[string][]byte{
		"unaligned":    {1, 2, 3, 4, 5},
		"short":        module(spirvMagic, 0),
		"bad magic":    module(0xdeadbeef, 0, 0, 0, 0),
		"byte swapped": module(spirvMagicSwapped, 0, 0, 0, 0),
	}

	for name, code := range cases {
		t.Run(name, func(t *testing.T) {
			g := NewWithT(t)

			_, err := Decode(code)
			g.Expect(errors.Is(err, ErrInvalid)).To(BeTrue())
		})
	}
}
