// Package shaders holds the GLSL sources of the programs run by the renderer
// and loads their compiled SPIR-V form.
package shaders

import (
	"io/fs"

	"github.com/cockroachdb/errors"

	"github.com/ironsmile/voronoi-frames/unsafer"
)

//go:generate ./compile.sh

// Names of the SPIR-V binaries produced by compile.sh.
const (
	Vertex         = "vert.spv"
	Fragment       = "frag.spv"
	FragmentStatic = "frag_static.spv"
	Update         = "update.spv"
)

const (
	spirvMagic        = 0x07230203
	spirvMagicSwapped = 0x03022307
	spirvHeaderWords  = 5
)

// ErrInvalid is returned for files which are not usable SPIR-V modules.
var ErrInvalid = errors.New("invalid SPIR-V module")

// Load reads the SPIR-V binary called name from fsys and returns it as the
// word slice expected by vkCreateShaderModule.
func Load(fsys fs.FS, name string) ([]uint32, error) {
	code, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, errors.Wrapf(err, "reading shader %s (did you run `go generate ./shaders`?)", name)
	}

	return Decode(code)
}

// Decode checks that code looks like a SPIR-V module in host byte order and
// repacks it into 32 bit words.
func Decode(code []byte) ([]uint32, error) {
	if len(code)%4 != 0 {
		return nil, errors.Wrapf(ErrInvalid, "size %d is not a multiple of 4", len(code))
	}

	words := unsafer.SliceBytesToUint32(code)
	if len(words) < spirvHeaderWords {
		return nil, errors.Wrapf(ErrInvalid, "only %d words long", len(words))
	}

	switch words[0] {
	case spirvMagic:
	case spirvMagicSwapped:
		return nil, errors.Wrap(ErrInvalid, "module is in the wrong byte order")
	default:
		return nil, errors.Wrapf(ErrInvalid, "bad magic number %#08x", words[0])
	}

	return words, nil
}
