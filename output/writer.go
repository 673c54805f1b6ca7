// Package output stores rendered frames as numbered PNG files.
package output

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

// ErrOutput marks failures to store a frame.
var ErrOutput = errors.New("frame output error")

// Writer encodes raw RGBA8 frames of a fixed size as PNG files in a directory.
type Writer struct {
	dir    string
	width  int
	height int
}

// NewWriter returns a Writer which stores frames of width x height pixels in
// dir. The directory must already exist.
func NewWriter(dir string, width, height int) (*Writer, error) {
	if err := checkDir(dir); err != nil {
		return nil, err
	}

	return &Writer{
		dir:    dir,
		width:  width,
		height: height,
	}, nil
}

// FrameName returns the file name of frame index: the index as a nine digit,
// zero padded decimal number.
func FrameName(index int) string {
	return fmt.Sprintf("%09d.png", index)
}

// Path returns where frame index is stored.
func (w *Writer) Path(index int) string {
	return filepath.Join(w.dir, FrameName(index))
}

// WriteFrame encodes pixels, which must hold exactly width*height*4 bytes in
// RGBA order, and writes them to the file for frame index. It returns the
// path of the written file.
func (w *Writer) WriteFrame(index int, pixels []byte) (string, error) {
	if want := w.width * w.height * 4; len(pixels) != want {
		return "", errors.Mark(
			errors.Newf("frame %d has %d bytes, expected %d", index, len(pixels), want),
			ErrOutput,
		)
	}

	path := w.Path(index)
	if err := w.writePNG(path, pixels); err != nil {
		return "", errors.Mark(errors.Wrapf(err, "writing frame %d", index), ErrOutput)
	}

	return path, nil
}

func (w *Writer) writePNG(path string, pixels []byte) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()

	if err := encodeRGBA(f, pixels, w.width, w.height); err != nil {
		return errors.Wrap(err, "encoding png")
	}
	return nil
}

func checkDir(dir string) error {
	st, err := os.Stat(dir)
	if err != nil {
		return errors.Mark(errors.Wrap(err, "output directory"), ErrOutput)
	}
	if !st.IsDir() {
		return errors.Mark(errors.Newf("output path %s is not a directory", dir), ErrOutput)
	}
	return nil
}
