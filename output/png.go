package output

import (
	"bufio"
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"hash/crc32"
	"io"

	"github.com/cockroachdb/errors"
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

const (
	pngBitDepth      = 8
	pngColorTypeRGBA = 6
	pngFilterNone    = 0
	pngBytesPerPixel = 4
	pngIHDRLength    = 13
)

// encodeRGBA writes pixels as a PNG image with 8 bit RGBA samples. Unlike
// image/png it never drops the alpha channel of opaque frames, so every file
// has the same color type regardless of its content.
func encodeRGBA(w io.Writer, pixels []byte, width, height int) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.Write(pngSignature); err != nil {
		return err
	}

	ihdr := make([]byte, pngIHDRLength)
	binary.BigEndian.PutUint32(ihdr[0:], uint32(width))
	binary.BigEndian.PutUint32(ihdr[4:], uint32(height))
	ihdr[8] = pngBitDepth
	ihdr[9] = pngColorTypeRGBA
	// compression, filter and interlace methods are all 0
	if err := writeChunk(bw, "IHDR", ihdr); err != nil {
		return err
	}

	data, err := compressRows(pixels, width, height)
	if err != nil {
		return errors.Wrap(err, "compressing image data")
	}
	if err := writeChunk(bw, "IDAT", data); err != nil {
		return err
	}

	if err := writeChunk(bw, "IEND", nil); err != nil {
		return err
	}

	return bw.Flush()
}

func compressRows(pixels []byte, width, height int) ([]byte, error) {
	var out bytes.Buffer
	zw := zlib.NewWriter(&out)

	stride := width * pngBytesPerPixel
	filter := []byte{pngFilterNone}
	for y := 0; y < height; y++ {
		if _, err := zw.Write(filter); err != nil {
			return nil, err
		}
		if _, err := zw.Write(pixels[y*stride : (y+1)*stride]); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func writeChunk(w io.Writer, name string, data []byte) error {
	header := make([]byte, 8)
	binary.BigEndian.PutUint32(header[0:], uint32(len(data)))
	copy(header[4:], name)

	crc := crc32.NewIEEE()
	crc.Write(header[4:])
	crc.Write(data)

	footer := make([]byte, 4)
	binary.BigEndian.PutUint32(footer, crc.Sum32())

	for _, part := range [][]byte{header, data, footer} {
		if _, err := w.Write(part); err != nil {
			return errors.Wrapf(err, "writing %s chunk", name)
		}
	}
	return nil
}
