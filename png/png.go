package png

import (
	"bytes"
	"compress/zlib"
	"io"

	"github.com/bovee/entab"
	"github.com/bovee/entab/internal/extract"
)

var pngMagic = []byte("\x89PNG\r\n\x1A\n")
var ihdrTag = []byte("\x00\x00\x00\x0DIHDR")

// Record is a single pixel, already de-filtered and bit-expanded to 16 bits
// per channel.
type Record struct {
	X, Y                    uint32
	Red, Green, Blue, Alpha uint16
}

// Header names the columns Record's fields map to, in order.
var Header = []string{"x", "y", "red", "green", "blue", "alpha"}

// state holds everything decoded once from the file's chunk stream: the
// fully-decompressed, still-filtered scanline data, the palette (if any),
// and the x/y cursor walked across it one pixel per record.
type state struct {
	colorType colorType
	bitDepth  int
	width     int
	height    int
	curX      int
	curY      int
	imageData []byte
	palette   []rgbColor
}

func (s *state) lineLen() int { return lineLen(s.width, s.bitDepth, s.colorType) }

// Reader decodes a PNG image into a stream of per-pixel records.
type Reader struct {
	rb    *entab.ReadBuffer
	state state
}

// NewReader wraps an io.Reader as a PNG decoder. The entire file is
// buffered up front: IDAT chunks are concatenated across the file before
// the single combined deflate stream can be inflated.
func NewReader(r io.Reader) (*Reader, error) {
	return NewReaderSize(r, 0)
}

// NewReaderSize is NewReader with an explicit initial buffer allocation
// (entab.DefaultBufferSize if bufSize <= 0). PNG always needs the whole
// file regardless, but a caller that already knows the file's size can
// avoid the doubling-refill growth by sizing the buffer up front.
func NewReaderSize(r io.Reader, bufSize int) (*Reader, error) {
	rb, err := entab.NewReadBuffer(r, bufSize)
	if err != nil {
		return nil, err
	}
	st := &state{}
	if err := entab.ReadHeader(rb, st, headerParse, headerGet); err != nil {
		return nil, err
	}
	return &Reader{rb: rb, state: *st}, nil
}

// Headers reports the fixed column names for PNG pixel records.
func (r *Reader) Headers() []string { return Header }

// Metadata reports the image's width and height.
func (r *Reader) Metadata() entab.Metadata {
	return entab.Metadata{
		"width":  entab.IntValue(int64(r.state.width)),
		"height": entab.IntValue(int64(r.state.height)),
	}
}

// Next returns the next pixel record, in raster-scan order, or (nil, nil)
// once every row of the image has been emitted.
func (r *Reader) Next() (*Record, error) {
	return entab.NextRecord(r.rb, &r.state, recordParse, recordGet)
}

// headerParse forces the whole file into the buffer (IDAT chunks scattered
// across the file must be concatenated before they can be inflated as one
// deflate stream) and validates the magic, IHDR, and chunk framing.
func headerParse(buf []byte, eof bool, consumed *int, st *state) (bool, error) {
	if !eof {
		return false, entab.Incomplete("png requires the whole file buffered")
	}

	con := 0
	magic, err := extract.Slice(buf[con:], 8)
	if err != nil {
		return false, err
	}
	if !bytes.Equal(magic, pngMagic) {
		return false, entab.Malformed("invalid PNG magic")
	}
	con += 8

	ihdr, err := extract.Slice(buf[con:], 8)
	if err != nil {
		return false, err
	}
	if !bytes.Equal(ihdr, ihdrTag) {
		return false, entab.Malformed("invalid PNG header")
	}
	con += 8

	// width, height, bit depth, color type are re-read properly in get;
	// here we only need to step past them to reach compression/filter/
	// interlace.
	if err := extract.Skip(buf[con:], 10); err != nil {
		return false, err
	}
	con += 10

	flags, err := extract.Slice(buf[con:], 3)
	if err != nil {
		return false, err
	}
	if flags[0] != 0 {
		return false, entab.Unsupported("PNG compression must be type 0")
	}
	if flags[1] != 0 {
		return false, entab.Unsupported("PNG filtering must be type 0")
	}
	if flags[2] != 0 {
		return false, entab.Unsupported("PNG interlacing not supported")
	}
	con += 3

	for {
		if err := extract.Skip(buf[con:], 4); err != nil { // previous chunk's CRC
			return false, err
		}
		con += 4
		chunkSize, err := extract.Uint32(buf[con:], extract.Big)
		if err != nil {
			return false, err
		}
		con += 4
		chunkHeader, err := extract.Slice(buf[con:], 4)
		if err != nil {
			return false, err
		}
		con += 4
		if bytes.Equal(chunkHeader, []byte("IEND")) {
			break
		}
		if err := extract.Skip(buf[con:], int(chunkSize)); err != nil {
			return false, err
		}
		con += int(chunkSize)
	}
	*consumed += con
	return true, nil
}

func headerGet(rec *state, buf []byte, _ *state) error {
	con := 16
	width, err := extract.Uint32(buf[con:], extract.Big)
	if err != nil {
		return err
	}
	con += 4
	height, err := extract.Uint32(buf[con:], extract.Big)
	if err != nil {
		return err
	}
	con += 4
	bitDepth, err := extract.Slice(buf[con:], 1)
	if err != nil {
		return err
	}
	con++
	ct, err := colorTypeFromByte(buf[con])
	if err != nil {
		return err
	}
	con++
	con += 3 // compression, filter, interlace: already validated

	rec.width = int(width)
	rec.height = int(height)
	rec.bitDepth = int(bitDepth[0])
	rec.colorType = ct

	var compressed []byte
	for {
		if err := extract.Skip(buf[con:], 4); err != nil { // previous chunk's CRC
			return err
		}
		con += 4
		chunkSize, err := extract.Uint32(buf[con:], extract.Big)
		if err != nil {
			return err
		}
		con += 4
		chunkHeader, err := extract.Slice(buf[con:], 4)
		if err != nil {
			return err
		}
		con += 4
		payload, err := extract.Slice(buf[con:], int(chunkSize))
		if err != nil {
			return err
		}
		switch {
		case bytes.Equal(chunkHeader, []byte("PLTE")):
			rec.palette = make([]rgbColor, 0, chunkSize/3)
			for i := 0; i+2 < len(payload); i += 3 {
				rec.palette = append(rec.palette, rgbColor{
					red:   257 * uint16(payload[i]),
					green: 257 * uint16(payload[i+1]),
					blue:  257 * uint16(payload[i+2]),
				})
			}
		case bytes.Equal(chunkHeader, []byte("IDAT")):
			compressed = append(compressed, payload...)
		case bytes.Equal(chunkHeader, []byte("IEND")):
			con += int(chunkSize)
			goto decode
		}
		con += int(chunkSize)
	}

decode:
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return entab.Malformed("invalid PNG zlib stream: " + err.Error())
	}
	defer zr.Close()
	imageData, err := io.ReadAll(zr)
	if err != nil {
		return entab.Malformed("invalid PNG deflate data: " + err.Error())
	}
	rec.imageData = imageData

	// cur_x starts "before the first pixel"; recordParse's first call
	// steps it to 0.
	rec.curX = -1
	rec.curY = 0
	return nil
}

// recordParse advances the x/y cursor by one pixel, unfiltering the next
// scanline in place the moment its first pixel is reached. It touches no
// bytes from rb: by the time records are produced, the whole file has
// already been decoded into st.imageData.
func recordParse(_ []byte, _ bool, _ *int, st *state) (bool, error) {
	if st.curX < 0 {
		st.curX = 0
	} else {
		st.curX++
	}
	if st.curX == st.width {
		st.curX = 0
		st.curY++
	}
	if st.curY >= st.height {
		return false, nil
	}
	if st.curX == 0 {
		if err := unfilterLine(st.imageData, st.curY, st.width, st.bitDepth, st.colorType); err != nil {
			return false, err
		}
	}
	return true, nil
}

func recordGet(rec *Record, _ []byte, st *state) error {
	bd := st.bitDepth
	ll := st.lineLen()
	line := st.imageData[st.curY*ll+1 : (st.curY+1)*ll]
	pos := st.curX * st.colorType.pixelSize()

	var red, green, blue, alpha uint16
	switch st.colorType {
	case colorIndexed:
		idx, err := getBits(line, pos, bd, false)
		if err != nil {
			return err
		}
		if int(idx) >= len(st.palette) {
			return entab.Domain("color index was outside palette dimensions")
		}
		c := st.palette[idx]
		red, green, blue, alpha = c.red, c.green, c.blue, 0xFFFF
	case colorGrayscale:
		gray, err := getBits(line, pos, bd, true)
		if err != nil {
			return err
		}
		red, green, blue, alpha = gray, gray, gray, 0xFFFF
	case colorAlphaGrayscale:
		gray, err := getBits(line, pos, bd, true)
		if err != nil {
			return err
		}
		a, err := getBits(line, pos+1, bd, true)
		if err != nil {
			return err
		}
		red, green, blue, alpha = gray, gray, gray, a
	case colorColor:
		r, err := getBits(line, pos, bd, true)
		if err != nil {
			return err
		}
		g, err := getBits(line, pos+1, bd, true)
		if err != nil {
			return err
		}
		b, err := getBits(line, pos+2, bd, true)
		if err != nil {
			return err
		}
		red, green, blue, alpha = r, g, b, 0xFFFF
	case colorAlphaColor:
		r, err := getBits(line, pos, bd, true)
		if err != nil {
			return err
		}
		g, err := getBits(line, pos+1, bd, true)
		if err != nil {
			return err
		}
		b, err := getBits(line, pos+2, bd, true)
		if err != nil {
			return err
		}
		a, err := getBits(line, pos+3, bd, true)
		if err != nil {
			return err
		}
		red, green, blue, alpha = r, g, b, a
	}

	rec.X = uint32(st.curX)
	rec.Y = uint32(st.curY)
	rec.Red, rec.Green, rec.Blue, rec.Alpha = red, green, blue, alpha
	return nil
}

// ToRow converts rec into an entab.Row in Header order.
func ToRow(rec *Record) entab.Row {
	return entab.Row{
		entab.IntValue(int64(rec.X)),
		entab.IntValue(int64(rec.Y)),
		entab.IntValue(int64(rec.Red)),
		entab.IntValue(int64(rec.Green)),
		entab.IntValue(int64(rec.Blue)),
		entab.IntValue(int64(rec.Alpha)),
	}
}
