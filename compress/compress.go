// Package compress sniffs a stream's leading bytes, peels off a gzip,
// bzip2, xz, or zstd wrapper if one is present, and re-sniffs the
// decompressed stream so dispatch always sees the innermost record format.
package compress

import (
	"bufio"
	"compress/bzip2"
	"context"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/quay/zlog"
	"github.com/ulikunitz/xz"

	"github.com/bovee/entab/filetype"
)

// sniffLen is the longest magic prefix filetype.FromMagic inspects.
const sniffLen = 78

// Sniff peeks at the front of r (without consuming it) and classifies it.
// The returned reader must be used in place of r.
func Sniff(r io.Reader) (io.Reader, filetype.FileType, error) {
	br := bufio.NewReaderSize(r, sniffLen+1)
	magic, _ := br.Peek(sniffLen)
	return br, filetype.FromMagic(magic), nil
}

// Decompress sniffs r, unwraps at most one layer of gzip/bzip2/xz/zstd
// compression if present, and re-sniffs the decompressed stream. outer is
// nil when r was not compressed.
func Decompress(ctx context.Context, r io.Reader) (stream io.Reader, inner filetype.FileType, outer *filetype.FileType, err error) {
	wrapped, ft, err := Sniff(r)
	if err != nil {
		return nil, filetype.Unknown, nil, err
	}

	var decompressed io.Reader
	switch ft {
	case filetype.Gzip:
		zlog.Debug(ctx).Str("component", "entab/compress.Decompress").Msg("wrapping gzip")
		gz, err := pgzip.NewReader(wrapped)
		if err != nil {
			return nil, filetype.Unknown, nil, err
		}
		decompressed = gz
	case filetype.Bzip:
		zlog.Debug(ctx).Str("component", "entab/compress.Decompress").Msg("wrapping bzip2")
		decompressed = bzip2.NewReader(wrapped)
	case filetype.Lzma:
		zlog.Debug(ctx).Str("component", "entab/compress.Decompress").Msg("wrapping xz")
		xr, err := xz.NewReader(wrapped)
		if err != nil {
			return nil, filetype.Unknown, nil, err
		}
		decompressed = xr
	case filetype.Zstd:
		zlog.Debug(ctx).Str("component", "entab/compress.Decompress").Msg("wrapping zstd")
		zr, err := zstd.NewReader(wrapped)
		if err != nil {
			return nil, filetype.Unknown, nil, err
		}
		decompressed = zr
	default:
		return wrapped, ft, nil, nil
	}

	inner2, ft2, err := Sniff(decompressed)
	if err != nil {
		return nil, filetype.Unknown, nil, err
	}
	outerFT := ft
	return inner2, ft2, &outerFT, nil
}
