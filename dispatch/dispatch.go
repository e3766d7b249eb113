// Package dispatch maps a sniffed (or caller-forced) file type to a boxed
// entab.Reader, constructing whichever format package's decoder applies.
// It is kept separate from the root entab package specifically to avoid
// an import cycle: entab defines the shared contract and value model,
// every format package imports entab, and dispatch is the only package
// that imports both entab and every format package.
package dispatch

import (
	"context"
	"io"

	"github.com/quay/zlog"

	"github.com/bovee/entab"
	"github.com/bovee/entab/chemstation"
	"github.com/bovee/entab/compress"
	"github.com/bovee/entab/fasta"
	"github.com/bovee/entab/fastq"
	"github.com/bovee/entab/fcs"
	"github.com/bovee/entab/filetype"
	"github.com/bovee/entab/png"
	"github.com/bovee/entab/thermoraw"
	"github.com/bovee/entab/tsv"
)

// New sniffs (or, with entab.WithFormat, skips sniffing) r, transparently
// unwraps at most one layer of compression, and constructs the matching
// format decoder. The returned FileType is the innermost record format;
// outer is non-nil when r was compressed, naming the wrapper that was
// peeled off. An entab.WithFormat override skips both sniffing and
// decompression - the stream is handed to the named decoder as-is.
func New(ctx context.Context, r io.Reader, opts ...entab.Option) (entab.Reader, filetype.FileType, *filetype.FileType, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "dispatch.New")
	o := entab.ApplyOptions(opts...)

	var stream io.Reader
	var ft filetype.FileType
	var outer *filetype.FileType

	if o.Override != filetype.Unknown {
		zlog.Debug(ctx).Str("component", "dispatch.New").Str("format", o.Override.String()).Msg("format override, skipping sniff")
		stream, ft = r, o.Override
	} else {
		var err error
		stream, ft, outer, err = compress.Decompress(ctx, r)
		if err != nil {
			return nil, filetype.Unknown, nil, err
		}
		if outer != nil {
			zlog.Info(ctx).Str("component", "dispatch.New").Str("outer", outer.String()).Str("inner", ft.String()).Msg("decompressed wrapper")
		} else {
			zlog.Debug(ctx).Str("component", "dispatch.New").Str("format", ft.String()).Msg("sniffed format")
		}
	}

	rd, err := construct(stream, ft, o.BufferSize)
	if err != nil {
		zlog.Warn(ctx).Str("component", "dispatch.New").Err(err).Str("format", ft.String()).Msg("failed to construct reader")
		return nil, ft, outer, err
	}
	return rd, ft, outer, nil
}

// construct builds the boxed reader for one already-sniffed, already-
// decompressed format tag.
func construct(stream io.Reader, ft filetype.FileType, bufSize int) (entab.Reader, error) {
	switch ft {
	case filetype.Fasta:
		r, err := fasta.NewReaderSize(stream, bufSize)
		if err != nil {
			return nil, err
		}
		return &fastaAdapter{r}, nil
	case filetype.Fastq:
		r, err := fastq.NewReaderSize(stream, bufSize)
		if err != nil {
			return nil, err
		}
		return &fastqAdapter{r}, nil
	case filetype.DelimitedText:
		r, err := tsv.NewReaderSize(stream, tsv.Params{}, bufSize)
		if err != nil {
			return nil, err
		}
		return &tsvAdapter{r}, nil
	case filetype.Png:
		r, err := png.NewReaderSize(stream, bufSize)
		if err != nil {
			return nil, err
		}
		return &pngAdapter{r}, nil
	case filetype.Facs:
		r, err := fcs.NewReaderSize(stream, bufSize)
		if err != nil {
			return nil, err
		}
		return &fcsAdapter{r}, nil
	case filetype.ThermoRaw:
		r, err := thermoraw.NewReaderSize(stream, bufSize)
		if err != nil {
			return nil, err
		}
		return &thermorawAdapter{r}, nil
	case filetype.AgilentChemstationMs:
		r, err := chemstation.NewMsReaderSize(stream, bufSize)
		if err != nil {
			return nil, err
		}
		return &msAdapter{r}, nil
	case filetype.AgilentChemstationFid:
		r, err := chemstation.NewFidReaderSize(stream, bufSize)
		if err != nil {
			return nil, err
		}
		return &fidAdapter{r}, nil
	case filetype.AgilentChemstationMwd:
		r, err := chemstation.NewMwdReaderSize(stream, bufSize)
		if err != nil {
			return nil, err
		}
		return &mwdAdapter{r}, nil
	case filetype.AgilentChemstationDad:
		r, err := chemstation.NewDadReaderSize(stream, bufSize)
		if err != nil {
			return nil, err
		}
		return &dadAdapter{r}, nil
	case filetype.AgilentChemstationUv:
		r, err := chemstation.NewNewUvReaderSize(stream, bufSize)
		if err != nil {
			return nil, err
		}
		return &newUvAdapter{r}, nil
	case filetype.AgilentMasshunterDad, filetype.AgilentMasshunterDadHeader,
		filetype.Bam, filetype.Sam, filetype.Scf, filetype.Las, filetype.Hdf5,
		filetype.InficonHapsite, filetype.Ztr, filetype.BrukerBaf, filetype.NetCdf,
		filetype.ThermoCf, filetype.ThermoDxf:
		return nil, entab.Unsupported("recognized but unimplemented format: " + ft.String())
	default:
		return nil, entab.Malformed("unknown or undetected file format: " + ft.String())
	}
}
