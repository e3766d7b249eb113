// Package filetype classifies a stream's leading bytes into the format tag
// entab's dispatch package uses to select a decoder.
package filetype

import "bytes"

//go:generate stringer -type=FileType -linecomment

// FileType names a recognized container or record format.
type FileType int

const (
	Unknown FileType = iota // unknown

	// compression wrappers
	Gzip // gzip
	Bzip // bzip2
	Lzma // xz
	Zstd // zstd

	// bioinformatics
	Bam   // bam
	Fasta // fasta
	Fastq // fastq
	Facs  // fcs
	Sam   // sam
	Scf   // scf
	Ztr   // ztr

	// chemoinformatics
	AgilentChemstationDad     // agilent-dad
	AgilentChemstationFid     // agilent-fid
	AgilentChemstationMs      // agilent-ms
	AgilentChemstationMwd     // agilent-mwd
	AgilentChemstationUv      // agilent-uv
	AgilentMasshunterDad       // masshunter-dad
	AgilentMasshunterDadHeader // masshunter-dad-header
	BrukerBaf                 // bruker-baf
	InficonHapsite            // inficon-hapsite
	ThermoRaw                 // thermo-raw
	ThermoCf                  // thermo-cf
	ThermoDxf                 // thermo-dxf
	NetCdf                    // netcdf

	// geology
	Las // las

	// catch-all
	Png           // png
	Hdf5          // hdf5
	DelimitedText // tsv
)

// FromMagic classifies magic, a prefix of a stream, into a FileType,
// checking longer magic tables first. The 8-byte table is only consulted
// when magic is longer than 8 bytes and the 4-byte table only when it is
// longer than 4; shorter prefixes fall through to the shorter tables.
func FromMagic(magic []byte) FileType {
	if len(magic) > 8 {
		switch {
		case matchesAny(magic[:8], "FCS2.0  ", "FCS3.0  ", "FCS3.1  "):
			return Facs
		case matchesAny(magic[:8], "~VERSION", "~Version"):
			return Las
		case bytes.Equal(magic[:8], []byte("\x89PNG\r\n\x1A\n")):
			return Png
		case bytes.Equal(magic[:8], []byte("\x89HDF\r\n\x1A\n")):
			return Hdf5
		case bytes.Equal(magic[:8], []byte("\x04\x03\x02\x01SPAH")):
			return InficonHapsite
		case bytes.Equal(magic[:8], []byte("\xAEZTR\x0D\x0A\x1A\x0A")):
			return Ztr
		case bytes.Equal(magic[:8], []byte("\x01\xA1F\x00i\x00n\x00")):
			return ThermoRaw
		}
	}
	if len(magic) > 4 {
		m4 := magic[:4]
		switch {
		case bytes.Equal(m4, []byte("BAM\x01")):
			return Bam
		case matchesAny(m4, "@HD\t", "@SQ\t"):
			return Sam
		case bytes.Equal(m4, []byte("\x2Escf")):
			return Scf
		case bytes.Equal(m4, []byte{0x02, 0x33, 0x31, 0x00}):
			return AgilentChemstationDad
		case bytes.Equal(m4, []byte{0x02, 0x38, 0x31, 0x00}):
			return AgilentChemstationFid
		case bytes.Equal(m4, []byte{0x01, 0x32, 0x00, 0x00}):
			return AgilentChemstationMs
		case bytes.Equal(m4, []byte{0x02, 0x33, 0x30, 0x00}):
			return AgilentChemstationMwd
		case bytes.Equal(m4, []byte{0x03, 0x31, 0x33, 0x31}):
			return AgilentChemstationUv
		case bytes.Equal(m4, []byte{0x02, 0x02, 0x00, 0x00}):
			return AgilentMasshunterDadHeader
		case bytes.Equal(m4, []byte{0x03, 0x02, 0x00, 0x00}):
			return AgilentMasshunterDad
		case bytes.Equal(m4, []byte{0x28, 0xB5, 0x2F, 0xFD}):
			return Zstd
		case m4[0] == 0xFF && m4[1] == 0xFF && (m4[2] == 0x06 || m4[2] == 0x05) && m4[3] == 0x00:
			if len(magic) >= 78 && bytes.Equal(magic[52:64], []byte("C\x00I\x00s\x00o\x00G\x00C\x00")) {
				return ThermoCf
			}
			return ThermoDxf
		}
	}
	if len(magic) < 2 {
		return Unknown
	}
	m2 := magic[:2]
	switch {
	case (m2[0] == 0x0F || m2[0] == 0x1F) && m2[1] == 0x8B:
		return Gzip
	case m2[0] == 0x42 && m2[1] == 0x5A:
		return Bzip
	case m2[0] == 0xFD && m2[1] == 0x37:
		return Lzma
	case m2[0] == 0x24 && m2[1] == 0x00:
		return BrukerBaf
	case m2[0] == 0x43 && m2[1] == 0x44:
		return NetCdf
	}
	switch magic[0] {
	case '>':
		return Fasta
	case '@':
		return Fastq
	default:
		return Unknown
	}
}

func matchesAny(b []byte, candidates ...string) bool {
	for _, c := range candidates {
		if string(b) == c {
			return true
		}
	}
	return false
}

// IsCompression reports whether ft names a compression wrapper rather than
// a record format.
func IsCompression(ft FileType) bool {
	switch ft {
	case Gzip, Bzip, Lzma, Zstd:
		return true
	default:
		return false
	}
}
