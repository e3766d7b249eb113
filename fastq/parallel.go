package fastq

import "github.com/bovee/entab"

// DecodeParallel splits an in-memory FASTQ buffer into workers chunks along
// '@'-at-line-start boundaries and decodes each chunk concurrently, then
// reassembles records in file order. It is the one opt-in use of
// entab.ParallelDecode in this module: FASTQ records are self-delimiting
// (each starts with '@' at the front of a line) with no state carried
// across records, which the delta-encoded Chemstation/Thermo formats don't
// satisfy.
func DecodeParallel(data []byte, workers int) ([]*Record, error) {
	bounds := entab.ChunkBoundaries(data, workers, func(pos int) bool {
		return pos == 0 || (data[pos] == '@' && data[pos-1] == '\n')
	})
	return entab.ParallelDecode(data, bounds, func(chunk []byte) ([]*Record, error) {
		r := NewReaderFromSlice(chunk)
		var recs []*Record
		for {
			rec, err := r.Next()
			if err != nil {
				return nil, err
			}
			if rec == nil {
				break
			}
			recs = append(recs, rec)
		}
		return recs, nil
	})
}
