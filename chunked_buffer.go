package entab

import "golang.org/x/sync/errgroup"

// ChunkBoundaries splits data into up to n roughly equal byte ranges, each
// adjusted forward to the next position where isBoundary reports true (or to
// len(data) if none remains), so that no chunk splits a record in half.
// Grounded in the record-boundary-detection approach used to split CSV
// input across workers, adapted here to a caller-supplied predicate rather
// than a fixed quote-ambiguity scan, since FASTQ's record starts ('@' lines)
// aren't resolvable by a local quote-parity check the way CSV's are.
func ChunkBoundaries(data []byte, n int, isBoundary func(pos int) bool) []int {
	if n < 1 {
		n = 1
	}
	bounds := make([]int, 0, n+1)
	bounds = append(bounds, 0)
	step := len(data) / n
	if step == 0 {
		return []int{0, len(data)}
	}
	for i := 1; i < n; i++ {
		pos := i * step
		for pos < len(data) && !isBoundary(pos) {
			pos++
		}
		if pos > bounds[len(bounds)-1] && pos < len(data) {
			bounds = append(bounds, pos)
		}
	}
	bounds = append(bounds, len(data))
	return bounds
}

// ParallelDecode runs decode once per [start,end) byte range of data
// concurrently via an errgroup, then returns the per-range results
// concatenated in original file order. decode must not depend on any other
// range's state - it is only valid for self-delimiting record formats
// (e.g. FASTQ) whose record boundaries are locatable without cross-record
// state; Chemstation and Thermo RAW's delta-encoded/trailer-indirected
// streams never call this.
func ParallelDecode[R any](data []byte, bounds []int, decode func(chunk []byte) ([]R, error)) ([]R, error) {
	n := len(bounds) - 1
	results := make([][]R, n)
	g := new(errgroup.Group)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			recs, err := decode(data[bounds[i]:bounds[i+1]])
			if err != nil {
				return err
			}
			results[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var out []R
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}
