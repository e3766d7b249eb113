package dispatch

import (
	"github.com/bovee/entab"
	"github.com/bovee/entab/chemstation"
	"github.com/bovee/entab/fasta"
	"github.com/bovee/entab/fastq"
	"github.com/bovee/entab/fcs"
	"github.com/bovee/entab/png"
	"github.com/bovee/entab/thermoraw"
	"github.com/bovee/entab/tsv"
)

// Each adapter below boxes one format package's concrete reader behind
// entab.Reader, converting its typed *Record into an entab.Row. Formats
// whose Record has a ToRow method use it directly; formats whose package
// exposes ToRow as a free function (fasta, fastq, png) call that instead.

type fastaAdapter struct{ r *fasta.Reader }

func (a *fastaAdapter) Headers() []string        { return a.r.Headers() }
func (a *fastaAdapter) Metadata() entab.Metadata { return a.r.Metadata() }
func (a *fastaAdapter) Next() (entab.Row, error) {
	rec, err := a.r.Next()
	if err != nil || rec == nil {
		return nil, err
	}
	return fasta.ToRow(rec), nil
}

type fastqAdapter struct{ r *fastq.Reader }

func (a *fastqAdapter) Headers() []string        { return a.r.Headers() }
func (a *fastqAdapter) Metadata() entab.Metadata { return a.r.Metadata() }
func (a *fastqAdapter) Next() (entab.Row, error) {
	rec, err := a.r.Next()
	if err != nil || rec == nil {
		return nil, err
	}
	return fastq.ToRow(rec), nil
}

type tsvAdapter struct{ r *tsv.Reader }

func (a *tsvAdapter) Headers() []string        { return a.r.Headers() }
func (a *tsvAdapter) Metadata() entab.Metadata { return a.r.Metadata() }
func (a *tsvAdapter) Next() (entab.Row, error) {
	rec, err := a.r.Next()
	if err != nil || rec == nil {
		return nil, err
	}
	return rec.ToRow(), nil
}

type pngAdapter struct{ r *png.Reader }

func (a *pngAdapter) Headers() []string        { return a.r.Headers() }
func (a *pngAdapter) Metadata() entab.Metadata { return a.r.Metadata() }
func (a *pngAdapter) Next() (entab.Row, error) {
	rec, err := a.r.Next()
	if err != nil || rec == nil {
		return nil, err
	}
	return png.ToRow(rec), nil
}

type fcsAdapter struct{ r *fcs.Reader }

// Headers and Metadata are re-read from the underlying reader on every
// call rather than snapshotted at construction time: a $NEXTDATA chain
// can replace both partway through the stream.
func (a *fcsAdapter) Headers() []string        { return a.r.Headers() }
func (a *fcsAdapter) Metadata() entab.Metadata { return a.r.Metadata() }
func (a *fcsAdapter) Next() (entab.Row, error) {
	rec, err := a.r.Next()
	if err != nil || rec == nil {
		return nil, err
	}
	return rec.ToRow(), nil
}

type thermorawAdapter struct{ r *thermoraw.Reader }

func (a *thermorawAdapter) Headers() []string        { return a.r.Headers() }
func (a *thermorawAdapter) Metadata() entab.Metadata { return a.r.Metadata() }
func (a *thermorawAdapter) Next() (entab.Row, error) {
	rec, err := a.r.Next()
	if err != nil || rec == nil {
		return nil, err
	}
	return rec.ToRow(), nil
}

type msAdapter struct{ r *chemstation.MsReader }

func (a *msAdapter) Headers() []string        { return a.r.Headers() }
func (a *msAdapter) Metadata() entab.Metadata { return a.r.Metadata() }
func (a *msAdapter) Next() (entab.Row, error) {
	rec, err := a.r.Next()
	if err != nil || rec == nil {
		return nil, err
	}
	return rec.ToRow(), nil
}

type fidAdapter struct{ r *chemstation.FidReader }

func (a *fidAdapter) Headers() []string        { return a.r.Headers() }
func (a *fidAdapter) Metadata() entab.Metadata { return a.r.Metadata() }
func (a *fidAdapter) Next() (entab.Row, error) {
	rec, err := a.r.Next()
	if err != nil || rec == nil {
		return nil, err
	}
	return rec.ToRow(), nil
}

type mwdAdapter struct{ r *chemstation.MwdReader }

func (a *mwdAdapter) Headers() []string        { return a.r.Headers() }
func (a *mwdAdapter) Metadata() entab.Metadata { return a.r.Metadata() }
func (a *mwdAdapter) Next() (entab.Row, error) {
	rec, err := a.r.Next()
	if err != nil || rec == nil {
		return nil, err
	}
	return rec.ToRow(), nil
}

type dadAdapter struct{ r *chemstation.DadReader }

func (a *dadAdapter) Headers() []string        { return a.r.Headers() }
func (a *dadAdapter) Metadata() entab.Metadata { return a.r.Metadata() }
func (a *dadAdapter) Next() (entab.Row, error) {
	rec, err := a.r.Next()
	if err != nil || rec == nil {
		return nil, err
	}
	return rec.ToRow(), nil
}

type newUvAdapter struct{ r *chemstation.NewUvReader }

func (a *newUvAdapter) Headers() []string        { return a.r.Headers() }
func (a *newUvAdapter) Metadata() entab.Metadata { return a.r.Metadata() }
func (a *newUvAdapter) Next() (entab.Row, error) {
	rec, err := a.r.Next()
	if err != nil || rec == nil {
		return nil, err
	}
	return rec.ToRow(), nil
}
