package csv

import (
	"encoding/csv"
	"io"

	"golang.org/x/xerrors"
)

// Produces a list of fields making up a record.
type Recorder interface {
	Record() []string
}

// Produces the column names matching a Recorder's fields.
type Headerer interface {
	Header() []string
}

// An Encoder writes CSV records to an output stream.
type Encoder struct {
	w *csv.Writer

	header  bool
	written bool
}

// NewEncoder returns a new encoder that writes to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: csv.NewWriter(w)}
}

// NewHeaderEncoder returns an encoder that precedes the first record with
// a header row when the value implements Headerer.
func NewHeaderEncoder(w io.Writer) *Encoder {
	return &Encoder{w: csv.NewWriter(w), header: true}
}

// Encode writes a CSV record representing v to the stream followed by a
// newline character. Value given must implement the Recorder interface.
func (enc *Encoder) Encode(v interface{}) (err error) {
	defer func() {
		if rerr, _ := recover().(error); rerr != nil {
			err = xerrors.Errorf("recovered: %w", rerr)
		}
	}()

	record := v.(Recorder).Record()

	if enc.header && !enc.written {
		if h, ok := v.(Headerer); ok {
			if err = enc.w.Write(h.Header()); err != nil {
				return xerrors.Errorf("header: %w", err)
			}
		}
	}
	enc.written = true

	if err = enc.w.Write(record); err != nil {
		return xerrors.Errorf("record: %w", err)
	}
	enc.w.Flush()

	return enc.w.Error()
}
