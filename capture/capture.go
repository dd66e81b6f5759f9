// LIGHTHOUSE - A decoder for lighthouse v2 optical sweep signals.
// Copyright (C) 2023 Douglas Hall
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package capture reads and writes recorded capture windows.
//
// A recording is a plain sequence of frames. Each frame holds one window per
// receiver, receiver 0 first. Recordings may be gzip or zstd compressed,
// the codec is chosen by file extension.
package capture

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bemasher/lighthouse/demod"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

const (
	Receivers = 2
	FrameSize = Receivers * demod.BufferSize
)

// A Frame is one capture window from each receiver.
type Frame [Receivers][demod.BufferSize]byte

type Codec int

const (
	None Codec = iota
	Gzip
	Zstd
)

func (c Codec) String() string {
	switch c {
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	}
	return "none"
}

// CodecFor picks a codec from a file's extension.
func CodecFor(path string) Codec {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		return Gzip
	case ".zst", ".zstd":
		return Zstd
	}
	return None
}

// A Reader reads frames from a recording.
type Reader struct {
	r      io.Reader
	closer []io.Closer
	frames int
}

// NewReader returns a reader decompressing r with codec.
func NewReader(r io.Reader, codec Codec) (*Reader, error) {
	rd := &Reader{r: r}

	switch codec {
	case Gzip:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, "gzip")
		}
		rd.r = gz
		rd.closer = append(rd.closer, gz)
	case Zstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, "zstd")
		}
		zr := dec.IOReadCloser()
		rd.r = zr
		rd.closer = append(rd.closer, zr)
	}

	return rd, nil
}

// Open opens the recording at path.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open capture")
	}

	rd, err := NewReader(f, CodecFor(path))
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "open capture %s", path)
	}
	rd.closer = append(rd.closer, f)

	return rd, nil
}

// Next reads the next frame. It returns io.EOF when the recording ends
// cleanly on a frame boundary.
func (rd *Reader) Next() (f Frame, err error) {
	buf := make([]byte, FrameSize)

	_, err = io.ReadFull(rd.r, buf)
	switch err {
	case nil:
	case io.EOF:
		return f, io.EOF
	default:
		return f, errors.Wrapf(err, "frame %d", rd.frames)
	}

	for receiver := range f {
		copy(f[receiver][:], buf[receiver*demod.BufferSize:])
	}
	rd.frames++

	return f, nil
}

// Frames returns the number of frames read so far.
func (rd *Reader) Frames() int { return rd.frames }

func (rd *Reader) Close() (err error) {
	for _, c := range rd.closer {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// A Writer appends frames to a recording.
type Writer struct {
	w      io.Writer
	closer []io.Closer
}

// NewWriter returns a writer compressing to w with codec.
func NewWriter(w io.Writer, codec Codec) (*Writer, error) {
	wr := &Writer{w: w}

	switch codec {
	case Gzip:
		gz := gzip.NewWriter(w)
		wr.w = gz
		wr.closer = append(wr.closer, gz)
	case Zstd:
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, errors.Wrap(err, "zstd")
		}
		wr.w = enc
		wr.closer = append(wr.closer, enc)
	}

	return wr, nil
}

// Create creates a recording at path, compressed according to its
// extension.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "create capture")
	}

	wr, err := NewWriter(f, CodecFor(path))
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "create capture %s", path)
	}
	wr.closer = append(wr.closer, f)

	return wr, nil
}

func (wr *Writer) Write(f Frame) error {
	for receiver := range f {
		if _, err := wr.w.Write(f[receiver][:]); err != nil {
			return errors.Wrapf(err, "receiver %d", receiver)
		}
	}
	return nil
}

// Close flushes any compressor before closing the underlying file.
func (wr *Writer) Close() (err error) {
	for _, c := range wr.closer {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
