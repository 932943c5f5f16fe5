package parquetread

import (
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/gyeh/ehiledger/internal/model"
)

// Reader wraps a parquet GenericReader for streaming TimelineRow records.
type Reader struct {
	file   *os.File
	reader *parquet.GenericReader[model.TimelineRow]
}

// Open opens a timeline Parquet file and returns a streaming Reader.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open parquet file: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat parquet file: %w", err)
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open parquet: %w", err)
	}

	r := parquet.NewGenericReader[model.TimelineRow](pf)
	return &Reader{file: f, reader: r}, nil
}

func (r *Reader) NumRows() int64 {
	return r.reader.NumRows()
}

// Read reads up to len(rows) records. Returns io.EOF when done.
func (r *Reader) Read(rows []model.TimelineRow) (int, error) {
	n, err := r.reader.Read(rows)
	if err != nil && err != io.EOF {
		return n, fmt.Errorf("read parquet rows: %w", err)
	}
	return n, err
}

// ReadAll reads every remaining row.
func (r *Reader) ReadAll() ([]model.TimelineRow, error) {
	out := make([]model.TimelineRow, 0, r.NumRows())
	for {
		// Fresh buffer each pass: decoded pointer fields may reuse memory.
		buf := make([]model.TimelineRow, 256)
		n, err := r.Read(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
	}
}

func (r *Reader) Schema() *parquet.Schema {
	return r.reader.Schema()
}

// Close releases all resources.
func (r *Reader) Close() error {
	if err := r.reader.Close(); err != nil {
		r.file.Close()
		return err
	}
	return r.file.Close()
}
