package db

import (
	"github.com/jackc/pgx/v5"
)

// ChannelSource implements pgx.CopyFromSource by reading coerced rows from
// a channel, so the TSV reader and the COPY writer run concurrently.
type ChannelSource struct {
	ch      <-chan []any
	current []any
	n       int64
}

// NewChannelSource creates a CopyFromSource backed by a channel.
func NewChannelSource(ch <-chan []any) *ChannelSource {
	return &ChannelSource{ch: ch}
}

// Next advances to the next row. Returns false when the channel is closed.
func (s *ChannelSource) Next() bool {
	row, ok := <-s.ch
	if !ok {
		return false
	}
	s.current = row
	s.n++
	return true
}

// Values returns the current row in table column order.
func (s *ChannelSource) Values() ([]any, error) {
	return s.current, nil
}

func (s *ChannelSource) Err() error {
	return nil
}

// Count is the number of rows handed to COPY so far.
func (s *ChannelSource) Count() int64 {
	return s.n
}

var _ pgx.CopyFromSource = (*ChannelSource)(nil)
