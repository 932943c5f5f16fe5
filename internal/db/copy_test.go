package db

import "testing"

func TestChannelSource(t *testing.T) {
	ch := make(chan []any, 2)
	ch <- []any{"V1", int64(1001)}
	ch <- []any{"V2", nil}
	close(ch)

	src := NewChannelSource(ch)
	var rows [][]any
	for src.Next() {
		vals, err := src.Values()
		if err != nil {
			t.Fatalf("Values: %v", err)
		}
		rows = append(rows, vals)
	}
	if src.Err() != nil {
		t.Fatalf("Err: %v", src.Err())
	}
	if src.Count() != 2 || len(rows) != 2 {
		t.Fatalf("got %d rows (count %d), want 2", len(rows), src.Count())
	}
	if rows[0][0] != "V1" || rows[1][1] != nil {
		t.Errorf("unexpected rows: %v", rows)
	}
}
