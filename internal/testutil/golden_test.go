package testutil_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/peteragility/smartone/internal/testutil"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"CRLF to LF", "line1\r\nline2\r\n", "line1\nline2"},
		{"trailing whitespace", "line1   \nline2\t\n", "line1\nline2"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := testutil.Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestScrub(t *testing.T) {
	got := testutil.ScrubUUIDs("query 123e4567-e89b-12d3-a456-426614174000 done")
	if got != "query [UUID] done" {
		t.Errorf("ScrubUUIDs() = %q", got)
	}
	got = testutil.ScrubTimestamps(`"timestamp":"2026-01-15T10:30:45.123Z" at 10:30:45`)
	if got != `"timestamp":"[TIMESTAMP]" at [TIMESTAMP]` {
		t.Errorf("ScrubTimestamps() = %q", got)
	}
	got = testutil.ScrubTimestamps("## You (2026-10-18T09:15:00+02:00)")
	if got != "## You ([TIMESTAMP])" {
		t.Errorf("ScrubTimestamps() = %q", got)
	}
}

func TestFakeSource_Replays(t *testing.T) {
	src := testutil.NewFakeSource(testutil.ToolEvent("calculator"), testutil.DataEvent("4"))
	es, err := src.Stream(context.Background(), "2+2")
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	defer es.Close()

	for i := 0; i < 2; i++ {
		if _, err := es.Recv(); err != nil {
			t.Fatalf("Recv(%d) error = %v", i, err)
		}
	}
	if _, err := es.Recv(); !errors.Is(err, io.EOF) {
		t.Errorf("Recv() after end = %v, want io.EOF", err)
	}
	if q := src.Queries(); len(q) != 1 || q[0] != "2+2" {
		t.Errorf("Queries() = %v", q)
	}
}

func TestFakeSource_RecvErr(t *testing.T) {
	boom := errors.New("boom")
	src := testutil.NewFakeSource()
	src.RecvErr = boom

	es, _ := src.Stream(context.Background(), "q")
	if _, err := es.Recv(); !errors.Is(err, boom) {
		t.Errorf("Recv() = %v, want boom", err)
	}
}
