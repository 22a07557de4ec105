package protocol

import (
	"errors"
	"testing"
)

func TestParseCommand(t *testing.T) {
	cases := []struct {
		name string
		line string
		want Command
	}{
		{"set", "set apple 42 1000", Command{Kind: Set, Key: "apple", Value: "42", ReqID: 1000}},
		{"get", "get apple 1001", Command{Kind: Get, Key: "apple", ReqID: 1001}},
		{"del", "del apple 1002", Command{Kind: Del, Key: "apple", ReqID: 1002}},
		{"join", "join", Command{Kind: Join}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseCommand(tc.line)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %+v, want %+v", got, tc.want)
			}
		})
	}

	malformed := []string{
		"",
		"set apple",
		"set apple 42",
		"set apple 42 notanumber",
		"get apple",
		"get apple notanumber",
		"del apple",
		"join extra",
		"unknown apple 42 1000",
	}
	for _, line := range malformed {
		t.Run("malformed: "+line, func(t *testing.T) {
			_, err := ParseCommand(line)
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("expected ErrMalformed for %q, got %v", line, err)
			}
		})
	}
}

func TestCommandFormatRoundTrip(t *testing.T) {
	lines := []string{
		"set apple 42 1000",
		"get apple 1001",
		"del apple 1002",
		"join",
	}
	for _, line := range lines {
		cmd, err := ParseCommand(line)
		if err != nil {
			t.Fatalf("ParseCommand(%q): %v", line, err)
		}
		if got := cmd.Format(); got != line {
			t.Errorf("round trip mismatch: got %q, want %q", got, line)
		}
	}
}

func TestGetReply(t *testing.T) {
	t.Run("format then parse round trips", func(t *testing.T) {
		line := FormatGetReply("42", 1000)
		if line != "(42, 1000)" {
			t.Fatalf("got %q, want (42, 1000)", line)
		}

		value, reqID, err := ParseGetReply(line)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if value != "42" || reqID != 1000 {
			t.Errorf("got (%s, %d), want (42, 1000)", value, reqID)
		}
	})

	t.Run("malformed reply is rejected, never evaluated", func(t *testing.T) {
		for _, line := range []string{"", "42, 1000", "(42, 1000", "42, 1000)", "(42, notanumber)"} {
			if _, _, err := ParseGetReply(line); !errors.Is(err, ErrMalformedReply) {
				t.Errorf("expected ErrMalformedReply for %q, got %v", line, err)
			}
		}
	})
}
