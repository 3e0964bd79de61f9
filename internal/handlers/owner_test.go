package handlers

import "testing"

func TestParseUserRef(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		in       string
		wantID   int64
		wantName string
		wantRest int
		ok       bool
	}{
		{"123456", 123456, "", 0, true},
		{"123456 @holder", 123456, "@holder", 0, true},
		{"123456 @holder 30d", 123456, "@holder", 1, true},
		{"123456 30d", 123456, "", 1, true},
		{"@holder", 0, "", 0, false},
		{"", 0, "", 0, false},
		{"abc", 0, "", 0, false},
	} {
		id, name, rest, ok := parseUserRef(tc.in)
		if ok != tc.ok || id != tc.wantID || name != tc.wantName || len(rest) != tc.wantRest {
			t.Errorf("parseUserRef(%q) = %d, %q, %d args, %v; want %d, %q, %d args, %v",
				tc.in, id, name, len(rest), ok, tc.wantID, tc.wantName, tc.wantRest, tc.ok)
		}
	}
}
