package storage

import (
	"reflect"
	"testing"
)

func TestSplitPath(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"/", nil},
		{"docs", []string{"docs"}},
		{"/docs/notes/", []string{"docs", "notes"}},
		{"docs\\notes", []string{"docs", "notes"}},
		{"docs|notes|a.txt", []string{"docs", "notes", "a.txt"}},
		{"//docs///a.txt", []string{"docs", "a.txt"}},
	}
	for _, tc := range cases {
		got := SplitPath(tc.in)
		if len(got) == 0 && len(tc.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("SplitPath(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestObjectKey(t *testing.T) {
	got := ObjectKey(AreaStudent, "S001", "docs", "a.txt")
	want := "student/S001/docs/a.txt"
	if got != want {
		t.Fatalf("ObjectKey = %q, want %q", got, want)
	}
}

func TestObjectKeyNoSegments(t *testing.T) {
	got := ObjectKey(AreaTeacher, "T001")
	want := "teacher/T001"
	if got != want {
		t.Fatalf("ObjectKey = %q, want %q", got, want)
	}
}
