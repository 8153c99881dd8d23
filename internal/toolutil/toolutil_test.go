package toolutil

import (
	"reflect"
	"testing"
)

func TestSplitLinks(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"newlines and commas", []string{"https://youtu.be/a\nhttps://youtu.be/b, https://youtu.be/c"},
			[]string{"https://youtu.be/a", "https://youtu.be/b", "https://youtu.be/c"}},
		{"duplicates across args", []string{"x y", "y\tz"}, []string{"x", "y", "z"}},
		{"quotes stripped", []string{`"https://youtu.be/a"; <https://youtu.be/b>`}, []string{"https://youtu.be/a", "https://youtu.be/b"}},
		{"empty", []string{"", " \n ,"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SplitLinks(tt.in...); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitLinks = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct{ n, def, max, want int }{
		{0, 50, 200, 50},
		{-3, 50, 200, 50},
		{10, 50, 200, 10},
		{500, 50, 200, 200},
		{500, 50, 0, 500},
	}
	for _, tt := range tests {
		if got := ClampLimit(tt.n, tt.def, tt.max); got != tt.want {
			t.Errorf("ClampLimit(%d, %d, %d) = %d, want %d", tt.n, tt.def, tt.max, got, tt.want)
		}
	}
}

func TestSplitIDs(t *testing.T) {
	if got := SplitIDs(" a, ,b,"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("SplitIDs = %q", got)
	}
	if got := SplitIDs(""); got != nil {
		t.Errorf("SplitIDs(\"\") = %q", got)
	}
}
