package config

import (
	"reflect"
	"testing"
)

func TestParseBuckets(t *testing.T) {
	cases := []struct {
		raw  string
		want []int
	}{
		{"30,60,90", []int{30, 60, 90}},
		{"7, 14, 21", []int{7, 14, 21}},
		{"abc", []int{30, 60, 90}},
		{"90,60,30", []int{30, 60, 90}},
		{"", []int{30, 60, 90}},
	}
	for _, c := range cases {
		if got := parseBuckets(c.raw); !reflect.DeepEqual(got, c.want) {
			t.Errorf("parseBuckets(%q) = %v, want %v", c.raw, got, c.want)
		}
	}
}
