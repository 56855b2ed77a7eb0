package render

import (
	"reflect"
	"testing"
)

func TestParseMarkup(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []Span
	}{
		{
			name: "plain",
			in:   "hello world",
			want: []Span{{Text: "hello world"}},
		},
		{
			name: "single accent",
			in:   "hello **Mira** dear",
			want: []Span{{Text: "hello "}, {Text: "Mira", Accent: true}, {Text: " dear"}},
		},
		{
			name: "accent at start",
			in:   "**Mira** waves",
			want: []Span{{Text: "Mira", Accent: true}, {Text: " waves"}},
		},
		{
			name: "multiple accents",
			in:   "**a** and **b**",
			want: []Span{{Text: "a", Accent: true}, {Text: " and "}, {Text: "b", Accent: true}},
		},
		{
			name: "unbalanced trailing marker stays literal",
			in:   "hello **Mira",
			want: []Span{{Text: "hello **Mira"}},
		},
		{
			name: "odd third marker stays literal",
			in:   "**a** then **b",
			want: []Span{{Text: "a", Accent: true}, {Text: " then **b"}},
		},
		{
			name: "empty accent dropped",
			in:   "a****b",
			want: []Span{{Text: "a"}, {Text: "b"}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseMarkup(tc.in)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("ParseMarkup(%q) = %#v, want %#v", tc.in, got, tc.want)
			}
		})
	}
}
