package utils

import "testing"

func TestConvertFilename(t *testing.T) {
	tt := []struct {
		name  string
		input string
		want  string
	}{
		{`spaces`, `/home/me/My Movie.mp4`, `My%20Movie.mp4`},
		{`reserved`, `a&b?c.mkv`, `a%26b%3Fc.mkv`},
		{`plain`, `clip.webm`, `clip.webm`},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			if got := ConvertFilename(tc.input); got != tc.want {
				t.Fatalf("ConvertFilename(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestRandomString(t *testing.T) {
	a, err := RandomString()
	if err != nil {
		t.Fatalf("RandomString() error = %v", err)
	}
	b, _ := RandomString()

	if len(a) != 32 {
		t.Fatalf("len(RandomString()) = %d, want 32", len(a))
	}
	if a == b {
		t.Fatalf("RandomString() repeated %s", a)
	}
}
