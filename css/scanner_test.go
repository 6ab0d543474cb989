package css_test

import (
	"slices"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"hsplit/css"
)

const sample = `@import "base.css";
@import url(print.css) print;
@font-face { font-family: "Song"; src: url('fonts/song.ttf') format("truetype"); }
body { background: url(images/paper.jpg) repeat; }
.logo { background-image: url("images/logo 1.png"); }
.inline { background: url(data:image/png;base64,AAAA); }
`

func TestScanner_References(t *testing.T) {
	s := css.NewScanner(zaptest.NewLogger(t))
	refs := s.References([]byte(sample), "sample.css")

	want := []css.Reference{
		{URL: "base.css", Import: true},
		{URL: "print.css", Import: true},
		{URL: "fonts/song.ttf"},
		{URL: "images/paper.jpg"},
		{URL: "images/logo 1.png"},
		{URL: "data:image/png;base64,AAAA"},
	}
	if !slices.Equal(refs, want) {
		t.Errorf("References() =\n%v\nwant\n%v", refs, want)
	}
}

func TestScanner_RewriteUnchanged(t *testing.T) {
	s := css.NewScanner(zaptest.NewLogger(t))
	got := s.Rewrite([]byte(sample), func(r css.Reference) string { return r.URL })
	if string(got) != sample {
		t.Errorf("Rewrite() changed stylesheet:\n%s", got)
	}
}

func TestScanner_Rewrite(t *testing.T) {
	s := css.NewScanner(zaptest.NewLogger(t))
	got := string(s.Rewrite([]byte(sample), func(r css.Reference) string {
		if strings.HasPrefix(r.URL, "images/") {
			return "images/common.jpg"
		}
		return r.URL
	}))

	for _, want := range []string{
		`url(images/common.jpg) repeat`,
		`url("images/common.jpg");`,
		`url('fonts/song.ttf')`,
		`@import "base.css";`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Rewrite() result does not contain %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "paper.jpg") || strings.Contains(got, "logo 1.png") {
		t.Errorf("Rewrite() left old references:\n%s", got)
	}
}

func TestIsLocal(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"images/a.png", true},
		{"../fonts/b.ttf", true},
		{"a.png?v=2", true},
		{"", false},
		{"#frag", false},
		{"/abs/a.png", false},
		{"http://example.com/a.png", false},
		{"//cdn.example.com/a.png", false},
		{"DATA:image/png;base64,AA", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if got := css.IsLocal(tt.url); got != tt.want {
				t.Errorf("IsLocal(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestPath(t *testing.T) {
	if got := css.Path("fonts/a.woff?v=1#x"); got != "fonts/a.woff" {
		t.Errorf("Path() = %q", got)
	}
	if got := css.Path("a.png"); got != "a.png" {
		t.Errorf("Path() = %q", got)
	}
}
