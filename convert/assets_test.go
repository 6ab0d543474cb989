package convert

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/multierr"
	"go.uber.org/zap/zaptest"

	"hsplit/config"
)

func TestResolveRelative(t *testing.T) {
	tests := []struct {
		base, ref string
		want      string
		ok        bool
	}{
		{"stylesheet.css", "images/a.png", "images/a.png", true},
		{"css/main.css", "../images/a.png", "images/a.png", true},
		{"css/main.css", "fonts/x.ttf", "css/fonts/x.ttf", true},
		{"", "stylesheet.css", "stylesheet.css", true},
		{"stylesheet.css", "../outside.png", "", false},
		{"css/main.css", "../../outside.png", "", false},
		{"stylesheet.css", ".", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.base+"+"+tt.ref, func(t *testing.T) {
			got, ok := resolveRelative(tt.base, tt.ref)
			if got != tt.want || ok != tt.ok {
				t.Errorf("resolveRelative() = %q, %v, want %q, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestCopyAssets_Problems(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	files := map[string]string{
		"css/main.css":     `@import "missing.css"; body { background: url(../images/bg.png) } .x { background: url(../../escape.png) }`,
		"images/bg.png":    string(pngData),
		"images/sub/c.png": string(pngData),
	}
	for name, data := range files {
		path := filepath.Join(src, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(data), 0644); err != nil {
			t.Fatal(err)
		}
	}

	cfg := &config.AssetsConfig{Copy: true, Images: config.ImagesConfig{Directory: "images", JPEGQuality: 85}}
	err := copyAssets(context.Background(), src, dst, cfg, []string{"css/main.css", "absent.css"}, zaptest.NewLogger(t))

	errs := multierr.Errors(err)
	if len(errs) != 2 {
		t.Fatalf("expected 2 problems, got %v", errs)
	}
	if !strings.Contains(err.Error(), "missing.css") || !strings.Contains(err.Error(), "absent.css") {
		t.Errorf("unexpected problems: %v", err)
	}
	for _, name := range []string{"css/main.css", "images/bg.png", "images/sub/c.png"} {
		if _, err := os.Stat(filepath.Join(dst, filepath.FromSlash(name))); err != nil {
			t.Errorf("%s was not copied: %v", name, err)
		}
	}
}

func TestCopyAssets_NoImagesDirectory(t *testing.T) {
	cfg := &config.AssetsConfig{Copy: true, Images: config.ImagesConfig{Directory: "images"}}
	if err := copyAssets(context.Background(), t.TempDir(), t.TempDir(), cfg, nil, zaptest.NewLogger(t)); err != nil {
		t.Errorf("copyAssets() error = %v", err)
	}
}
