package convert

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"hsplit/config"
	"hsplit/rules"
	"hsplit/state"
)

var pngData = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R', 1, 2, 3}

const sampleDocument = `<?xml version='1.0' encoding='utf-8'?>
<html xmlns="http://www.w3.org/1999/xhtml" lang="en">
<head><title>Sample Book</title>
<link rel="stylesheet" type="text/css" href="stylesheet.css"/>
<link rel="stylesheet" href="http://example.com/remote.css"/>
</head>
<body class="calibre">
<div class="calibre"><h1>Preface</h1><p>See <a href="#sec-9">section nine</a>.</p></div>
<div class="calibre"><h1>Chapter One</h1><img src="images/a (1).png"/><img src="images/a%20(1).png"/></div>
<div class="calibre"><h1>Chapter Two</h1><img src="images/a.png"/></div>
<div class="calibre"><h1>Chapter Three</h1><h2 id="sec-9">Nine</h2></div>
</body></html>
`

// setupTestEnv creates a test environment with proper context and logger
func setupTestEnv(t *testing.T) (context.Context, *state.LocalEnv) {
	t.Helper()
	logger := zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	ctx := state.ContextWithEnv(context.Background())
	env := state.EnvFromContext(ctx)
	env.Log = logger
	env.Cfg = cfg
	return ctx, env
}

func compiledRules(t *testing.T, name string) *rules.Compiled {
	t.Helper()
	rs, err := rules.Preset(name)
	if err != nil {
		t.Fatalf("Preset() error = %v", err)
	}
	c, err := rs.Compile()
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	return c
}

// sourceFiles is a complete exported book with stylesheets and images.
func sourceFiles() map[string][]byte {
	return map[string][]byte{
		"index.html":         []byte(sampleDocument),
		"stylesheet.css":     []byte(`@import "extra.css"; body { background: url(images/bg.png); }`),
		"extra.css":          []byte(`@font-face { font-family: x; src: url(fonts/x.ttf); }`),
		"fonts/x.ttf":        []byte("font"),
		"images/a.png":       pngData,
		"images/a (1).png":   pngData,
		"images/bg.png":      append([]byte{}, append(pngData, 9)...),
		"images/notes.txt":   []byte("not an image"),
		"unrelated/file.bin": []byte("skip me"),
	}
}

func writeSourceDir(t *testing.T, dir string) {
	t.Helper()
	for name, data := range sourceFiles() {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func checkSite(t *testing.T, out string) {
	t.Helper()
	for _, name := range []string{"index.html", "chapter_01.html", "chapter_02.html", "chapter_03.html", "theme.css",
		"stylesheet.css", "extra.css", "fonts/x.ttf", "images/a.png", "images/bg.png", "images/notes.txt"} {
		if _, err := os.Stat(filepath.Join(out, filepath.FromSlash(name))); err != nil {
			t.Errorf("expected %s in site: %v", name, err)
		}
	}
	for _, name := range []string{"images/a (1).png", "unrelated/file.bin"} {
		if _, err := os.Stat(filepath.Join(out, filepath.FromSlash(name))); !os.IsNotExist(err) {
			t.Errorf("unexpected %s in site", name)
		}
	}

	home := readFile(t, filepath.Join(out, "index.html"))
	for _, want := range []string{
		`href="chapter_03.html#sec-9"`,
		`<link rel="stylesheet" href="theme.css">`,
		`<link rel="stylesheet" href="stylesheet.css">`,
		`<title>Preface - Sample Book</title>`,
		`<a class="next" href="chapter_01.html" title="Chapter One">Chapter One &rarr;</a>`,
	} {
		if !strings.Contains(home, want) {
			t.Errorf("index.html does not contain %q", want)
		}
	}
	if strings.Contains(home, `class="prev"`) {
		t.Error("home page must not have previous link")
	}

	one := readFile(t, filepath.Join(out, "chapter_01.html"))
	if strings.Contains(one, "a (1).png") || strings.Contains(one, "a%20(1).png") {
		t.Error("duplicate image reference was not rewritten")
	}
	if strings.Count(one, `src="images/a.png"`) != 2 {
		t.Errorf("chapter_01.html image references:\n%s", one)
	}
	if !strings.Contains(one, `<li class="level-0 active"><a href="chapter_01.html"`) {
		t.Error("active navigation entry is not marked")
	}
}

func TestProcess_SingleFile(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	src := t.TempDir()
	writeSourceDir(t, src)
	out := filepath.Join(t.TempDir(), "site")

	if err := process(ctx, filepath.Join(src, "index.html"), out, true, compiledRules(t, "calibre-h1"), zaptest.NewLogger(t)); err != nil {
		t.Fatalf("process() error = %v", err)
	}
	checkSite(t, out)

	// source is never modified
	if _, err := os.Stat(filepath.Join(src, "images", "a (1).png")); err != nil {
		t.Errorf("source image was removed: %v", err)
	}
}

func TestProcess_Directory(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	src := filepath.Join(t.TempDir(), "mybook")
	writeSourceDir(t, src)
	dst := t.TempDir()

	if err := process(ctx, src, dst, false, compiledRules(t, "calibre-h1"), zaptest.NewLogger(t)); err != nil {
		t.Fatalf("process() error = %v", err)
	}
	checkSite(t, filepath.Join(dst, "mybook"))
}

func TestProcess_DirectoryWithTail(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	src := t.TempDir()
	writeSourceDir(t, src)

	err := process(ctx, filepath.Join(src, "no-such.html"), t.TempDir(), false, compiledRules(t, "calibre-h1"), zaptest.NewLogger(t))
	if err == nil || !strings.Contains(err.Error(), "input source was not found") {
		t.Errorf("process() error = %v", err)
	}
}

func TestProcess_Archive(t *testing.T) {
	ctx, env := setupTestEnv(t)
	env.Cfg.Document.OutputNameTemplate = `{{ .SourceFile }}-{{ .Chapters }}`

	files := make(map[string]string)
	for name, data := range sourceFiles() {
		files["export/OEBPS/"+name] = string(data)
	}
	files["export/cover.html"] = "<html></html>"
	arc := filepath.Join(t.TempDir(), "book.htmlz")
	writeZip(t, arc, files)

	tests := []struct {
		name string
		src  string
	}{
		{"whole archive", arc},
		{"directory inside", filepath.Join(arc, "export", "OEBPS")},
		{"document inside", filepath.Join(arc, "export", "OEBPS", "index.html")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := t.TempDir()
			if err := process(ctx, tt.src, dst, false, compiledRules(t, "calibre-h1"), zaptest.NewLogger(t)); err != nil {
				t.Fatalf("process() error = %v", err)
			}
			checkSite(t, filepath.Join(dst, "book-4"))
		})
	}
}

func TestProcess_NonExistentPath(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	err := process(ctx, "/nonexistent/path/file.html", t.TempDir(), false, compiledRules(t, "calibre-h1"), zaptest.NewLogger(t))
	if err == nil {
		t.Fatal("Expected error for non-existent path, got nil")
	}
	if !strings.Contains(err.Error(), "input source was not found") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestProcess_NotMarkup(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	file := filepath.Join(t.TempDir(), "book.txt")
	if err := os.WriteFile(file, []byte("plain"), 0644); err != nil {
		t.Fatal(err)
	}
	err := process(ctx, file, t.TempDir(), false, compiledRules(t, "calibre-h1"), zaptest.NewLogger(t))
	if err == nil || !strings.Contains(err.Error(), "not recognized") {
		t.Errorf("process() error = %v", err)
	}
}

func TestProcess_CancelledContext(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	cancelCtx, cancel := context.WithCancel(ctx)
	cancel()

	err := process(cancelCtx, t.TempDir(), t.TempDir(), false, compiledRules(t, "calibre-h1"), zaptest.NewLogger(t))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled error, got %v", err)
	}
}

func TestProcess_ExistingOutput(t *testing.T) {
	ctx, env := setupTestEnv(t)
	src := t.TempDir()
	writeSourceDir(t, src)
	out := filepath.Join(t.TempDir(), "site")
	if err := os.MkdirAll(out, 0755); err != nil {
		t.Fatal(err)
	}
	marker := filepath.Join(out, "old.txt")
	if err := os.WriteFile(marker, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	rs := compiledRules(t, "calibre-h1")
	err := process(ctx, filepath.Join(src, "index.html"), out, true, rs, zaptest.NewLogger(t))
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("process() error = %v, want already exists", err)
	}
	if _, err := os.Stat(marker); err != nil {
		t.Error("existing output must be left untouched")
	}

	env.Overwrite = true
	if err := process(ctx, filepath.Join(src, "index.html"), out, true, rs, zaptest.NewLogger(t)); err != nil {
		t.Fatalf("process() with overwrite error = %v", err)
	}
	if _, err := os.Stat(marker); !os.IsNotExist(err) {
		t.Error("old site content must be replaced")
	}
	checkSite(t, out)

	entries, err := os.ReadDir(filepath.Dir(out))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("temporary directories left behind: %v", entries)
	}
}

func TestInspect(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	src := t.TempDir()
	writeSourceDir(t, src)

	var buf bytes.Buffer
	if err := inspect(ctx, &buf, src, compiledRules(t, "calibre-h1"), zaptest.NewLogger(t)); err != nil {
		t.Fatalf("inspect() error = %v", err)
	}
	got := buf.String()
	for _, want := range []string{
		"Headings (4 blocks)",
		`h2 class="" text="Nine"`,
		"Chapters (4 entries)",
		"toc shape=flat roots=4",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("inspection does not contain %q:\n%s", want, got)
		}
	}
}

func TestRulesCommand(t *testing.T) {
	ctx, _ := setupTestEnv(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"list", []string{"rules"}, "calibre-h1"},
		{"show preset", []string{"rules", "sapiens"}, "name: sapiens"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			cmd := &cli.Command{Name: "rules", Action: Rules, Writer: &buf}
			if err := cmd.Run(ctx, tt.args); err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("output does not contain %q:\n%s", tt.want, buf.String())
			}
		})
	}

	cmd := &cli.Command{Name: "rules", Action: Rules, Writer: &bytes.Buffer{}}
	if err := cmd.Run(ctx, []string{"rules", "no-such-rules"}); err == nil {
		t.Error("expected error for unknown rule set")
	}
}

func TestApplyFlags(t *testing.T) {
	ctx, env := setupTestEnv(t)
	cmd := &cli.Command{
		Name: "build",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "rules"},
			&cli.StringFlag{Name: "title"},
			&cli.StringFlag{Name: "input"},
			&cli.StringFlag{Name: "force-zip-cp"},
			&cli.StringFlag{Name: "encoding"},
		},
		Action: func(context.Context, *cli.Command) error { return nil },
	}
	args := []string{"build", "--rules", "sapiens", "--title", "T", "--input", "book.html", "--force-zip-cp", "cp866", "--encoding", "gbk"}
	if err := cmd.Run(ctx, args); err != nil {
		t.Fatal(err)
	}
	applyFlags(env, cmd, zaptest.NewLogger(t))

	if env.RulesName() != "sapiens" || env.Title != "T" || env.Cfg.Document.InputName != "book.html" {
		t.Errorf("flags not applied: rules=%q title=%q input=%q", env.RulesName(), env.Title, env.Cfg.Document.InputName)
	}
	if env.CodePage == nil || env.SourceEncoding == nil {
		t.Error("encodings were not resolved")
	}

	if enc := lookupEncoding("no-such-charset", zaptest.NewLogger(t)); enc != nil {
		t.Error("lookupEncoding() must ignore unknown names")
	}
}
