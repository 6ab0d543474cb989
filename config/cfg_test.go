package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rupor-github/gencfg"
)

func TestLoadConfiguration_NoFile(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() with empty path error = %v", err)
	}
	if cfg == nil {
		t.Fatal("LoadConfiguration() returned nil config")
	}
	if cfg.Version != 1 {
		t.Errorf("Default config version = %d, want 1", cfg.Version)
	}
	if cfg.Document.Rules != "calibre-h1" {
		t.Errorf("Default rules = %q, want calibre-h1", cfg.Document.Rules)
	}
	if cfg.Document.InputName != "index.html" {
		t.Errorf("Default input name = %q, want index.html", cfg.Document.InputName)
	}
}

func TestLoadConfiguration_WithFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `version: 1
document:
  rules: silkroads
  site:
    nav_label_max: 30
    button_label_max: 12
    prev_label: "上一章"
    next_label: "下一章"
    toc_xml: true
  assets:
    stylesheets: ["stylesheet.css", "page_styles.css"]
    images:
      directory: img
      dedupe: false
      max_width: 1200
      jpeg_quality_level: 75
logging:
  console:
    level: normal
  file:
    level: debug
    destination: ` + filepath.Join(tmpDir, "test.log") + `
    mode: append
reporting:
  destination: ` + filepath.Join(tmpDir, "test-report.zip") + `
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := LoadConfiguration(configPath)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if cfg.Document.Rules != "silkroads" {
		t.Errorf("Rules = %q, want silkroads", cfg.Document.Rules)
	}
	if cfg.Document.Site.NavLabelMax != 30 || cfg.Document.Site.ButtonLabelMax != 12 {
		t.Errorf("label limits = %d/%d, want 30/12", cfg.Document.Site.NavLabelMax, cfg.Document.Site.ButtonLabelMax)
	}
	if cfg.Document.Site.PrevLabel != "上一章" {
		t.Errorf("PrevLabel = %q", cfg.Document.Site.PrevLabel)
	}
	if !cfg.Document.Site.TOCXML {
		t.Error("Expected TOCXML to be true")
	}
	if len(cfg.Document.Assets.Stylesheets) != 2 {
		t.Errorf("Stylesheets length = %d, want 2", len(cfg.Document.Assets.Stylesheets))
	}
	if cfg.Document.Assets.Images.Directory != "img" || cfg.Document.Assets.Images.Dedupe {
		t.Errorf("Images = %+v", cfg.Document.Assets.Images)
	}
	if cfg.Document.Assets.Images.MaxWidth != 1200 || cfg.Document.Assets.Images.JPEGQuality != 75 {
		t.Errorf("Images = %+v", cfg.Document.Assets.Images)
	}
	// values not present in the file come from template
	if cfg.Document.InputName != "index.html" {
		t.Errorf("InputName = %q, want default", cfg.Document.InputName)
	}
	if !cfg.Document.Assets.Copy {
		t.Error("Expected Assets.Copy default to be true")
	}
}

func TestLoadConfiguration_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid yaml", "version: 1\ndocument:\n  rules: x\n  invalid indent\n"},
		{"unknown field", "version: 1\nunknown_field: value\n"},
		{"invalid version", "version: 2\n"},
		{"jpeg quality out of range", "version: 1\ndocument:\n  assets:\n    images:\n      jpeg_quality_level: 10\n"},
		{"negative label limit", "version: 1\ndocument:\n  site:\n    nav_label_max: -1\n"},
		{"empty rules", "version: 1\ndocument:\n  rules: \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("Failed to write config file: %v", err)
			}
			if _, err := LoadConfiguration(path); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestLoadConfiguration_NonExistentFile(t *testing.T) {
	_, err := LoadConfiguration("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Expected error for nonexistent file")
	}
}

func TestLoadConfiguration_WithOptions(t *testing.T) {
	option := func(opts *gencfg.ProcessingOptions) {}

	cfg, err := LoadConfiguration("", option)
	if err != nil {
		t.Fatalf("LoadConfiguration() with options error = %v", err)
	}
	if cfg == nil {
		t.Fatal("LoadConfiguration() returned nil config")
	}
}

func TestPrepare(t *testing.T) {
	data, err := Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if len(data) == 0 {
		t.Fatal("Prepare() returned empty data")
	}
	if _, err = unmarshalConfig(data, &Config{}, true); err != nil {
		t.Errorf("Prepared config is not valid: %v", err)
	}
}

func TestDump(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	cfg.Document.Rules = "sapiens"
	cfg.Document.OutputNameTemplate = "{{ .Title }}"

	data, err := Dump(cfg)
	if err != nil {
		t.Fatalf("Dump() error = %v", err)
	}

	cfg2, err := unmarshalConfig(data, &Config{}, false)
	if err != nil {
		t.Fatalf("Dumped config cannot be loaded: %v", err)
	}
	if cfg2.Document.Rules != "sapiens" {
		t.Errorf("Rules after dump = %q, want sapiens", cfg2.Document.Rules)
	}
	if cfg2.Document.OutputNameTemplate != "{{ .Title }}" {
		t.Errorf("OutputNameTemplate after dump = %q", cfg2.Document.OutputNameTemplate)
	}
}

func TestOutputNameTemplateNotExpanded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "version: 1\ndocument:\n  output_name_template: \"{{ .SourceFile }}-site\"\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	cfg, err := LoadConfiguration(path)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	if cfg.Document.OutputNameTemplate != "{{ .SourceFile }}-site" {
		t.Errorf("OutputNameTemplate = %q, want template kept as is", cfg.Document.OutputNameTemplate)
	}
}

func TestCleanFileName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"book", "book"},
		{"  spaced  ", "spaced"},
		{"", "untitled"},
		{"a" + string(os.PathSeparator) + "b", "ab"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := CleanFileName(tt.in); got != tt.want {
				t.Errorf("CleanFileName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
