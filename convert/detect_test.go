package convert

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
)

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	zipFile, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create zip file: %v", err)
	}
	defer zipFile.Close()

	w := zip.NewWriter(zipFile)
	for name, content := range files {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("Failed to create file in zip: %v", err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatalf("Failed to write file in zip: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close zip: %v", err)
	}
}

// TestIsArchiveFile tests archive file detection
func TestIsArchiveFile(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("non-zip extension", func(t *testing.T) {
		filePath := filepath.Join(tmpDir, "test.txt")
		if err := os.WriteFile(filePath, []byte("not a zip"), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
		got, err := isArchiveFile(filePath)
		if err != nil {
			t.Errorf("isArchiveFile() error = %v", err)
		}
		if got {
			t.Error("isArchiveFile() = true, want false")
		}
	})

	t.Run("zip extension but invalid content", func(t *testing.T) {
		filePath := filepath.Join(tmpDir, "test.zip")
		if err := os.WriteFile(filePath, []byte("not a real zip file"), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
		got, err := isArchiveFile(filePath)
		if err != nil {
			t.Errorf("isArchiveFile() error = %v", err)
		}
		if got {
			t.Error("isArchiveFile() = true, want false")
		}
	})

	for _, name := range []string{"book.zip", "book.HTMLZ"} {
		t.Run("valid "+name, func(t *testing.T) {
			filePath := filepath.Join(tmpDir, name)
			writeZip(t, filePath, map[string]string{"index.html": "<html></html>"})
			got, err := isArchiveFile(filePath)
			if err != nil {
				t.Errorf("isArchiveFile() error = %v", err)
			}
			if !got {
				t.Error("isArchiveFile() = false, want true")
			}
		})
	}

	t.Run("non-existent", func(t *testing.T) {
		if _, err := isArchiveFile("/nonexistent/file.zip"); err == nil {
			t.Error("Expected error for non-existent file, got nil")
		}
	})
}

func TestIsHTMLFile(t *testing.T) {
	tmpDir := t.TempDir()

	png := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'}
	tests := []struct {
		name    string
		file    string
		content []byte
		want    bool
	}{
		{"html", "index.html", []byte("<html><body></body></html>"), true},
		{"xhtml with declaration", "page.xhtml", []byte("<?xml version='1.0' encoding='utf-8'?>\n<html/>"), true},
		{"upper case htm", "OLD.HTM", []byte("<HTML></HTML>"), true},
		{"empty", "empty.html", nil, true},
		{"wrong extension", "notes.txt", []byte("<html></html>"), false},
		{"binary with html extension", "image.html", png, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(tmpDir, tt.file)
			if err := os.WriteFile(path, tt.content, 0644); err != nil {
				t.Fatal(err)
			}
			got, err := isHTMLFile(path)
			if err != nil {
				t.Fatalf("isHTMLFile() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("isHTMLFile() = %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := isHTMLFile(filepath.Join(tmpDir, "missing.html")); err == nil {
		t.Error("Expected error for missing file")
	}
}
