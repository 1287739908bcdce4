package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadInlineValue(t *testing.T) {
	secret, err := Load(Source{Name: "GEMINI_API_KEY", Value: "  key-123\n"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if secret != "key-123" {
		t.Fatalf("unexpected secret: %q", secret)
	}
}

func TestLoadFileTakesPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(path, []byte("from-file\n"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}

	secret, err := Load(Source{Name: "OPENAI_API_KEY", Value: "inline", File: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if secret != "from-file" {
		t.Fatalf("expected file value, got %q", secret)
	}
}

func TestLoadErrors(t *testing.T) {
	empty := filepath.Join(t.TempDir(), "empty")
	if err := os.WriteFile(empty, []byte("  \n"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}

	tests := []struct {
		name   string
		src    Source
		expect string
	}{
		{name: "unset", src: Source{Name: "OPENAI_API_KEY"}, expect: "OPENAI_API_KEY not set"},
		{name: "unnamed", src: Source{}, expect: "secret not set"},
		{name: "empty file", src: Source{Name: "GEMINI_API_KEY", File: empty}, expect: "is empty"},
		{name: "missing file", src: Source{Name: "GEMINI_API_KEY", File: filepath.Join(t.TempDir(), "nope")}, expect: "reading GEMINI_API_KEY from file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.src)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.expect) {
				t.Fatalf("expected %q in %q", tt.expect, err.Error())
			}
		})
	}
}
