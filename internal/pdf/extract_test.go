package pdf

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindDOI(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"plain", "doi: 10.1093/molbev/msy096 more", "10.1093/molbev/msy096"},
		{"trailing punctuation", "see (10.1371/journal.pcbi.1006650).", "10.1371/journal.pcbi.1006650"},
		{"url form", "https://doi.org/10.7554/eLife.12345\nnext", "10.7554/eLife.12345"},
		{"none", "no identifiers here", ""},
		{"too few digits", "10.12/abc", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := findDOI(tt.text); got != tt.want {
				t.Errorf("findDOI() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFindTitle(t *testing.T) {
	text := "Journal of Molecular Evolution\nshort\n  Bayesian phylogenetic inference with BEAST 2  \nAuthors"
	if got, want := findTitle(text), "Bayesian phylogenetic inference with BEAST 2"; got != want {
		t.Errorf("findTitle() = %q, want %q", got, want)
	}
	if got := findTitle("tiny\nlines"); got != "" {
		t.Errorf("findTitle() = %q, want empty", got)
	}
}

func TestIsHeaderLine(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"Copyright 2024 The Authors", true},
		{"Volume 12, Issue 3, pages 1-10", true},
		{"This article was published online", true},
		{"Fast likelihood computation on trees", false},
	}
	for _, tt := range tests {
		if got := isHeaderLine(tt.line); got != tt.want {
			t.Errorf("isHeaderLine(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestInfo(t *testing.T) {
	info := Info{Path: "/papers/smith2024.pdf", DOI: "10.1000/xyz123"}
	if got := info.NodeName(); got != "smith2024" {
		t.Errorf("NodeName() = %q", got)
	}
	if got := info.URL(); got != "https://doi.org/10.1000/xyz123" {
		t.Errorf("URL() = %q", got)
	}
	if got := info.Description(); got != "Imported from smith2024.pdf (doi:10.1000/xyz123)" {
		t.Errorf("Description() = %q", got)
	}

	info = Info{Path: "a.pdf", Title: "A Long Enough Paper Title"}
	if info.NodeName() != "A Long Enough Paper Title" || info.URL() != "" {
		t.Errorf("info = %+v", info)
	}
}

func TestExtract_NotPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.pdf")
	if err := os.WriteFile(path, []byte("plain text"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Extract(path); err == nil {
		t.Error("Extract() = nil error for non-PDF")
	}
	if _, err := Extract(filepath.Join(t.TempDir(), "missing.pdf")); err == nil {
		t.Error("Extract() = nil error for missing file")
	}
}
