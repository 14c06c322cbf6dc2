// Package pdf pulls the DOI and title out of paper PDFs so they can be added
// to the graph as paper nodes.
package pdf

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// scanPages is how many leading pages are searched for a DOI.
const scanPages = 3

// DOI pattern: 10.XXXX/... where XXXX is 4-9 digits.
var doiPattern = regexp.MustCompile(`10\.\d{4,9}/[^\s<>"{}|\\^~\[\]` + "`" + `]+`)

// Info is what could be recovered from a PDF. Either field may be empty.
type Info struct {
	Path  string `json:"path"`
	DOI   string `json:"doi,omitempty"`
	Title string `json:"title,omitempty"`
}

// NodeName is the title, or the file name without extension when no title
// was found.
func (i Info) NodeName() string {
	if i.Title != "" {
		return i.Title
	}
	base := filepath.Base(i.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// URL links the DOI resolver, or is empty without a DOI.
func (i Info) URL() string {
	if i.DOI == "" {
		return ""
	}
	return "https://doi.org/" + i.DOI
}

// Description notes where the node came from.
func (i Info) Description() string {
	desc := "Imported from " + filepath.Base(i.Path)
	if i.DOI != "" {
		desc += " (doi:" + i.DOI + ")"
	}
	return desc
}

// Extract reads the first pages of the PDF at path. A PDF without a DOI or a
// recognizable title is not an error.
func Extract(path string) (Info, error) {
	info := Info{Path: path}

	f, r, err := pdf.Open(path)
	if err != nil {
		return info, fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	pages := min(scanPages, r.NumPage())
	for i := 1; i <= pages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if i == 1 {
			info.Title = findTitle(text)
		}
		if info.DOI == "" {
			info.DOI = findDOI(text)
		}
		if info.DOI != "" && info.Title != "" {
			break
		}
	}
	return info, nil
}

// findDOI returns the first plausible DOI in text.
func findDOI(text string) string {
	for _, match := range doiPattern.FindAllString(text, -1) {
		match = strings.TrimRight(match, ".,;:)")
		if isValidDOI(match) {
			return match
		}
	}
	return ""
}

func isValidDOI(doi string) bool {
	if len(doi) < 10 || !strings.HasPrefix(doi, "10.") {
		return false
	}
	slash := strings.Index(doi, "/")
	return slash != -1 && slash < len(doi)-1
}

// findTitle takes the first substantial line that is not a running header.
func findTitle(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) > 20 && !isHeaderLine(line) {
			return line
		}
	}
	return ""
}

func isHeaderLine(line string) bool {
	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, "journal"):
		return true
	case strings.Contains(lower, "volume") && strings.Contains(lower, "issue"):
		return true
	case strings.Contains(lower, "copyright"):
		return true
	case strings.Contains(lower, "article") && strings.Contains(lower, "published"):
		return true
	}
	return false
}
