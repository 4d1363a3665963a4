package pptx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Slide is one slide's discovered merge fields and text.
type Slide struct {
	Number int      `json:"number"`
	Fields []string `json:"fields,omitempty"`
	Texts  []string `json:"texts,omitempty"`
}

// Deck summarizes a template: its slides and the union of merge fields.
type Deck struct {
	Slides []Slide  `json:"slides"`
	Fields []string `json:"fields"`
}

// InspectFile parses a .pptx template from disk.
func InspectFile(path string) (*Deck, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s — check that the path is correct", path)
		}
		return nil, fmt.Errorf("could not read %s: %w", path, err)
	}
	return Inspect(data)
}

// Inspect parses raw .pptx bytes and reports each slide's text and merge
// fields. Split-run fields are found by scanning the concatenated run text.
func Inspect(data []byte) (*Deck, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("invalid .pptx file — not a valid ZIP archive: %w", err)
	}

	type slideEntry struct {
		name string
		file *zip.File
	}
	var slideFiles []slideEntry
	for _, f := range reader.File {
		if strings.HasPrefix(f.Name, "ppt/slides/slide") && strings.HasSuffix(f.Name, ".xml") {
			slideFiles = append(slideFiles, slideEntry{name: f.Name, file: f})
		}
	}
	sort.Slice(slideFiles, func(i, j int) bool { return slideFiles[i].name < slideFiles[j].name })

	deck := &Deck{}
	seen := make(map[string]bool)

	for i, sf := range slideFiles {
		content, err := readZipFile(sf.file)
		if err != nil {
			return nil, fmt.Errorf("could not read %s: %w", sf.name, err)
		}

		slide := Slide{Number: i + 1}
		for _, m := range textPattern.FindAllStringSubmatch(string(content), -1) {
			if t := strings.TrimSpace(m[1]); t != "" {
				slide.Texts = append(slide.Texts, t)
			}
		}

		slideSeen := make(map[string]bool)
		for _, m := range fieldPattern.FindAllStringSubmatch(mergeRunText(string(content)), -1) {
			if !slideSeen[m[1]] {
				slideSeen[m[1]] = true
				slide.Fields = append(slide.Fields, m[1])
			}
			if !seen[m[1]] {
				seen[m[1]] = true
				deck.Fields = append(deck.Fields, m[1])
			}
		}
		sort.Strings(slide.Fields)
		deck.Slides = append(deck.Slides, slide)
	}

	sort.Strings(deck.Fields)
	return deck, nil
}
