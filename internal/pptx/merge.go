// Package pptx merges extracted data into PowerPoint templates. Merge fields
// are written as {{path.to.field}} in slide text; PowerPoint often splits
// that text across multiple <a:r> runs, so fields are consolidated before
// substitution.
package pptx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// fieldPattern matches {{merge.field.path}} with optional inner whitespace.
var fieldPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_.]*)\s*\}\}`)

// MergeResult reports what a merge run substituted.
type MergeResult struct {
	Data         []byte   `json:"-"`
	Applied      int      `json:"applied"`
	Missing      int      `json:"missing"`
	MissingNames []string `json:"missingNames,omitempty"`
}

// MergeFile substitutes merge fields in a .pptx template and writes the
// result to outputPath.
func MergeFile(templatePath string, values map[string]string, outputPath string) (*MergeResult, error) {
	data, err := os.ReadFile(templatePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("template not found: %s — check that the path is correct", templatePath)
		}
		return nil, fmt.Errorf("could not read template %s: %w", templatePath, err)
	}

	result, err := Merge(data, values)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, fmt.Errorf("could not create output directory: %w", err)
	}
	if err := os.WriteFile(outputPath, result.Data, 0o644); err != nil {
		return nil, fmt.Errorf("could not write output %s: %w", outputPath, err)
	}
	return result, nil
}

// Merge substitutes merge fields in raw .pptx bytes and returns the rebuilt
// archive. Fields with no value are left in place and reported as missing.
func Merge(data []byte, values map[string]string) (*MergeResult, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("invalid .pptx file — not a valid ZIP archive: %w", err)
	}

	allFields := make(map[string]bool)
	for _, f := range reader.File {
		if !isSlideXML(f.Name) {
			continue
		}
		content, err := readZipFile(f)
		if err != nil {
			continue
		}
		for _, m := range fieldPattern.FindAllStringSubmatch(mergeRunText(string(content)), -1) {
			allFields[m[1]] = true
		}
	}

	var missingNames []string
	for name := range allFields {
		if _, ok := values[name]; !ok {
			missingNames = append(missingNames, name)
		}
	}
	sort.Strings(missingNames)

	buf := new(bytes.Buffer)
	writer := zip.NewWriter(buf)
	applied := 0

	for _, f := range reader.File {
		content, err := readZipFile(f)
		if err != nil {
			return nil, fmt.Errorf("could not read %s: %w", f.Name, err)
		}

		if isSlideXML(f.Name) {
			text := fixRunSplitting(string(content))
			for name, value := range values {
				placeholder := "{{" + name + "}}"
				if count := strings.Count(text, placeholder); count > 0 {
					applied += count
					text = strings.ReplaceAll(text, placeholder, xmlEscape(value))
				}
			}
			content = []byte(text)
		}

		header := &zip.FileHeader{Name: f.Name, Method: f.Method, Modified: f.Modified}
		w, err := writer.CreateHeader(header)
		if err != nil {
			return nil, fmt.Errorf("could not create %s: %w", f.Name, err)
		}
		if _, err := w.Write(content); err != nil {
			return nil, fmt.Errorf("could not write %s: %w", f.Name, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("could not finalize output: %w", err)
	}

	return &MergeResult{
		Data:         buf.Bytes(),
		Applied:      applied,
		Missing:      len(missingNames),
		MissingNames: missingNames,
	}, nil
}

var (
	runPattern  = regexp.MustCompile(`<a:r\b[^>]*>(?:<a:rPr\b.*?(?:/>|</a:rPr>))?<a:t[^>]*>([^<]*)</a:t></a:r>`)
	paraPattern = regexp.MustCompile(`(?s)(<a:p\b[^>]*>)(.*?)(</a:p>)`)
	textPattern = regexp.MustCompile(`<a:t[^>]*>([^<]*)</a:t>`)
)

// fixRunSplitting consolidates merge fields that PowerPoint split across
// adjacent runs, like
//
//	<a:r><a:t>{{</a:t></a:r><a:r><a:t>client.name</a:t></a:r><a:r><a:t>}}</a:t></a:r>
//
// into a single run holding the complete field, so plain string replacement
// can find it. Runs outside a split field keep their own formatting.
func fixRunSplitting(xmlText string) string {
	return paraPattern.ReplaceAllStringFunc(xmlText, func(para string) string {
		submatches := paraPattern.FindStringSubmatch(para)
		if submatches == nil {
			return para
		}
		paraOpen, paraBody, paraClose := submatches[1], submatches[2], submatches[3]

		runMatches := runPattern.FindAllStringSubmatchIndex(paraBody, -1)
		if len(runMatches) < 2 {
			return para
		}

		type runInfo struct {
			start, end int
			text       string
		}
		runs := make([]runInfo, 0, len(runMatches))
		for _, loc := range runMatches {
			runs = append(runs, runInfo{start: loc[0], end: loc[1], text: paraBody[loc[2]:loc[3]]})
		}

		result := paraBody
		offset := 0
		merged := false

		for i := 0; i < len(runs); i++ {
			if !strings.Contains(runs[i].text, "{") && !strings.Contains(runs[i].text, "}") {
				continue
			}

			for j := i + 1; j <= len(runs) && j <= i+10; j++ {
				var combined strings.Builder
				for k := i; k < j; k++ {
					combined.WriteString(runs[k].text)
				}
				combinedText := combined.String()

				if fieldPattern.MatchString(combinedText) && j > i+1 {
					firstStart := runs[i].start + offset
					lastEnd := runs[j-1].end + offset

					replacement := `<a:r><a:t>` + combinedText + `</a:t></a:r>`
					original := result[firstStart:lastEnd]

					result = result[:firstStart] + replacement + result[lastEnd:]
					offset += len(replacement) - len(original)
					merged = true

					i = j - 1
					break
				}
				if strings.Contains(combinedText, "}}") {
					break
				}
			}
		}

		if merged {
			return paraOpen + result + paraClose
		}
		return para
	})
}

// mergeRunText concatenates all <a:t> text, used only for field discovery.
func mergeRunText(xmlText string) string {
	var b strings.Builder
	for _, m := range textPattern.FindAllStringSubmatch(xmlText, -1) {
		b.WriteString(m[1])
	}
	return b.String()
}

func isSlideXML(name string) bool {
	return (strings.HasPrefix(name, "ppt/slides/") || strings.HasPrefix(name, "ppt/notesSlides/")) &&
		strings.HasSuffix(name, ".xml")
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func xmlEscape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	return s
}
