//go:build ignore

// This program generates sample fixture files for manual testing of the
// mergekit CLI: a workbook with a key-value block and a line-item table,
// the mapping configuration that locates them, and a one-slide PowerPoint
// template with matching placeholders.
package main

import (
	"archive/zip"
	"fmt"
	"os"

	"github.com/klytics/mergekit/internal/xlsx"
)

func main() {
	if err := generateWorkbook(); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating sample.xlsx: %v\n", err)
		os.Exit(1)
	}

	if err := generateMapping(); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating sample_mapping.json: %v\n", err)
		os.Exit(1)
	}

	if err := generateTemplate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating sample_template.pptx: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Test fixtures generated successfully.")
}

func generateWorkbook() error {
	wb := xlsx.New()
	defer wb.Close()

	kv := [][2]any{
		{"Client Name", "Acme Corporation"},
		{"Invoice Number", "INV-2026-0042"},
		{"Due Date", "2026-09-30"},
	}
	for i, pair := range kv {
		if err := wb.SetCell("Invoice", i+1, 1, pair[0]); err != nil {
			return err
		}
		if err := wb.SetCell("Invoice", i+1, 2, pair[1]); err != nil {
			return err
		}
	}

	headers := []string{"Description", "Quantity", "Unit Price", "Amount"}
	for c, h := range headers {
		if err := wb.SetCell("Invoice", 6, c+1, h); err != nil {
			return err
		}
	}
	rows := [][]any{
		{"Design work", 10, 120.0, 1200.0},
		{"Hosting (annual)", 1, 99.9, 99.9},
		{"Support retainer", 3, 250.0, 750.0},
	}
	for r, row := range rows {
		for c, v := range row {
			if err := wb.SetCell("Invoice", 7+r, c+1, v); err != nil {
				return err
			}
		}
	}

	if err := wb.SetCell("Invoice", 12, 1, "Grand Total"); err != nil {
		return err
	}
	if err := wb.SetFormula("Invoice", 12, 4, "SUM(D7:D9)"); err != nil {
		return err
	}

	return wb.SaveAs("sample.xlsx")
}

func generateMapping() error {
	mapping := `{
  "sheet_configs": {
    "Invoice": {
      "subtables": [
        {
          "name": "invoice_info",
          "kind": "key_value_pairs",
          "header_search": {"method": "exact_match", "text": "Client Name", "column": "A"},
          "column_mappings": {
            "Client Name": "client",
            "Invoice Number": "number",
            "Due Date": {"name": "due", "type": "date"}
          }
        },
        {
          "name": "line_items",
          "kind": "table",
          "header_search": {"method": "contains_text", "text": "Description", "column": "A"},
          "update_policy": {"row_expansion": "preserve_below"},
          "column_mappings": {
            "Description": "description",
            "Quantity": {"name": "quantity", "type": "number"},
            "Unit Price": {"name": "unit_price", "type": "number"},
            "Amount": {"name": "amount", "type": "number"}
          }
        }
      ]
    }
  }
}
`
	return os.WriteFile("sample_mapping.json", []byte(mapping), 0o644)
}

const slideXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">
<p:cSld><p:spTree>
<p:sp><p:txBody>
<a:p><a:r><a:t>Invoice {{invoice_info.number}} for {{invoice_info.client}}</a:t></a:r></a:p>
<a:p><a:r><a:t>First item: {{line_items.1.description}} ({{line_items.1.amount}})</a:t></a:r></a:p>
</p:txBody></p:sp>
</p:spTree></p:cSld>
</p:sld>`

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/ppt/slides/slide1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slide+xml"/>
</Types>`

func generateTemplate() error {
	f, err := os.Create("sample_template.pptx")
	if err != nil {
		return err
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	parts := map[string]string{
		"[Content_Types].xml":   contentTypesXML,
		"ppt/slides/slide1.xml": slideXML,
	}
	for name, body := range parts {
		w, err := zw.Create(name)
		if err != nil {
			return err
		}
		if _, err := w.Write([]byte(body)); err != nil {
			return err
		}
	}
	return zw.Close()
}
