// internal/catalog/catalog.go
//
// catalog loads the reference flavor list. The upstream source is either the
// JSON shape {"rows":[{"name":..., "attributes":{...}}]} or a plain
// tab-separated table whose header is "Name" followed by attribute columns.
// A failed load degrades to zero rows at the call site; it is never fatal.
package catalog

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"flavorchart/internal/flavor"
)

// Row is one record from the reference source, attribute cells still raw.
type Row struct {
	Name       string            `json:"name"`
	Attributes map[string]string `json:"attributes"`
}

var client = &http.Client{Timeout: 15 * time.Second}

// Fetch retrieves and parses the reference list from url.
func Fetch(ctx context.Context, url string) ([]Row, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build catalog request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch catalog: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read catalog body: %w", err)
	}
	return Parse(data)
}

// Load reads and parses the reference list from a local file.
func Load(path string) ([]Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return Parse(data)
}

// Parse detects the source format: JSON object first, TSV otherwise.
func Parse(data []byte) ([]Row, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return parseJSON(trimmed)
	}
	return ParseTSV(bytes.NewReader(data))
}

func parseJSON(data []byte) ([]Row, error) {
	var doc struct {
		Rows []Row `json:"rows"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog JSON: %w", err)
	}
	return doc.Rows, nil
}

// ParseTSV reads a tab-separated table. The first line is the header: the
// first column is the item name, the remaining columns are attribute names.
// Rows with a blank name are skipped; short rows leave the missing cells
// empty (they normalize to Unknown downstream).
func ParseTSV(r io.Reader) ([]Row, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read catalog header: %w", err)
		}
		return nil, nil
	}

	header := strings.Split(scanner.Text(), "\t")
	if len(header) < 1 || strings.TrimSpace(header[0]) == "" {
		return nil, fmt.Errorf("catalog header is missing a name column")
	}
	attrCols := make([]string, 0, len(header)-1)
	for _, col := range header[1:] {
		attrCols = append(attrCols, strings.TrimSpace(col))
	}

	var rows []Row
	for scanner.Scan() {
		cells := strings.Split(scanner.Text(), "\t")
		name := strings.TrimSpace(cells[0])
		if name == "" {
			continue
		}
		attrs := make(map[string]string, len(attrCols))
		for i, col := range attrCols {
			if col == "" {
				continue
			}
			if i+1 < len(cells) {
				attrs[col] = strings.TrimSpace(cells[i+1])
			}
		}
		rows = append(rows, Row{Name: name, Attributes: attrs})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read catalog rows: %w", err)
	}
	return rows, nil
}

// Items converts raw rows into reference items: names trimmed (blank rows
// dropped), categories synthesized from the name, every attribute column
// normalized to Yes/No/Unknown.
func Items(rows []Row, attrNames []string) []flavor.Item {
	items := make([]flavor.Item, 0, len(rows))
	for _, row := range rows {
		name := strings.TrimSpace(row.Name)
		if name == "" {
			continue
		}
		attrs := make(map[string]flavor.AllergenValue, len(attrNames))
		for _, col := range attrNames {
			attrs[col] = flavor.NormalizeAllergenValue(row.Attributes[col])
		}
		items = append(items, flavor.Item{
			Name:       name,
			Category:   flavor.Classify(name),
			Attributes: attrs,
			Origin:     flavor.OriginReference,
		})
	}
	return items
}
