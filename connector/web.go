package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"sort"
	"time"

	"github.com/spektr-org/tabula/helpers"
	"github.com/spektr-org/tabula/table"
)

// Web fetches a URL. Delimited text is parsed with Options; a JSON array
// of flat objects becomes one column per key.
type Web struct {
	Client  *http.Client
	Options helpers.ParseOptions
}

// NewWeb returns a Web connector with a bounded client timeout.
func NewWeb() Web {
	return Web{Client: &http.Client{Timeout: 30 * time.Second}}
}

func (w Web) Fetch(ctx context.Context, url string) (*table.Table, error) {
	client := w.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("web source: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("web source: HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("web source: failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("web source: %s returned %d: %s", url, resp.StatusCode, truncate(string(body), 200))
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		return fromJSON(body, w.Options.Name)
	}
	return helpers.ParseCSV(body, w.Options)
}

// fromJSON reads [{"k": v, ...}, ...]. Keys are sorted; objects missing a
// key get a null in that column.
func fromJSON(body []byte, name string) (*table.Table, error) {
	var records []map[string]any
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("web source: failed to parse JSON: %w", err)
	}
	seen := make(map[string]bool)
	var keys []string
	for _, rec := range records {
		for k := range rec {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)

	t := table.New(name)
	for _, k := range keys {
		c, err := t.AddColumn(k)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			c.Append(jsonValue(rec[k]))
		}
	}
	return t, nil
}

func jsonValue(v any) table.Value {
	switch x := v.(type) {
	case nil:
		return table.Null()
	case float64:
		return table.Number(x)
	case bool:
		if x {
			return table.Number(1)
		}
		return table.Number(0)
	case string:
		return table.InferScalar(x)
	default:
		b, _ := json.Marshal(x)
		return table.Text(string(b))
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
