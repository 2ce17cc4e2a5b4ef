// Package quote reads security prices out of JSON quote documents, such as a
// broker export or a market data endpoint, using a JSONPath expression.
package quote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"
)

// DefaultPath selects the last traded price of most quote endpoints.
const DefaultPath = "$.last"

// Load reads a JSON document from an http(s) URL or a local file. Numbers are
// kept as json.Number so that prices are not rounded through float64.
func Load(ctx context.Context, client *http.Client, location string) (any, error) {
	var (
		content []byte
		err     error
	)
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		content, err = get(ctx, client, location)
	} else {
		content, err = os.ReadFile(location)
	}
	if err != nil {
		return nil, err
	}
	return decode(content)
}

func decode(content []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid JSON quote: %w", err)
	}
	return doc, nil
}

// get performs an HTTP GET request and returns the body of a 200 response.
func get(ctx context.Context, client *http.Client, addr string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cannot http GET %v%v: %v", resp.Request.URL.Host, resp.Request.URL.Path, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// Extract evaluates path on doc and returns the price it designates. Prices
// may be JSON numbers or strings, with a decimal comma or spaces.
func Extract(doc any, path string) (decimal.Decimal, error) {
	v, err := jsonpath.Get(path, doc)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("cannot evaluate %q: %w", path, err)
	}
	// jsonpath returns a list for filters and slices: keep the first answer.
	if list, ok := v.([]any); ok {
		if len(list) == 0 {
			return decimal.Decimal{}, fmt.Errorf("%q selects nothing", path)
		}
		v = list[0]
	}
	switch x := v.(type) {
	case json.Number:
		return decimal.NewFromString(x.String())
	case float64:
		return decimal.NewFromFloat(x), nil
	case string:
		s := strings.ReplaceAll(strings.ReplaceAll(x, " ", ""), ",", ".")
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("%q selects %q, not a price", path, x)
		}
		return d, nil
	default:
		return decimal.Decimal{}, fmt.Errorf("%q selects %v (%T), not a price", path, v, v)
	}
}

// Price loads the document at location and extracts the price at path.
func Price(ctx context.Context, client *http.Client, location, path string) (decimal.Decimal, error) {
	doc, err := Load(ctx, client, location)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("cannot load quote %q: %w", location, err)
	}
	return Extract(doc, path)
}
