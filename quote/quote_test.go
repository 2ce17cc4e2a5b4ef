package quote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
)

const sample = `{
  "isin": "US0378331005",
  "last": 189.37,
  "bid": "189,25",
  "closed": "./.",
  "series": {"intraday": {"data": [[1, 188.5], [2, 189.125]]}}
}`

func TestExtract(t *testing.T) {
	doc, err := decode([]byte(sample))
	if err != nil {
		t.Fatalf("decode() error = %v", err)
	}
	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{path: "$.last", want: "189.37"},
		{path: "$.bid", want: "189.25"},
		{path: "$.series.intraday.data[-1:][1]", want: "189.125"},
		{path: "$.closed", wantErr: true},
		{path: "$.isin", wantErr: true},
		{path: "$.series", wantErr: true},
		{path: "$.missing", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			got, err := Extract(doc, tc.path)
			if (err != nil) != tc.wantErr {
				t.Fatalf("Extract(%q) error = %v, wantErr %v", tc.path, err, tc.wantErr)
			}
			if tc.wantErr {
				return
			}
			if !got.Equal(decimal.RequireFromString(tc.want)) {
				t.Errorf("Extract(%q) = %v, want %s", tc.path, got, tc.want)
			}
		})
	}
}

func TestPrice_File(t *testing.T) {
	file := filepath.Join(t.TempDir(), "quote.json")
	if err := os.WriteFile(file, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Price(context.Background(), http.DefaultClient, file, DefaultPath)
	if err != nil {
		t.Fatalf("Price() error = %v", err)
	}
	if got.String() != "189.37" {
		t.Errorf("Price() = %v, want 189.37", got)
	}
}

func TestPrice_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/quote" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(sample))
	}))
	defer srv.Close()

	got, err := Price(context.Background(), srv.Client(), srv.URL+"/quote", "$.bid")
	if err != nil {
		t.Fatalf("Price() error = %v", err)
	}
	if got.String() != "189.25" {
		t.Errorf("Price() = %v, want 189.25", got)
	}

	if _, err := Price(context.Background(), srv.Client(), srv.URL+"/missing", DefaultPath); err == nil {
		t.Error("Price() on a 404 expected an error")
	}
}
