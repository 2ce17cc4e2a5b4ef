package cmd

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/subcommands"
)

func TestParseSplit(t *testing.T) {
	tests := []struct {
		in       string
		num, den int64
		wantErr  bool
	}{
		{in: "2:1", num: 2, den: 1},
		{in: "3-for-2", num: 3, den: 2},
		{in: "1 : 10", num: 1, den: 10},
		{in: "2", wantErr: true},
		{in: "0:1", wantErr: true},
		{in: "a:b", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			num, den, err := parseSplit(tc.in)
			if (err != nil) != tc.wantErr {
				t.Fatalf("parseSplit(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			}
			if num != tc.num || den != tc.den {
				t.Errorf("parseSplit(%q) = %d:%d, want %d:%d", tc.in, num, den, tc.num, tc.den)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" a, b,,c ")
	if diff := cmp.Diff([]string{"a", "b", "c"}, got); diff != "" {
		t.Errorf("splitList() mismatch (-want +got):\n%s", diff)
	}
	if got := splitList(""); got != nil {
		t.Errorf("splitList(\"\") = %v, want nil", got)
	}
}

// session runs commands against a fresh database and captures their output.
type session struct {
	t   *testing.T
	out bytes.Buffer
}

func newSession(t *testing.T) *session {
	t.Helper()
	s := &session{t: t}
	oldDB, oldRaw, oldOut, oldLevel := *dbPath, *raw, stdout, *logLevel
	*dbPath = filepath.Join(t.TempDir(), "lots.db")
	*raw = true
	*logLevel = "error"
	stdout = &s.out
	t.Cleanup(func() { *dbPath, *raw, stdout, *logLevel = oldDB, oldRaw, oldOut, oldLevel })
	return s
}

// run executes the command with args and returns its output.
func (s *session) run(cmd subcommands.Command, args ...string) (string, subcommands.ExitStatus) {
	s.t.Helper()
	f := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	cmd.SetFlags(f)
	if err := f.Parse(args); err != nil {
		s.t.Fatalf("%s: cannot parse %v: %v", cmd.Name(), args, err)
	}
	s.out.Reset()
	status := cmd.Execute(context.Background(), f)
	return s.out.String(), status
}

// must executes the command and fails the test unless it succeeds.
func (s *session) must(cmd subcommands.Command, args ...string) string {
	s.t.Helper()
	out, status := s.run(cmd, args...)
	if status != subcommands.ExitSuccess {
		s.t.Fatalf("%s %v: status %v, output %q", cmd.Name(), args, status, out)
	}
	return out
}

var lotIDRegex = regexp.MustCompile(`Lot ([0-9a-f-]{36})`)

func TestCommands_BuySellLots(t *testing.T) {
	s := newSession(t)
	s.must(&securityCmd{}, "-s", "AAPL", "-cusip", "037833100", "-c", "USD")
	s.must(&buyCmd{}, "-a", "broker", "-s", "AAPL", "-q", "100", "-p", "150", "-d", "2023-01-15")
	s.must(&buyCmd{}, "-a", "broker", "-s", "037833100", "-q", "50", "-p", "170", "-d", "2024-03-01")

	out := s.must(&sellCmd{}, "-a", "broker", "-s", "AAPL", "-q", "120", "-proceeds", "21600", "-d", "2024-06-15", "-method", "fifo")
	for _, want := range []string{"# Sale of 120 AAPL on 2024-06-15", "+$3,000.00", "+$200.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("sell output does not contain %q:\n%s", want, out)
		}
	}

	out = s.must(&lotsCmd{}, "-a", "broker", "-s", "AAPL", "-d", "2024-06-15")
	for _, want := range []string{"Quantity: 30", "## Closed Lots"} {
		if !strings.Contains(out, want) {
			t.Errorf("lots output does not contain %q:\n%s", want, out)
		}
	}

	out = s.must(&lotsCmd{}, "-a", "broker")
	if !strings.Contains(out, "| broker | AAPL | 30 |") {
		t.Errorf("positions output:\n%s", out)
	}

	// Not enough shares: nothing is recorded.
	if _, status := s.run(&sellCmd{}, "-a", "broker", "-s", "AAPL", "-q", "31", "-proceeds", "100", "-d", "2024-06-16"); status != subcommands.ExitFailure {
		t.Errorf("oversell status = %v, want failure", status)
	}
	out = s.must(&lotsCmd{}, "-a", "broker", "-s", "AAPL")
	if !strings.Contains(out, "Quantity: 30") {
		t.Errorf("a failed sale changed the position:\n%s", out)
	}
}

func TestCommands_WashSale(t *testing.T) {
	s := newSession(t)
	s.must(&securityCmd{}, "-s", "XYZ")
	s.must(&buyCmd{}, "-a", "broker", "-s", "XYZ", "-q", "10", "-p", "100", "-d", "2024-01-02")
	s.must(&sellCmd{}, "-a", "broker", "-s", "XYZ", "-q", "10", "-proceeds", "500", "-d", "2024-03-01")
	out := s.must(&buyCmd{}, "-a", "broker", "-s", "XYZ", "-q", "10", "-p", "45", "-d", "2024-03-20")
	m := lotIDRegex.FindStringSubmatch(out)
	if m == nil {
		t.Fatalf("no lot id in %q", out)
	}

	out = s.must(&washSaleCmd{}, "-a", "broker", "-s", "XYZ", "-d", "2024-03-01", "-loss", "500")
	if !strings.Contains(out, "| 2024-03-20 |") {
		t.Errorf("washsale output does not list the replacement lot:\n%s", out)
	}
	s.must(&washSaleCmd{}, "-mark", m[1], "-disallowed", "500")
	out = s.must(&lotsCmd{}, "-a", "broker", "-s", "XYZ")
	if !strings.Contains(out, "$500.00 |") {
		t.Errorf("lots output does not show the wash sale adjustment:\n%s", out)
	}
}

func TestCommands_CorporateActions(t *testing.T) {
	s := newSession(t)
	s.must(&securityCmd{}, "-s", "PARENT")
	s.must(&securityCmd{}, "-s", "CHILD")
	s.must(&securityCmd{}, "-s", "TARGET")
	s.must(&buyCmd{}, "-a", "broker", "-s", "PARENT", "-q", "50", "-p", "100", "-d", "2020-05-01")

	if out := s.must(&splitCmd{}, "-s", "PARENT", "-r", "2:1", "-d", "2021-01-04"); !strings.Contains(out, "applied to 1 lots") {
		t.Errorf("split output = %q", out)
	}
	s.must(&spinoffCmd{}, "-s", "PARENT", "-child", "CHILD", "-r", "0.2", "-d", "2022-01-03")
	out := s.must(&lotsCmd{}, "-a", "broker", "-s", "CHILD")
	if !strings.Contains(out, "| 2020-05-01 | SPINOFF | 100 | $10.00 | $1,000.00 |") {
		t.Errorf("child lots:\n%s", out)
	}

	s.must(&mergerCmd{}, "-s", "PARENT", "-new", "TARGET", "-r", "0.5", "-d", "2023-01-03")
	out = s.must(&lotsCmd{}, "-a", "broker", "-s", "TARGET")
	if !strings.Contains(out, "| 2020-05-01 | MERGER | 50 | $80.00 | $4,000.00 |") {
		t.Errorf("merged lots:\n%s", out)
	}

	s.must(&renameCmd{}, "-s", "TARGET", "-to", "NEWCO")
	if _, status := s.run(&lotsCmd{}, "-a", "broker", "-s", "TARGET"); status != subcommands.ExitFailure {
		t.Errorf("old symbol still resolves, status %v", status)
	}
	s.must(&lotsCmd{}, "-a", "broker", "-s", "NEWCO")
}

func TestCommands_Price(t *testing.T) {
	s := newSession(t)
	s.must(&securityCmd{}, "-s", "AAPL")
	s.must(&buyCmd{}, "-a", "broker", "-s", "AAPL", "-q", "10", "-p", "150", "-d", "2024-01-02")

	s.must(&priceCmd{}, "-s", "AAPL", "-p", "160")
	out := s.must(&lotsCmd{}, "-a", "broker", "-s", "AAPL")
	if !strings.Contains(out, "Market Value: $1,600.00 (+$100.00 at $160.00)") {
		t.Errorf("lots after price:\n%s", out)
	}

	file := filepath.Join(t.TempDir(), "quote.json")
	if err := os.WriteFile(file, []byte(`{"quote": {"last": "140,5"}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	s.must(&priceCmd{}, "-s", "AAPL", "-json", file, "-path", "$.quote.last")
	out = s.must(&lotsCmd{}, "-a", "broker", "-s", "AAPL")
	if !strings.Contains(out, "Market Value: $1,405.00 (-$95.00 at $140.50)") {
		t.Errorf("lots after quote:\n%s", out)
	}
}

func TestCommands_Usage(t *testing.T) {
	s := newSession(t)
	tests := []struct {
		cmd  subcommands.Command
		args []string
	}{
		{&securityCmd{}, nil},
		{&buyCmd{}, []string{"-a", "broker"}},
		{&buyCmd{}, []string{"-a", "broker", "-s", "X", "-q", "ten", "-p", "1"}},
		{&sellCmd{}, []string{"-a", "broker", "-s", "X", "-q", "1", "-proceeds", "1", "-method", "random"}},
		{&lotsCmd{}, []string{"-a", "broker", "-e", "alice"}},
		{&splitCmd{}, []string{"-s", "X", "-r", "two"}},
		{&priceCmd{}, []string{"-s", "X", "-p", "1", "-json", "q.json"}},
		{&washSaleCmd{}, []string{"-mark", "id"}},
	}
	for _, tc := range tests {
		t.Run(tc.cmd.Name(), func(t *testing.T) {
			if _, status := s.run(tc.cmd, tc.args...); status != subcommands.ExitUsageError {
				t.Errorf("%s %v status = %v, want usage error", tc.cmd.Name(), tc.args, status)
			}
		})
	}
}

func TestCommands_Topic(t *testing.T) {
	s := newSession(t)
	out := s.must(&topicCmd{})
	if !strings.Contains(out, "lot-selection") {
		t.Errorf("topic index does not list lot-selection:\n%s", out)
	}
	out = s.must(&topicCmd{}, "wash-sales")
	if !strings.Contains(out, "# Wash sales") {
		t.Errorf("topic wash-sales:\n%s", out)
	}
	if _, status := s.run(&topicCmd{}, "nope"); status != subcommands.ExitFailure {
		t.Errorf("topic nope status = %v, want failure", status)
	}
}
