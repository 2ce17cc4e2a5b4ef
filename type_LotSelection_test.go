package taxlots

import "testing"

func TestParseLotSelection(t *testing.T) {
	for _, m := range lotSelections {
		got, err := ParseLotSelection(m.String())
		if err != nil {
			t.Errorf("ParseLotSelection(%q) error = %v", m, err)
			continue
		}
		if got != m {
			t.Errorf("ParseLotSelection(%q) = %v", m, got)
		}
	}
	if _, err := ParseLotSelection("random"); err == nil {
		t.Error("ParseLotSelection(random) succeeded, want error")
	}
}

func TestLotSelection_Ordering(t *testing.T) {
	// every method but SpecificID sorts the lots.
	for _, m := range lotSelections {
		if _, ok := lotOrders[m]; !ok && m != SpecificID {
			t.Errorf("%v has no lot ordering", m)
		}
	}
	if AverageCost.Sequential() || !FIFO.Sequential() {
		t.Error("only AverageCost spreads a sale over every lot")
	}
}

func TestParseAcquisitionType(t *testing.T) {
	for _, s := range []string{"PURCHASE", "GIFT", "INHERITANCE", "TRANSFER", "SPINOFF", "MERGER"} {
		if _, err := ParseAcquisitionType(s); err != nil {
			t.Errorf("ParseAcquisitionType(%q) error = %v", s, err)
		}
	}
	if _, err := ParseAcquisitionType("purchase"); err == nil {
		t.Error("ParseAcquisitionType(purchase) succeeded, want error")
	}
}
