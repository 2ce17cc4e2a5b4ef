package taxlots

import "testing"

func TestValidateISIN(t *testing.T) {
	valid := []string{"US0378331005", "US38259P5089", "FR0010315770"}
	for _, isin := range valid {
		if err := ValidateISIN(isin); err != nil {
			t.Errorf("ValidateISIN(%q) error = %v", isin, err)
		}
	}
	invalid := []string{"", "US0378331006", "us0378331005", "US03783310051", "0S0378331005"}
	for _, isin := range invalid {
		if err := ValidateISIN(isin); err == nil {
			t.Errorf("ValidateISIN(%q) succeeded, want error", isin)
		}
	}
}

func TestValidateCUSIP(t *testing.T) {
	valid := []string{"037833100", "38259P508", "594918104"}
	for _, cusip := range valid {
		if err := ValidateCUSIP(cusip); err != nil {
			t.Errorf("ValidateCUSIP(%q) error = %v", cusip, err)
		}
	}
	invalid := []string{"", "037833101", "03783310", "0378331000", "03783310X"}
	for _, cusip := range invalid {
		if err := ValidateCUSIP(cusip); err == nil {
			t.Errorf("ValidateCUSIP(%q) succeeded, want error", cusip)
		}
	}
}

func TestNewSecurity(t *testing.T) {
	sec, err := NewSecurity("AAPL", "037833100", "US0378331005", "USD")
	if err != nil {
		t.Fatalf("NewSecurity() error = %v", err)
	}
	if sec.ID == "" || sec.Symbol != "AAPL" || sec.Price.Currency() != "USD" || !sec.Price.IsZero() {
		t.Errorf("NewSecurity() = %+v", sec)
	}

	tests := []struct{ symbol, cusip, isin, currency string }{
		{"", "", "", "USD"},
		{"AAPL", "", "", "usd"},
		{"AAPL", "037833101", "", "USD"},
		{"AAPL", "", "US0378331006", "USD"},
	}
	for _, tt := range tests {
		if _, err := NewSecurity(tt.symbol, tt.cusip, tt.isin, tt.currency); err == nil {
			t.Errorf("NewSecurity(%q, %q, %q, %q) succeeded, want error", tt.symbol, tt.cusip, tt.isin, tt.currency)
		}
	}
}
