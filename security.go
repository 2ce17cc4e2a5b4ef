package taxlots

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// isinRegex checks for the basic structure: 2 letters, 9 alphanumeric, 1 digit.
var isinRegex = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{9}[0-9]$`)

// cusipRegex checks for 8 alphanumeric (or *@#) characters and a check digit.
var cusipRegex = regexp.MustCompile(`^[A-Z0-9*@#]{8}[0-9]$`)

// currencyCodeRegex checks for the format: 3 uppercase letters.
var currencyCodeRegex = regexp.MustCompile(`^[A-Z]{3}$`)

// Security is an instrument held in positions. Corporate actions are issued
// against a Security and affect every position holding it.
type Security struct {
	ID       string `json:"id"`
	Symbol   string `json:"symbol"`
	CUSIP    string `json:"cusip,omitempty"`
	ISIN     string `json:"isin,omitempty"`
	Currency string `json:"currency"`
	Price    Money  `json:"price"` // last known price, zero if unknown
}

// NewSecurity validates the identifiers and returns a security with a fresh id.
func NewSecurity(symbol, cusip, isin, currency string) (Security, error) {
	if strings.TrimSpace(symbol) == "" {
		return Security{}, fmt.Errorf("security symbol is required")
	}
	if err := ValidateCurrency(currency); err != nil {
		return Security{}, err
	}
	if cusip != "" {
		if err := ValidateCUSIP(cusip); err != nil {
			return Security{}, fmt.Errorf("invalid CUSIP %q: %w", cusip, err)
		}
	}
	if isin != "" {
		if err := ValidateISIN(isin); err != nil {
			return Security{}, fmt.Errorf("invalid ISIN %q: %w", isin, err)
		}
	}
	return Security{
		ID:       uuid.NewString(),
		Symbol:   symbol,
		CUSIP:    cusip,
		ISIN:     isin,
		Currency: currency,
		Price:    M(0, currency),
	}, nil
}

// ValidateCurrency checks the ISO 4217 format of a currency code.
func ValidateCurrency(currency string) error {
	if !currencyCodeRegex.MatchString(currency) {
		return fmt.Errorf("invalid currency format: must be 3 uppercase letters, got %q", currency)
	}
	return nil
}

// ValidateISIN checks if a string is a validly formatted ISIN.
// It returns nil if valid, or a descriptive error if invalid.
func ValidateISIN(isin string) error {
	if len(isin) != 12 {
		return fmt.Errorf("invalid length: must be 12 characters, got %d", len(isin))
	}
	if !isinRegex.MatchString(isin) {
		return fmt.Errorf("invalid format: must be 2 uppercase letters, 9 alphanumeric chars, and 1 digit")
	}

	// Letters are expanded to two digits before applying the Luhn algorithm.
	var numericStr strings.Builder
	for _, char := range isin[:11] {
		if char >= 'A' && char <= 'Z' {
			numericStr.WriteString(strconv.Itoa(int(char - 'A' + 10)))
		} else {
			numericStr.WriteRune(char)
		}
	}

	sum := 0
	isSecond := true
	digits := numericStr.String()
	for i := len(digits) - 1; i >= 0; i-- {
		digit := int(digits[i] - '0')
		if isSecond {
			digit *= 2
		}
		sum += (digit / 10) + (digit % 10)
		isSecond = !isSecond
	}

	expected := (10 - (sum % 10)) % 10
	if actual := int(isin[11] - '0'); expected != actual {
		return fmt.Errorf("invalid check digit: expected %d, got %d", expected, actual)
	}
	return nil
}

// ValidateCUSIP checks the format and the check digit of a 9 character CUSIP.
func ValidateCUSIP(cusip string) error {
	if len(cusip) != 9 {
		return fmt.Errorf("invalid length: must be 9 characters, got %d", len(cusip))
	}
	if !cusipRegex.MatchString(cusip) {
		return fmt.Errorf("invalid format: must be 8 alphanumeric chars and 1 digit")
	}
	sum := 0
	for i := 0; i < 8; i++ {
		var v int
		switch c := cusip[i]; {
		case c >= '0' && c <= '9':
			v = int(c - '0')
		case c >= 'A' && c <= 'Z':
			v = int(c-'A') + 10
		case c == '*':
			v = 36
		case c == '@':
			v = 37
		case c == '#':
			v = 38
		}
		if i%2 == 1 {
			v *= 2
		}
		sum += v/10 + v%10
	}
	expected := (10 - sum%10) % 10
	if actual := int(cusip[8] - '0'); expected != actual {
		return fmt.Errorf("invalid check digit: expected %d, got %d", expected, actual)
	}
	return nil
}
