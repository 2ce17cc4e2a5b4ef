package taxlots

import "fmt"

// AcquisitionType tells how a lot came into the account.
type AcquisitionType string

const (
	Purchase    AcquisitionType = "PURCHASE"
	Gift        AcquisitionType = "GIFT"
	Inheritance AcquisitionType = "INHERITANCE"
	Transfer    AcquisitionType = "TRANSFER"
	Spinoff     AcquisitionType = "SPINOFF"
	Merger      AcquisitionType = "MERGER"
)

// ParseAcquisitionType accepts any known type, case sensitive.
func ParseAcquisitionType(s string) (AcquisitionType, error) {
	switch t := AcquisitionType(s); t {
	case Purchase, Gift, Inheritance, Transfer, Spinoff, Merger:
		return t, nil
	default:
		return "", fmt.Errorf("unknown acquisition type: %q", s)
	}
}
