package models

import (
	"fmt"
	"strings"
)

// FXOperation says how a native-currency value is turned into USD with a
// quote. The set is closed; unknown values fail to parse.
type FXOperation int

const (
	// FXNone leaves the value unchanged (already USD).
	FXNone FXOperation = iota
	// FXMultiply is used for quotes expressed as USD per foreign unit (EURUSD).
	FXMultiply
	// FXDivide is used for quotes expressed as foreign units per USD (USDJPY).
	FXDivide
)

func (o FXOperation) String() string {
	switch o {
	case FXNone:
		return "none"
	case FXMultiply:
		return "multiply"
	case FXDivide:
		return "divide"
	default:
		return fmt.Sprintf("FXOperation(%d)", int(o))
	}
}

// ParseFXOperation parses "none", "multiply" or "divide".
func ParseFXOperation(s string) (FXOperation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return FXNone, nil
	case "multiply", "mul":
		return FXMultiply, nil
	case "divide", "div":
		return FXDivide, nil
	default:
		return FXNone, fmt.Errorf("unknown fx operation %q", s)
	}
}

// Apply converts value with rate. ok is false when the rate cannot be used.
func (o FXOperation) Apply(value, rate float64) (float64, bool) {
	switch o {
	case FXNone:
		return value, true
	case FXMultiply:
		if rate <= 0 {
			return 0, false
		}
		return value * rate, true
	case FXDivide:
		if rate <= 0 {
			return 0, false
		}
		return value / rate, true
	default:
		return 0, false
	}
}

// UnmarshalText lets YAML and JSON decode directly into the enum.
func (o *FXOperation) UnmarshalText(b []byte) error {
	v, err := ParseFXOperation(string(b))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

func (o FXOperation) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}
