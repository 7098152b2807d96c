package aggregate

import (
	"fmt"
	"strings"

	"MacroPull/internal/domain/models"
	"MacroPull/pkg/config"
)

// Component is one national money-supply series and how to bring it to USD.
type Component struct {
	Country   string
	SeriesID  string
	FXSeries  string
	Operation models.FXOperation
	// UnitScale converts the published unit to base units. FRED publishes
	// M2SL in billions; the other series are in units.
	UnitScale float64
}

// DefaultComponents is the built-in composite. FX tickers quote either USD
// per foreign unit (multiply) or foreign units per USD (divide).
func DefaultComponents() []Component {
	return []Component{
		{Country: "US", SeriesID: "M2SL", Operation: models.FXNone, UnitScale: 1e9},
		{Country: "EU", SeriesID: "MYAGM2EZM196N", FXSeries: "EURUSD=X", Operation: models.FXMultiply, UnitScale: 1},
		{Country: "CN", SeriesID: "MYAGM2CNM189N", FXSeries: "CNY=X", Operation: models.FXDivide, UnitScale: 1},
		{Country: "JP", SeriesID: "MYAGM2JPM189S", FXSeries: "JPY=X", Operation: models.FXDivide, UnitScale: 1},
		{Country: "UK", SeriesID: "MABMM201GBM189S", FXSeries: "GBPUSD=X", Operation: models.FXMultiply, UnitScale: 1},
		{Country: "CA", SeriesID: "MAM2A2CAM189N", FXSeries: "CAD=X", Operation: models.FXDivide, UnitScale: 1},
		{Country: "RU", SeriesID: "MYAGM2RUM189N", FXSeries: "RUB=X", Operation: models.FXDivide, UnitScale: 1},
		{Country: "CH", SeriesID: "MANM2ICHM189S", FXSeries: "CHF=X", Operation: models.FXDivide, UnitScale: 1},
	}
}

// DefaultTVComponents is the TradingView composite. ECONOMICS series are
// published in units and every FX pair quotes USD per foreign unit.
func DefaultTVComponents() []Component {
	return []Component{
		{Country: "US", SeriesID: "ECONOMICS:USM2", Operation: models.FXNone, UnitScale: 1},
		{Country: "EU", SeriesID: "ECONOMICS:EUM2", FXSeries: "FX:EURUSD", Operation: models.FXMultiply, UnitScale: 1},
		{Country: "CN", SeriesID: "ECONOMICS:CNM2", FXSeries: "FX_IDC:CNYUSD", Operation: models.FXMultiply, UnitScale: 1},
		{Country: "JP", SeriesID: "ECONOMICS:JPM2", FXSeries: "FX_IDC:JPYUSD", Operation: models.FXMultiply, UnitScale: 1},
		{Country: "UK", SeriesID: "ECONOMICS:GBM2", FXSeries: "FX:GBPUSD", Operation: models.FXMultiply, UnitScale: 1},
		{Country: "CA", SeriesID: "ECONOMICS:CAM2", FXSeries: "FX_IDC:CADUSD", Operation: models.FXMultiply, UnitScale: 1},
		{Country: "CH", SeriesID: "ECONOMICS:CHM2", FXSeries: "FX_IDC:CHFUSD", Operation: models.FXMultiply, UnitScale: 1},
		{Country: "RU", SeriesID: "ECONOMICS:RUM2", FXSeries: "FX_IDC:RUBUSD", Operation: models.FXMultiply, UnitScale: 1},
	}
}

// QuoteConvention reports the operation an FX ticker's quoting implies.
// "EURUSD=X" and "FX:EURUSD" quote USD per foreign unit (multiply);
// "JPY=X" and "USDJPY" quote foreign units per USD (divide). ok is false
// for tickers that follow neither form.
func QuoteConvention(ticker string) (op models.FXOperation, ok bool) {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	if i := strings.LastIndex(t, ":"); i >= 0 {
		t = t[i+1:]
	}
	t = strings.TrimSuffix(t, "=X")
	switch {
	case len(t) == 6 && strings.HasSuffix(t, "USD"):
		return models.FXMultiply, true
	case len(t) == 6 && strings.HasPrefix(t, "USD"):
		return models.FXDivide, true
	case len(t) == 3 && t != "USD":
		return models.FXDivide, true
	default:
		return models.FXNone, false
	}
}

// ParseComponents converts configured components. An empty list yields
// fallback. Operation and unit scale must be declared; an FX series must
// carry an operation that matches its quoting.
func ParseComponents(specs []config.ComponentSpec, fallback []Component) ([]Component, error) {
	if len(specs) == 0 {
		return fallback, nil
	}
	out := make([]Component, 0, len(specs))
	for _, s := range specs {
		if strings.TrimSpace(s.Operation) == "" {
			return nil, fmt.Errorf("component %s: fx operation not declared", s.Country)
		}
		op, err := models.ParseFXOperation(s.Operation)
		if err != nil {
			return nil, fmt.Errorf("component %s: %w", s.Country, err)
		}
		if s.UnitScale <= 0 {
			return nil, fmt.Errorf("component %s: unit scale must be declared and positive", s.Country)
		}
		switch {
		case op != models.FXNone && s.FXSeries == "":
			return nil, fmt.Errorf("component %s: operation %s needs an fx series", s.Country, op)
		case op == models.FXNone && s.FXSeries != "":
			return nil, fmt.Errorf("component %s: fx series %s declared with operation none", s.Country, s.FXSeries)
		}
		if s.FXSeries != "" {
			if want, ok := QuoteConvention(s.FXSeries); ok && want != op {
				return nil, fmt.Errorf("component %s: %s implies %s, not %s", s.Country, s.FXSeries, want, op)
			}
		}
		out = append(out, Component{
			Country:   s.Country,
			SeriesID:  s.SeriesID,
			FXSeries:  s.FXSeries,
			Operation: op,
			UnitScale: s.UnitScale,
		})
	}
	return out, nil
}
