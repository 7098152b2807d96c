package sources

import (
	"strings"

	drepo "MacroPull/internal/domain/repository"
)

// Symbol is an instrument as each provider names it.
type Symbol struct {
	TV         string
	TVExchange string
	Binance    string
	Yahoo      string
}

// knownSymbols overrides the separator transform for instruments whose
// provider tickers do not follow it (Yahoo quotes crypto against USD).
var knownSymbols = map[string]Symbol{
	"BTC/USDT": {TV: "BTCUSDT", TVExchange: "BINANCE", Binance: "BTCUSDT", Yahoo: "BTC-USD"},
	"ETH/USDT": {TV: "ETHUSDT", TVExchange: "BINANCE", Binance: "ETHUSDT", Yahoo: "ETH-USD"},
	"SOL/USDT": {TV: "SOLUSDT", TVExchange: "BINANCE", Binance: "SOLUSDT", Yahoo: "SOL-USD"},
}

// Resolve maps a generic identifier to provider tickers. "EXCHANGE:SYMBOL"
// pins the TradingView exchange; anything unmapped falls through to the
// separator transform.
func Resolve(instrument, defaultExchange string) Symbol {
	instrument = strings.TrimSpace(instrument)
	if s, ok := knownSymbols[strings.ToUpper(instrument)]; ok {
		return s
	}

	exchange := defaultExchange
	name := instrument
	if i := strings.Index(instrument, ":"); i > 0 {
		exchange = strings.ToUpper(instrument[:i])
		name = instrument[i+1:]
	}
	return Symbol{
		TV:         strings.ToUpper(strings.ReplaceAll(name, "/", "")),
		TVExchange: exchange,
		Binance:    strings.ToUpper(strings.ReplaceAll(name, "/", "")),
		Yahoo:      strings.ReplaceAll(name, "/", "-"),
	}
}

// IsPair reports whether instrument is a "BASE/QUOTE" pair.
func IsPair(instrument string) bool {
	return strings.Contains(instrument, "/") && !strings.Contains(instrument, ":")
}

var tvIntervals = map[drepo.Timeframe]string{
	drepo.TF5m:  "5",
	drepo.TF15m: "15",
	drepo.TF1h:  "60",
	drepo.TF4h:  "240",
	drepo.TF1d:  "1D",
	drepo.TF1w:  "1W",
}

var binanceIntervals = map[drepo.Timeframe]string{
	drepo.TF5m:  "5m",
	drepo.TF15m: "15m",
	drepo.TF1h:  "1h",
	drepo.TF4h:  "4h",
	drepo.TF1d:  "1d",
	drepo.TF1w:  "1w",
}

// yahooQuery is the interval and range requested from the chart API.
// Yahoo has no 4h bars; they are built from 1h.
type yahooQuery struct {
	Interval string
	Range    string
	Resample drepo.Timeframe
}

var yahooQueries = map[drepo.Timeframe]yahooQuery{
	drepo.TF5m:  {Interval: "5m", Range: "5d"},
	drepo.TF15m: {Interval: "15m", Range: "60d"},
	drepo.TF1h:  {Interval: "60m", Range: "1y"},
	drepo.TF4h:  {Interval: "60m", Range: "1y", Resample: drepo.TF4h},
	drepo.TF1d:  {Interval: "1d", Range: "5y"},
	drepo.TF1w:  {Interval: "1wk", Range: "5y"},
}
