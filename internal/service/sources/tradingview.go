package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"MacroPull/internal/domain/models"
	drepo "MacroPull/internal/domain/repository"
	xlogger "MacroPull/pkg/logger"
	"MacroPull/pkg/util"
)

// TradingView is the specialized feed adapter. It speaks the chart
// websocket protocol anonymously: one connection per request, a chart
// session with a single series, closed once the series completes.
type TradingView struct {
	url             string
	origin          string
	defaultExchange string
	timeout         time.Duration
	maxBars         int
	dialer          *websocket.Dialer
	logger          *xlogger.Logger
}

// TVOption configures TradingView.
type TVOption func(*TradingView)

// WithTVOrigin sets the Origin header sent on the handshake.
func WithTVOrigin(origin string) TVOption {
	return func(t *TradingView) { t.origin = origin }
}

// WithTVTimeout bounds one whole request.
func WithTVTimeout(d time.Duration) TVOption {
	return func(t *TradingView) { t.timeout = d }
}

// WithTVMaxBars caps the number of bars requested.
func WithTVMaxBars(n int) TVOption {
	return func(t *TradingView) { t.maxBars = n }
}

// WithTVLogger sets the logger.
func WithTVLogger(l *xlogger.Logger) TVOption {
	return func(t *TradingView) { t.logger = l }
}

// NewTradingView creates the feed adapter.
func NewTradingView(url, defaultExchange string, opts ...TVOption) *TradingView {
	t := &TradingView{
		url:             url,
		origin:          "https://www.tradingview.com",
		defaultExchange: defaultExchange,
		timeout:         20 * time.Second,
		maxBars:         5000,
		dialer:          websocket.DefaultDialer,
		logger:          xlogger.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *TradingView) Name() string { return "tradingview" }

const seriesID = "sds_1"

func (t *TradingView) FetchBars(ctx context.Context, req drepo.BarRequest) ([]models.PriceBar, error) {
	interval, ok := tvIntervals[req.Timeframe]
	if !ok {
		return nil, models.NotApplicable(t.Name(), "fetch bars", fmt.Errorf("unsupported timeframe %q", req.Timeframe))
	}
	sym := Resolve(req.Instrument, t.defaultExchange)
	n := req.Limit
	if n <= 0 || n > t.maxBars {
		n = t.maxBars
	}
	bars, err := t.series(ctx, sym, interval, n)
	if err != nil {
		return nil, err
	}
	return models.TrimBars(bars, req.Limit), nil
}

// series runs one chart session for sym and returns its bars in time order.
func (t *TradingView) series(ctx context.Context, sym Symbol, interval string, n int) ([]models.PriceBar, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	header := http.Header{}
	header.Set("Origin", t.origin)
	conn, _, err := t.dialer.DialContext(ctx, t.url, header)
	if err != nil {
		return nil, models.Unavailable(t.Name(), "connect", err)
	}
	defer conn.Close()
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(dl)
		_ = conn.SetWriteDeadline(dl)
	}
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	session := "cs_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	symbolSpec, _ := json.Marshal(map[string]string{
		"symbol":     sym.TVExchange + ":" + sym.TV,
		"adjustment": "splits",
	})
	msgs := []tvMessage{
		{Method: "set_auth_token", Params: []interface{}{"unauthorized_user_token"}},
		{Method: "chart_create_session", Params: []interface{}{session, ""}},
		{Method: "resolve_symbol", Params: []interface{}{session, "symbol_1", "=" + string(symbolSpec)}},
		{Method: "create_series", Params: []interface{}{session, seriesID, "s1", "symbol_1", interval, n}},
	}
	for _, m := range msgs {
		if err := writeTV(conn, m); err != nil {
			return nil, models.Unavailable(t.Name(), "send "+m.Method, err)
		}
	}

	bars, err := t.readSeries(conn)
	if err != nil {
		op := "read series " + sym.TVExchange + ":" + sym.TV
		if errors.Is(err, errSymbolNotFound) {
			return nil, models.NotApplicable(t.Name(), op, err)
		}
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %v", ctx.Err(), err)
		}
		return nil, models.Unavailable(t.Name(), op, err)
	}
	if len(bars) == 0 {
		return nil, models.Empty(t.Name(), "read series")
	}
	return models.SortBars(bars), nil
}

type tvMessage struct {
	Method string        `json:"m"`
	Params []interface{} `json:"p"`
}

type tvInbound struct {
	Method string            `json:"m"`
	Params []json.RawMessage `json:"p"`
}

type tvSeriesUpdate map[string]struct {
	S []struct {
		I int       `json:"i"`
		V []float64 `json:"v"`
	} `json:"s"`
}

// readSeries consumes frames until the series completes, answering
// heartbeats on the way.
func (t *TradingView) readSeries(conn *websocket.Conn) ([]models.PriceBar, error) {
	var bars []models.PriceBar
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		payloads, err := decodeFrames(string(data))
		if err != nil {
			return nil, err
		}
		for _, p := range payloads {
			if strings.HasPrefix(p, "~h~") {
				if err := conn.WriteMessage(websocket.TextMessage, []byte(encodeFrame(p))); err != nil {
					return nil, fmt.Errorf("heartbeat: %w", err)
				}
				continue
			}
			var in tvInbound
			if err := json.Unmarshal([]byte(p), &in); err != nil || in.Method == "" {
				continue // session banner and other non-method frames
			}
			switch in.Method {
			case "timescale_update":
				if len(in.Params) < 2 {
					continue
				}
				var upd tvSeriesUpdate
				if err := json.Unmarshal(in.Params[1], &upd); err != nil {
					return nil, fmt.Errorf("decode timescale_update: %w", err)
				}
				for _, s := range upd[seriesID].S {
					if len(s.V) < 5 {
						continue
					}
					bar := models.PriceBar{
						Time:  util.UnixUTC(int64(s.V[0])),
						Open:  s.V[1],
						High:  s.V[2],
						Low:   s.V[3],
						Close: s.V[4],
					}
					if len(s.V) > 5 {
						bar.Volume = s.V[5]
					}
					bars = append(bars, bar)
				}
			case "series_completed":
				t.logger.Debug("tradingview series completed", xlogger.Int("bars", len(bars)))
				return bars, nil
			case "symbol_error":
				return nil, fmt.Errorf("%w: %s", errSymbolNotFound, rawParams(in.Params))
			case "series_error", "critical_error", "protocol_error":
				return nil, fmt.Errorf("%s: %s", in.Method, rawParams(in.Params))
			}
		}
	}
}

func writeTV(conn *websocket.Conn, m tvMessage) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, []byte(encodeFrame(string(b))))
}

// encodeFrame wraps a payload as "~m~<len>~m~<payload>".
func encodeFrame(payload string) string {
	return "~m~" + strconv.Itoa(len(payload)) + "~m~" + payload
}

var (
	errBadFrame       = errors.New("malformed frame")
	errSymbolNotFound = errors.New("symbol_error")
)

// decodeFrames splits a websocket message into its framed payloads.
func decodeFrames(data string) ([]string, error) {
	var out []string
	for len(data) > 0 {
		if !strings.HasPrefix(data, "~m~") {
			return nil, errBadFrame
		}
		data = data[3:]
		end := strings.Index(data, "~m~")
		if end < 0 {
			return nil, errBadFrame
		}
		n, err := strconv.Atoi(data[:end])
		if err != nil || n < 0 {
			return nil, errBadFrame
		}
		data = data[end+3:]
		if n > len(data) {
			return nil, errBadFrame
		}
		out = append(out, data[:n])
		data = data[n:]
	}
	return out, nil
}

func rawParams(ps []json.RawMessage) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = string(p)
	}
	return strings.Join(parts, ",")
}
