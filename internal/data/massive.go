// This file contains a Massive-backed Provider implementation that
// retrieves daily bars and an at-the-money option quote via Massive's
// HTTP API, used only to calibrate a study's starting realized
// volatility and VRP. HTTP plumbing (retries, timeouts) goes through
// go-resty/resty rather than net/http directly.
package data

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/contactkeval/oilsim/internal/logger"
)

// massiveProvider implements Provider using Massive's public aggregates
// and quote APIs.
type massiveProvider struct {
	client    *resty.Client
	lg        *logger.Logger
	secondary Provider
}

// NewMassiveProvider constructs a Massive-backed Provider. lg may be nil
// (logger.Nop() is used); secondary is consulted when Massive can't
// answer a request.
func NewMassiveProvider(apiKey string, lg *logger.Logger, secondary Provider) Provider {
	if lg == nil {
		lg = logger.Nop()
	}
	client := resty.New().
		SetBaseURL("https://api.massive.com").
		SetTimeout(60*time.Second).
		SetQueryParam("apiKey", apiKey).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond)

	return &massiveProvider{client: client, lg: lg, secondary: secondary}
}

func (m *massiveProvider) Secondary() Provider { return m.secondary }

// massiveAggsResponse mirrors the Massive/Polygon-style aggregates
// response shape.
type massiveAggsResponse struct {
	Ticker  string `json:"ticker"`
	Results []struct {
		Open      float64 `json:"o"`
		High      float64 `json:"h"`
		Low       float64 `json:"l"`
		Close     float64 `json:"c"`
		Volume    float64 `json:"v"`
		Timestamp int64   `json:"t"` // epoch millis
	} `json:"results"`
	Status string `json:"status"`
}

func (m *massiveProvider) DailyBars(ctx context.Context, symbol string, from, to time.Time) ([]Bar, error) {
	m.lg.Debugf("event=massive_bars_request symbol=%s from=%s to=%s", symbol, from.Format("2006-01-02"), to.Format("2006-01-02"))

	var body massiveAggsResponse
	resp, err := m.client.R().
		SetContext(ctx).
		SetPathParams(map[string]string{
			"symbol": symbol,
			"from":   from.Format("2006-01-02"),
			"to":     to.Format("2006-01-02"),
		}).
		SetQueryParams(map[string]string{"adjusted": "true", "sort": "asc", "limit": "50000"}).
		SetResult(&body).
		Get("/v2/aggs/ticker/{symbol}/range/1/day/{from}/{to}")
	if err != nil {
		if m.secondary != nil {
			return m.secondary.DailyBars(ctx, symbol, from, to)
		}
		return nil, fmt.Errorf("data: massive daily bars request: %w", err)
	}
	if resp.IsError() {
		if m.secondary != nil {
			return m.secondary.DailyBars(ctx, symbol, from, to)
		}
		return nil, fmt.Errorf("data: massive daily bars status=%d", resp.StatusCode())
	}

	out := make([]Bar, 0, len(body.Results))
	for _, r := range body.Results {
		out = append(out, Bar{
			Date:  time.UnixMilli(r.Timestamp).UTC(),
			Open:  r.Open,
			High:  r.High,
			Low:   r.Low,
			Close: r.Close,
			Vol:   r.Volume,
		})
	}
	m.lg.Tracef("event=massive_bars_received symbol=%s n=%d", symbol, len(out))
	return out, nil
}

// massiveQuoteResponse is the last-trade style quote used to derive an
// ATM option mid-price.
type massiveQuoteResponse struct {
	Results struct {
		Bid float64 `json:"bid_price"`
		Ask float64 `json:"ask_price"`
	} `json:"results"`
}

func (m *massiveProvider) ATMOptionMid(ctx context.Context, symbol string, asOf, expiry time.Time, underlyingPrice float64) (strike, callMid, putMid float64, err error) {
	strike = math.Round(underlyingPrice)

	callTicker := fmt.Sprintf("O:%s%s C%08d", symbol, expiry.Format("060102"), int(strike*1000))
	putTicker := fmt.Sprintf("O:%s%s P%08d", symbol, expiry.Format("060102"), int(strike*1000))

	callMid, cerr := m.quoteMid(ctx, callTicker, asOf)
	putMid, perr := m.quoteMid(ctx, putTicker, asOf)
	if cerr != nil || perr != nil {
		if m.secondary != nil {
			return m.secondary.ATMOptionMid(ctx, symbol, asOf, expiry, underlyingPrice)
		}
		if cerr != nil {
			return 0, 0, 0, fmt.Errorf("data: massive call quote: %w", cerr)
		}
		return 0, 0, 0, fmt.Errorf("data: massive put quote: %w", perr)
	}
	return strike, callMid, putMid, nil
}

func (m *massiveProvider) quoteMid(ctx context.Context, ticker string, asOf time.Time) (float64, error) {
	var body massiveQuoteResponse
	resp, err := m.client.R().
		SetContext(ctx).
		SetPathParam("ticker", ticker).
		SetQueryParam("timestamp", asOf.Format("2006-01-02")).
		SetResult(&body).
		Get("/v3/quotes/{ticker}")
	if err != nil {
		return 0, err
	}
	if resp.IsError() {
		return 0, fmt.Errorf("massive quote status=%d", resp.StatusCode())
	}
	return (body.Results.Bid + body.Results.Ask) / 2, nil
}
