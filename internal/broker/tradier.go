package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/eddiefleurent/stamford_condor/internal/models"
	"github.com/eddiefleurent/stamford_condor/internal/util"
)

const (
	tradierLiveURL    = "https://api.tradier.com/v1"
	tradierSandboxURL = "https://sandbox.tradier.com/v1"

	defaultRequestTimeout = 10 * time.Second
	defaultRateLimit      = 200 // requests per minute
)

// APIError is a non-2xx broker response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tradier API error %d: %s", e.Status, e.Body)
}

// TradierClient implements Adapter against the Tradier REST API.
type TradierClient struct {
	client    *http.Client
	limiter   *rate.Limiter
	apiKey    string
	accountID string
	baseURL   string
}

// NewTradierClient creates a Tradier adapter. ratePerMin <= 0 uses the
// default 200 requests/minute token bucket.
func NewTradierClient(apiKey, accountID string, sandbox bool, timeout time.Duration, ratePerMin int) *TradierClient {
	baseURL := tradierLiveURL
	if sandbox {
		baseURL = tradierSandboxURL
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	if ratePerMin <= 0 {
		ratePerMin = defaultRateLimit
	}
	return &TradierClient{
		client:    &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(ratePerMin)), 10),
		apiKey:    apiKey,
		accountID: accountID,
		baseURL:   baseURL,
	}
}

// Handle single-object vs array responses from Tradier.
type singleOrArray[T any] []T

func (s *singleOrArray[T]) UnmarshalJSON(b []byte) error {
	b = []byte(strings.TrimSpace(string(b)))
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '[' {
		return json.Unmarshal(b, (*[]T)(s))
	}
	var one T
	if err := json.Unmarshal(b, &one); err != nil {
		return err
	}
	*s = append(*s, one)
	return nil
}

type historyResponse struct {
	History struct {
		Day singleOrArray[struct {
			Date   string  `json:"date"`
			Open   float64 `json:"open"`
			High   float64 `json:"high"`
			Low    float64 `json:"low"`
			Close  float64 `json:"close"`
			Volume int64   `json:"volume"`
		}] `json:"day"`
	} `json:"history"`
}

type timesalesResponse struct {
	Series struct {
		Data singleOrArray[struct {
			Time   string  `json:"time"`
			Open   float64 `json:"open"`
			High   float64 `json:"high"`
			Low    float64 `json:"low"`
			Close  float64 `json:"close"`
			Volume int64   `json:"volume"`
		}] `json:"data"`
	} `json:"series"`
}

type chainResponse struct {
	Options struct {
		Option singleOrArray[struct {
			Symbol         string  `json:"symbol"`
			OptionType     string  `json:"option_type"`
			Strike         float64 `json:"strike"`
			ExpirationDate string  `json:"expiration_date"`
			Bid            float64 `json:"bid"`
			Ask            float64 `json:"ask"`
			Last           float64 `json:"last"`
			Volume         int64   `json:"volume"`
			OpenInterest   int64   `json:"open_interest"`
			Greeks         *struct {
				Delta float64 `json:"delta"`
				Gamma float64 `json:"gamma"`
				Theta float64 `json:"theta"`
				Vega  float64 `json:"vega"`
				Rho   float64 `json:"rho"`
				MidIV float64 `json:"mid_iv"`
			} `json:"greeks,omitempty"`
		}] `json:"option"`
	} `json:"options"`
}

type quotesResponse struct {
	Quotes struct {
		Quote singleOrArray[struct {
			Symbol string  `json:"symbol"`
			Last   float64 `json:"last"`
		}] `json:"quote"`
	} `json:"quotes"`
}

type balancesResponse struct {
	Balances struct {
		TotalEquity float64 `json:"total_equity"`
		TotalCash   float64 `json:"total_cash"`
		OpenPnL     float64 `json:"open_pl"`
		ClosePnL    float64 `json:"close_pl"`
		Margin      *struct {
			OptionBuyingPower float64 `json:"option_buying_power"`
		} `json:"margin"`
	} `json:"balances"`
}

type orderResponse struct {
	Order struct {
		ID     int    `json:"id"`
		Status string `json:"status"`
	} `json:"order"`
}

// GetBars fetches OHLCV bars. Daily bars use the history endpoint; intraday
// timeframes use timesales.
func (t *TradierClient) GetBars(ctx context.Context, symbol string, start, end time.Time, tf Timeframe) ([]models.Bar, error) {
	if tf == Timeframe1Day {
		params := url.Values{
			"symbol":   {symbol},
			"interval": {"daily"},
			"start":    {start.Format("2006-01-02")},
			"end":      {end.Format("2006-01-02")},
		}
		var resp historyResponse
		if err := t.get(ctx, "/markets/history", params, &resp); err != nil {
			return nil, err
		}
		bars := make([]models.Bar, 0, len(resp.History.Day))
		for _, d := range resp.History.Day {
			ts, err := time.Parse("2006-01-02", d.Date)
			if err != nil {
				continue
			}
			bars = append(bars, models.Bar{
				Timestamp: ts, Open: d.Open, High: d.High, Low: d.Low, Close: d.Close, Volume: d.Volume,
			})
		}
		if len(bars) == 0 {
			return nil, ErrNoData
		}
		return bars, nil
	}

	interval := map[Timeframe]string{
		Timeframe1Min:  "1min",
		Timeframe5Min:  "5min",
		Timeframe15Min: "15min",
		Timeframe1Hour: "15min", // aggregated client-side below
	}[tf]
	if interval == "" {
		return nil, fmt.Errorf("unsupported timeframe %q", tf)
	}
	params := url.Values{
		"symbol":   {symbol},
		"interval": {interval},
		"start":    {start.Format("2006-01-02 15:04")},
		"end":      {end.Format("2006-01-02 15:04")},
	}
	var resp timesalesResponse
	if err := t.get(ctx, "/markets/timesales", params, &resp); err != nil {
		return nil, err
	}
	bars := make([]models.Bar, 0, len(resp.Series.Data))
	for _, d := range resp.Series.Data {
		ts, err := time.Parse("2006-01-02T15:04:05", d.Time)
		if err != nil {
			continue
		}
		bars = append(bars, models.Bar{
			Timestamp: ts, Open: d.Open, High: d.High, Low: d.Low, Close: d.Close, Volume: d.Volume,
		})
	}
	if tf == Timeframe1Hour {
		bars = aggregateBars(bars, time.Hour)
	}
	if len(bars) == 0 {
		return nil, ErrNoData
	}
	return bars, nil
}

// aggregateBars rolls bars up into coarser buckets.
func aggregateBars(bars []models.Bar, bucket time.Duration) []models.Bar {
	var out []models.Bar
	for _, b := range bars {
		key := b.Timestamp.Truncate(bucket)
		if n := len(out); n > 0 && out[n-1].Timestamp.Equal(key) {
			agg := &out[n-1]
			if b.High > agg.High {
				agg.High = b.High
			}
			if b.Low < agg.Low {
				agg.Low = b.Low
			}
			agg.Close = b.Close
			agg.Volume += b.Volume
			continue
		}
		b.Timestamp = key
		out = append(out, b)
	}
	return out
}

// GetOptionsChain fetches the chain for the expiration on asOf's calendar
// date (the same-day expiration for a 0-DTE engine).
func (t *TradierClient) GetOptionsChain(ctx context.Context, symbol string, asOf time.Time) (*models.OptionsChain, error) {
	expiration := asOf.Format("2006-01-02")
	params := url.Values{
		"symbol":     {symbol},
		"expiration": {expiration},
		"greeks":     {"true"},
	}
	var resp chainResponse
	if err := t.get(ctx, "/markets/options/chains", params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Options.Option) == 0 {
		return nil, ErrNoData
	}
	eastern, err := time.LoadLocation("America/New_York")
	if err != nil {
		return nil, fmt.Errorf("loading settlement timezone: %w", err)
	}
	chain := &models.OptionsChain{Underlying: symbol, Timestamp: asOf}
	for _, o := range resp.Options.Option {
		side := models.SideCall
		if strings.EqualFold(o.OptionType, "put") {
			side = models.SidePut
		}
		exp, err := time.ParseInLocation("2006-01-02", o.ExpirationDate, eastern)
		if err != nil {
			continue
		}
		c := models.OptionContract{
			Symbol:       o.Symbol,
			Side:         side,
			Strike:       o.Strike,
			Expiration:   exp.Add(16 * time.Hour), // 4pm ET settlement
			Bid:          o.Bid,
			Ask:          o.Ask,
			Last:         o.Last,
			Volume:       o.Volume,
			OpenInterest: o.OpenInterest,
		}
		if o.Greeks != nil {
			c.IV = o.Greeks.MidIV
			c.Delta = o.Greeks.Delta
			c.Gamma = o.Greeks.Gamma
			c.Theta = o.Greeks.Theta
			c.Vega = o.Greeks.Vega
			c.Rho = o.Greeks.Rho
		}
		chain.Contracts = append(chain.Contracts, c)
	}
	return chain, nil
}

// GetCurrentPrice returns the last trade price.
func (t *TradierClient) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{"symbols": {symbol}}
	var resp quotesResponse
	if err := t.get(ctx, "/markets/quotes", params, &resp); err != nil {
		return 0, err
	}
	if len(resp.Quotes.Quote) == 0 || resp.Quotes.Quote[0].Last <= 0 {
		return 0, ErrNoData
	}
	return resp.Quotes.Quote[0].Last, nil
}

// GetAccount returns the account balances snapshot.
func (t *TradierClient) GetAccount(ctx context.Context) (*Account, error) {
	var resp balancesResponse
	endpoint := fmt.Sprintf("/accounts/%s/balances", t.accountID)
	if err := t.get(ctx, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	acct := &Account{
		PortfolioValue: resp.Balances.TotalEquity,
		Cash:           resp.Balances.TotalCash,
		Equity:         resp.Balances.TotalEquity,
		UnrealizedPnL:  resp.Balances.OpenPnL,
		RealizedPnL:    resp.Balances.ClosePnL,
	}
	if resp.Balances.Margin != nil {
		acct.BuyingPower = resp.Balances.Margin.OptionBuyingPower
	}
	return acct, nil
}

// optionTick is the minimum price increment for listed options.
const optionTick = 0.01

// spreadLimitPrice returns the multileg order type and tick-snapped limit
// price for opening the spread: credits floor so the order stays fillable,
// debits ceil so the cap covers the quote.
func spreadLimitPrice(spread *models.SpreadDescriptor) (string, float64) {
	if spread.IsCredit() {
		return "credit", math.Max(util.FloorToTick(spread.NetCredit, optionTick), optionTick)
	}
	return "debit", math.Max(util.CeilToTick(spread.NetDebit, optionTick), optionTick)
}

// closeLimitPrice returns the order type and limit for unwinding a position.
// Closing a credit structure pays a debit capped at the current mark, falling
// back to the entry price when no mark is available yet.
func closeLimitPrice(position *models.Position) (string, float64) {
	mark := position.Current.Price
	if mark <= 0 {
		mark = position.Entry.Price
	}
	if position.Spread.IsCredit() {
		return "debit", math.Max(util.CeilToTick(mark, optionTick), optionTick)
	}
	return "credit", math.Max(util.FloorToTick(mark, optionTick), optionTick)
}

// SubmitSpreadOrder places a multileg limit order opening the spread.
func (t *TradierClient) SubmitSpreadOrder(ctx context.Context, spread *models.SpreadDescriptor, qty int) (*OrderResult, error) {
	orderType, price := spreadLimitPrice(spread)
	return t.placeMultileg(ctx, spread.Legs(), qty, orderType, price, false)
}

// ClosePosition places the reversing multileg order for an open position.
func (t *TradierClient) ClosePosition(ctx context.Context, position *models.Position) (*OrderResult, error) {
	orderType, price := closeLimitPrice(position)
	return t.placeMultileg(ctx, position.Spread.Legs(), position.Quantity, orderType, price, true)
}

func (t *TradierClient) placeMultileg(ctx context.Context, legs []models.SpreadLeg, qty int, orderType string, price float64, closing bool) (*OrderResult, error) {
	if len(legs) == 0 {
		return nil, fmt.Errorf("order has no legs")
	}
	params := url.Values{
		"class":    {"multileg"},
		"symbol":   {underlyingOf(legs[0].Contract.Symbol)},
		"type":     {orderType},
		"price":    {strconv.FormatFloat(price, 'f', 2, 64)},
		"duration": {"day"},
	}
	for i, leg := range legs {
		side := "sell_to_open"
		if leg.Side == models.LegLong {
			side = "buy_to_open"
		}
		if closing {
			if leg.Side == models.LegShort {
				side = "buy_to_close"
			} else {
				side = "sell_to_close"
			}
		}
		idx := strconv.Itoa(i)
		params.Set("option_symbol["+idx+"]", leg.Contract.Symbol)
		params.Set("side["+idx+"]", side)
		params.Set("quantity["+idx+"]", strconv.Itoa(qty))
	}

	var resp orderResponse
	endpoint := fmt.Sprintf("/accounts/%s/orders", t.accountID)
	if err := t.post(ctx, endpoint, params, &resp); err != nil {
		return nil, err
	}
	return &OrderResult{
		OrderIDs: []string{strconv.Itoa(resp.Order.ID)},
		Status:   resp.Order.Status,
	}, nil
}

// TestConnection verifies API reachability and credentials.
func (t *TradierClient) TestConnection(ctx context.Context) bool {
	_, err := t.GetAccount(ctx)
	return err == nil
}

func underlyingOf(occ string) string {
	const tail = 15 // YYMMDD + C/P + 8-digit strike
	if len(occ) <= tail {
		return occ
	}
	return occ[:len(occ)-tail]
}

func (t *TradierClient) get(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	u := t.baseURL + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return t.do(ctx, http.MethodGet, u, nil, out)
}

func (t *TradierClient) post(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	return t.do(ctx, http.MethodPost, t.baseURL+endpoint, params, out)
}

func (t *TradierClient) do(ctx context.Context, method, u string, params url.Values, out interface{}) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}

	var req *http.Request
	var err error
	if method == http.MethodPost && params != nil {
		req, err = http.NewRequestWithContext(ctx, method, u, strings.NewReader(params.Encode()))
		if err != nil {
			return err
		}
		req.Header.Add("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req, err = http.NewRequestWithContext(ctx, method, u, http.NoBody)
		if err != nil {
			return err
		}
	}
	req.Header.Add("Authorization", "Bearer "+t.apiKey)
	req.Header.Add("Accept", "application/json")
	req.Header.Add("User-Agent", "stamford-condor/1.0 (+tradier)")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &APIError{Status: resp.StatusCode, Body: fmt.Sprintf("%s %s -> %s", method, u, string(body))}
	}

	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(out); err != nil && err != io.EOF {
		return err
	}
	return nil
}
