package alerts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// State is an alert's position in the resale workflow.
type State string

const (
	StatePending   State = "pending"
	StateYay       State = "yay"
	StateNay       State = "nay"
	StatePurchased State = "purchased"
	StateShipped   State = "shipped"
	StateReceived  State = "received"
	StatePosted    State = "posted"
	StateSold      State = "sold"
)

var allStates = []State{
	StatePending,
	StateYay,
	StateNay,
	StatePurchased,
	StateShipped,
	StateReceived,
	StatePosted,
	StateSold,
}

var stateSet = func() map[State]struct{} {
	set := make(map[State]struct{}, len(allStates))
	for _, state := range allStates {
		set[state] = struct{}{}
	}
	return set
}()

// AllStates returns the ordered list of known states.
func AllStates() []State {
	cp := make([]State, len(allStates))
	copy(cp, allStates)
	return cp
}

// ParseState converts a string into a known State. Matching is case-insensitive.
func ParseState(value string) (State, bool) {
	normalized := State(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := stateSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether no transition leaves s.
func (s State) IsTerminal() bool {
	return s == StateNay || s == StateSold
}

// Money is an amount tagged with an ISO currency code.
type Money struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency,omitempty"`
}

var moneyPrinter = message.NewPrinter(language.English)

// String renders the amount with thousands separators; yen and won have no
// minor unit.
func (m Money) String() string {
	format := "%.2f"
	switch m.Currency {
	case "JPY", "KRW":
		format = "%.0f"
	}
	text := moneyPrinter.Sprintf(format, m.Amount)
	if m.Currency == "" {
		return text
	}
	return text + " " + m.Currency
}

// UnmarshalJSON accepts the object form, a bare number, or a legacy display
// string such as "¥1,200" or "12.50 USD".
func (m *Money) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*m = Money{}
		return nil
	}
	switch trimmed[0] {
	case '{':
		type plain Money
		var p plain
		if err := json.Unmarshal(trimmed, &p); err != nil {
			return err
		}
		p.Currency = strings.ToUpper(strings.TrimSpace(p.Currency))
		*m = Money(p)
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		parsed, err := ParseMoney(s)
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	default:
		amount, err := strconv.ParseFloat(string(trimmed), 64)
		if err != nil {
			return fmt.Errorf("money: %w", err)
		}
		*m = Money{Amount: amount}
		return nil
	}
}

var currencySymbols = []struct {
	symbol string
	code   string
}{
	{"US$", "USD"},
	{"¥", "JPY"},
	{"￥", "JPY"},
	{"円", "JPY"},
	{"$", "USD"},
	{"£", "GBP"},
	{"€", "EUR"},
	{"₩", "KRW"},
}

// ParseMoney parses display strings like "¥1,200", "1200円", or "$12.50".
// A three-letter code before or after the number wins over a symbol.
func ParseMoney(value string) (Money, error) {
	text := strings.TrimSpace(value)
	if text == "" {
		return Money{}, nil
	}
	var currency string
	for _, s := range currencySymbols {
		if strings.Contains(text, s.symbol) {
			if currency == "" {
				currency = s.code
			}
			text = strings.ReplaceAll(text, s.symbol, "")
		}
	}
	fields := strings.Fields(text)
	var number string
	for _, field := range fields {
		if len(field) == 3 && isAlpha(field) {
			currency = strings.ToUpper(field)
			continue
		}
		number += field
	}
	number = strings.ReplaceAll(number, ",", "")
	if number == "" {
		return Money{}, fmt.Errorf("money: no amount in %q", value)
	}
	amount, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return Money{}, fmt.Errorf("money: parse %q: %w", value, err)
	}
	return Money{Amount: amount, Currency: currency}, nil
}

func isAlpha(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

// Alert is one tracked resale opportunity. Everything except State and
// UpdatedAt is fixed at creation.
type Alert struct {
	ID             int64     `json:"id"`
	State          State     `json:"state"`
	CandidateID    string    `json:"candidate_id,omitempty"`
	SourceTitle    string    `json:"source_title"`
	CandidateTitle string    `json:"candidate_title"`
	SourceLink     string    `json:"source_link"`
	CandidateLink  string    `json:"candidate_link"`
	Similarity     float64   `json:"similarity"`
	ProfitMargin   float64   `json:"profit_margin"`
	SourcePrice    Money     `json:"source_price"`
	CandidatePrice Money     `json:"candidate_price"`
	ShippingCost   Money     `json:"shipping_cost"`
	SoldDate       string    `json:"sold_date,omitempty"`
	ThumbnailURL   string    `json:"thumbnail_url,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func cloneAlerts(items []Alert) []Alert {
	if items == nil {
		return nil
	}
	out := make([]Alert, len(items))
	copy(out, items)
	return out
}
