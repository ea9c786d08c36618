package logging

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"
)

// scoreKeys carry 0-100 similarity or margin values.
var scoreKeys = map[string]struct{}{
	"score":             {},
	"similarity":        {},
	"margin":            {},
	"profit_margin":     {},
	"min_similarity":    {},
	"min_profit_margin": {},
}

// IDs logs a list of alert ids as "1,2,3" in both output formats.
func IDs(key string, ids []int64) Attr { return slog.Any(key, ids) }

// normalizeValue rewrites values shared by the console and JSON handlers:
// scores keep two decimals, id lists join with commas, Stringers such as
// Money and ImageRef render through String, durations drop sub-ms noise.
func normalizeValue(key string, v slog.Value) slog.Value {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindFloat64:
		if _, ok := scoreKeys[key]; ok {
			f := v.Float64()
			if !math.IsNaN(f) && !math.IsInf(f, 0) {
				return slog.Float64Value(math.Round(f*100) / 100)
			}
		}
	case slog.KindDuration:
		d := v.Duration()
		if d >= time.Millisecond {
			return slog.DurationValue(d.Round(time.Millisecond))
		}
	case slog.KindAny:
		switch x := v.Any().(type) {
		case []int64:
			return slog.StringValue(joinIDs(x))
		case error:
			return v
		case fmt.Stringer:
			return slog.StringValue(x.String())
		}
	}
	return v
}

func joinIDs(ids []int64) string {
	if len(ids) == 0 {
		return "-"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func attrString(key string, v slog.Value) string {
	v = normalizeValue(key, v)
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	default:
		return formatValue(key, v)
	}
}

func formatValue(key string, v slog.Value) string {
	v = normalizeValue(key, v)
	var s string
	switch v.Kind() {
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().In(time.Local).Format(logTimestampLayout)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			s = err.Error()
		} else {
			s = fmt.Sprint(v.Any())
		}
	default:
		s = v.String()
	}
	if needsQuotes(s) {
		return strconv.Quote(s)
	}
	return s
}

func needsQuotes(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		if r <= ' ' || r == '=' || r == '"' {
			return true
		}
	}
	return false
}
