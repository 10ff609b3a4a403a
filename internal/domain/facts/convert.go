package facts

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// toFloat converts a JSON-ish value to float64; ok is false when absent,
// unparseable or not finite
func toFloat(v any) (float64, bool) {
	var (
		f   float64
		err error
	)
	switch n := v.(type) {
	case nil, bool:
		return 0, false
	case string:
		// "$1,250.00" as typed into a form
		s := strings.TrimPrefix(strings.TrimSpace(strings.ReplaceAll(n, ",", "")), "$")
		if s == "" {
			return 0, false
		}
		f, err = cast.ToFloat64E(s)
	default:
		f, err = cast.ToFloat64E(n)
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func toBool(v any) (bool, bool) {
	switch b := v.(type) {
	case nil:
		return false, false
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "yes", "y":
			return true, true
		case "no", "n":
			return false, true
		}
		parsed, err := cast.ToBoolE(strings.TrimSpace(b))
		return parsed, err == nil
	default:
		parsed, err := cast.ToBoolE(b)
		return parsed, err == nil
	}
}

func toString(v any) string {
	if v == nil {
		return ""
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimSpace(s)
}

// toTime accepts a time value or a date string; naive dates are UTC.
// Numbers are not dates.
func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, !t.IsZero()
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		parsed, err := cast.ToTimeInDefaultLocationE(s, time.UTC)
		return parsed, err == nil && !parsed.IsZero()
	default:
		return time.Time{}, false
	}
}

func toStrings(v any) []string {
	switch l := v.(type) {
	case nil:
		return nil
	case []string:
		out := make([]string, 0, len(l))
		for _, s := range l {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(l))
		for _, item := range l {
			if s := toString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		var out []string
		for _, part := range strings.Split(l, ",") {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func toMap(v any) map[string]any {
	switch m := v.(type) {
	case map[string]any:
		return m
	case map[string]string:
		out := make(map[string]any, len(m))
		for k, s := range m {
			out[k] = s
		}
		return out
	default:
		return nil
	}
}
