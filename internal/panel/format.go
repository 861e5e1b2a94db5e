package panel

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatUptime renders seconds as "{d}d {hh}h {mm}m {ss}s". Days are not
// padded.
func FormatUptime(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	days := seconds / 86400
	seconds %= 86400
	hours := seconds / 3600
	seconds %= 3600
	minutes := seconds / 60
	seconds %= 60
	return fmt.Sprintf("%dd %02dh %02dm %02ds", days, hours, minutes, seconds)
}

// HSV is a color with every component normalized to [0,1].
type HSV struct {
	H float64 `json:"h"`
	S float64 `json:"s"`
	V float64 `json:"v"`
}

// ParseHSV reads the device format "h,s,v" with h in degrees and s, v in
// percent.
func ParseHSV(s string) (HSV, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return HSV{}, fmt.Errorf("hsv %q: want 3 components, got %d", s, len(parts))
	}
	var vals [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return HSV{}, fmt.Errorf("hsv %q: component %d: %w", s, i, err)
		}
		vals[i] = v
	}
	return HSV{H: vals[0] / 360, S: vals[1] / 100, V: vals[2] / 100}, nil
}

// packEpsilon absorbs the float error of dividing and scaling back, so
// that 29/100*100 packs as 29 and not 28.
const packEpsilon = 1e-6

// Pack renders the color back into the device format using integer
// truncation.
func (c HSV) Pack() string {
	return fmt.Sprintf("%d,%d,%d", truncate(c.H*360), truncate(c.S*100), truncate(c.V*100))
}

func truncate(x float64) int {
	return int(math.Floor(x + packEpsilon))
}

// stringify renders a decoded JSON value the way it should appear in a
// text field.
func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}

// truthy applies loose truthiness: false, zero, empty text and null are
// false, everything else is true.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case json.Number:
		f, err := x.Float64()
		return err != nil || (f != 0 && !math.IsNaN(f))
	case float64:
		return x != 0 && !math.IsNaN(x)
	case int:
		return x != 0
	case int64:
		return x != 0
	default:
		return true
	}
}

// toInt converts a decoded JSON value to an int, reporting failure.
func toInt(v any) (int, bool) {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return int(i), true
		}
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		return int(f), true
	case float64:
		return int(x), true
	case int:
		return x, true
	case int64:
		return int(x), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(x))
		return i, err == nil
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
