package labs

import (
	"strconv"
	"strings"
)

// Parameter statuses relative to the printed reference range.
const (
	ParamLow     = "low"
	ParamHigh    = "high"
	ParamNormal  = "normal"
	ParamUnknown = "unknown"
)

// parseReferenceRange reads ranges such as "0.6-1.2", "70 – 110 mg/dL",
// "< 140" and "> 3.5". A nil bound is open.
func parseReferenceRange(raw string) (lower, upper *float64, ok bool) {
	cleaned := strings.ToLower(strings.TrimSpace(raw))
	cleaned = strings.NewReplacer("–", "-", "—", "-", ",", "").Replace(cleaned)
	if cleaned == "" {
		return nil, nil, false
	}

	switch {
	case strings.HasPrefix(cleaned, "<"):
		if v, found := firstNumber(cleaned); found {
			return nil, &v, true
		}
		return nil, nil, false
	case strings.HasPrefix(cleaned, ">"):
		if v, found := firstNumber(cleaned); found {
			return &v, nil, true
		}
		return nil, nil, false
	}

	if left, right, found := strings.Cut(cleaned, "-"); found {
		lo, errLo := strconv.ParseFloat(strings.TrimSpace(left), 64)
		hi, errHi := strconv.ParseFloat(strings.TrimSpace(right), 64)
		if errLo == nil && errHi == nil {
			return &lo, &hi, true
		}
	}

	var nums []float64
	for _, m := range numberPattern.FindAllString(cleaned, -1) {
		if v, err := strconv.ParseFloat(strings.TrimSuffix(m, "."), 64); err == nil {
			nums = append(nums, v)
		}
	}
	if len(nums) < 2 {
		return nil, nil, false
	}
	lo, hi := nums[0], nums[0]
	for _, v := range nums[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return &lo, &hi, true
}

func firstNumber(s string) (float64, bool) {
	m := numberPattern.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(m, "."), 64)
	return v, err == nil
}

// ParameterStatus classifies a parameter's value against its reference
// range. Non-numeric values and unparseable ranges are unknown.
func ParameterStatus(p Parameter) string {
	if strings.TrimSpace(p.ReferenceRange) == "" {
		return ParamUnknown
	}
	value, _, ok := numericValue(p)
	if !ok {
		return ParamUnknown
	}
	lower, upper, ok := parseReferenceRange(p.ReferenceRange)
	if !ok {
		return ParamUnknown
	}
	switch {
	case lower != nil && value < *lower:
		return ParamLow
	case upper != nil && value > *upper:
		return ParamHigh
	default:
		return ParamNormal
	}
}

// IsAbnormal reports whether a parameter falls outside its range.
func IsAbnormal(p Parameter) bool {
	s := p.Status
	if s == "" {
		s = ParameterStatus(p)
	}
	return s == ParamLow || s == ParamHigh
}
