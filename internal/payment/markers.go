package payment

import "strings"

// MarkerRules holds the URL marker substrings for the hosted checkout page.
// The page's URL scheme is not ours to control, so markers live in config
// (configs/markers.yaml) rather than in code.
type MarkerRules struct {
	Success []string `yaml:"success"`
	Cancel  []string `yaml:"cancel"`
}

// DefaultMarkerRules covers the PayOS-style statuses seen in production.
func DefaultMarkerRules() MarkerRules {
	return MarkerRules{
		Success: []string{"status=paid", "status=success", "/payment-success"},
		Cancel:  []string{"status=cancelled", "status=canceled", "cancel=true", "/payment-cancel"},
	}
}

// Normalize drops empty markers and lowercases the rest.
func (r MarkerRules) Normalize() MarkerRules {
	out := MarkerRules{}
	for _, m := range r.Cancel {
		if t := strings.ToLower(strings.TrimSpace(m)); t != "" {
			out.Cancel = append(out.Cancel, t)
		}
	}
	for _, m := range r.Success {
		if t := strings.ToLower(strings.TrimSpace(m)); t != "" {
			out.Success = append(out.Success, t)
		}
	}
	return out
}

// Verdict is the classification of one navigation event.
type Verdict int

const (
	VerdictNone Verdict = iota
	VerdictSuccess
	VerdictFailure
)

func (v Verdict) String() string {
	switch v {
	case VerdictSuccess:
		return "success"
	case VerdictFailure:
		return "failure"
	default:
		return "none"
	}
}

// Classify maps a navigated URL to at most one verdict. Cancel markers are
// checked before success markers, so a URL matching both classifies as
// failure: money is not confirmed until a success URL with no cancel marker
// arrives. Neutral URLs (the checkout form, intermediate redirects) return
// VerdictNone.
func (r MarkerRules) Classify(rawURL string) (Verdict, bool) {
	if rawURL == "" {
		return VerdictNone, false
	}
	lower := strings.ToLower(rawURL)

	for _, m := range r.Cancel {
		if m != "" && strings.Contains(lower, strings.ToLower(m)) {
			return VerdictFailure, true
		}
	}
	for _, m := range r.Success {
		if m != "" && strings.Contains(lower, strings.ToLower(m)) {
			return VerdictSuccess, true
		}
	}
	return VerdictNone, false
}
