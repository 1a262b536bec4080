package wotevent

import "strings"

// ServiceResult is the parsed view of a kind-[6000,6999] service-result event.
type ServiceResult struct {
	ResultEventID  string
	RequestKind    int
	RequestEventID string
	ProviderKey    string
	RequesterKey   string
	AmountSats     int64
	HasAmount      bool
}

// ParseServiceResult accepts only events whose kind lies in [6000, 6999].
// Returns ok=false otherwise.
func ParseServiceResult(ev Event) (ServiceResult, bool) {
	if ev.Kind < 6000 || ev.Kind > 6999 {
		return ServiceResult{}, false
	}
	result := ServiceResult{
		ResultEventID:  ev.ID,
		RequestKind:    ev.Kind - 1000,
		RequestEventID: firstTagValue(ev.Tags, "e", 1),
		ProviderKey:    strings.ToLower(ev.Author),
		RequesterKey:   firstTagValue(ev.Tags, "p", 1),
	}
	if raw := firstTagValue(ev.Tags, "amount", 1); raw != "" {
		if millisats, ok := parseNonNegativeInt63(raw); ok {
			result.AmountSats = millisats / 1000
			result.HasAmount = true
		}
	}
	return result, true
}
