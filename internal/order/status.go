package order

import (
	"slices"
	"strings"
)

var canonicalStatuses = []Status{
	StatusProcessing,
	StatusPackaged,
	StatusShipped,
	StatusOutForDelivery,
	StatusDelivered,
}

// Legacy spellings still present in older rows and clients.
var statusAliases = map[string]Status{
	"pending":        StatusProcessing,
	"on_the_way":     StatusShipped,
	"outfordelivery": StatusOutForDelivery,
}

// CanonicalStatuses lists the lifecycle in order, first to last.
func CanonicalStatuses() []Status {
	return slices.Clone(canonicalStatuses)
}

func (s Status) IsCanonical() bool {
	return slices.Contains(canonicalStatuses, s)
}

// Index is the lifecycle position of s, or -1 when s is not canonical.
func (s Status) Index() int {
	return slices.Index(canonicalStatuses, s)
}

// ParseStatus maps raw input onto a canonical status. The bool is false
// when the input was empty or unrecognized and the default was used.
func ParseStatus(raw string) (Status, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return StatusProcessing, false
	}
	if alias, ok := statusAliases[s]; ok {
		return alias, true
	}
	if st := Status(s); st.IsCanonical() {
		return st, true
	}
	return StatusProcessing, false
}

// Normalize never fails: anything it does not recognize becomes processing.
func Normalize(raw string) Status {
	s, _ := ParseStatus(raw)
	return s
}
