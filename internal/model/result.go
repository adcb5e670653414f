package model

// UnknownName is the name reported for samples that match no palette entry.
const UnknownName = "Unknown"

// Result is the outcome of classifying a single color sample.
type Result struct {
	Matched  bool
	Name     string  // palette entry name, or UnknownName
	Level    int     // 0 when unmatched
	Distance float64 // distance to the nearest palette entry
}
