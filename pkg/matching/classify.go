package matching

import "strings"

// DocType classifies a SEBI filing title.
type DocType string

const (
	DocTypeRHP         DocType = "RHP"
	DocTypeDRHP        DocType = "DRHP"
	DocTypeCorrigendum DocType = "CORRIGENDUM"
	DocTypeAddendum    DocType = "ADDENDUM"
	DocTypeOther       DocType = "OTHER"
)

// Classify assigns a document type from a raw (unnormalized) title.
// Check order matters: "Corrigendum to RHP" contains both "corrigendum"
// and "rhp" and must classify as a corrigendum, never as the main filing.
func Classify(rawTitle string) DocType {
	lower := strings.ToLower(rawTitle)
	switch {
	case strings.Contains(lower, "corrigendum"):
		return DocTypeCorrigendum
	case strings.Contains(lower, "addendum"):
		return DocTypeAddendum
	case strings.Contains(lower, "drhp"):
		return DocTypeDRHP
	case strings.Contains(lower, "rhp"):
		return DocTypeRHP
	default:
		return DocTypeOther
	}
}

// Priority returns the selection preference of a document type.
// Higher is preferred.
func (d DocType) Priority() int {
	switch d {
	case DocTypeRHP:
		return 3
	case DocTypeDRHP:
		return 2
	case DocTypeAddendum, DocTypeCorrigendum:
		return 1
	default:
		return 0
	}
}

// Eligible reports whether a candidate of this type may ever be selected
// as the primary filing. Corrigenda and addenda are never selected, no
// matter how well their titles match.
func (d DocType) Eligible() bool {
	return d == DocTypeRHP || d == DocTypeDRHP
}
