package matching

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		title string
		want  DocType
	}{
		{"Zomato Limited - RHP", DocTypeRHP},
		{"Swiggy Limited - DRHP", DocTypeDRHP},
		{"Corrigendum to RHP - Zomato Limited", DocTypeCorrigendum},
		{"Addendum to DRHP - Swiggy Limited", DocTypeAddendum},
		{"Annual Report 2024", DocTypeOther},
		{"CORRIGENDUM TO DRHP", DocTypeCorrigendum},
	}

	for _, tt := range tests {
		if got := Classify(tt.title); got != tt.want {
			t.Errorf("Classify(%q) = %s, want %s", tt.title, got, tt.want)
		}
	}
}

// A title containing both "corrigendum" and "rhp" must never be taken for
// the primary filing.
func TestClassifyOrdering(t *testing.T) {
	if got := Classify("Corrigendum to the Red Herring Prospectus (RHP)"); got != DocTypeCorrigendum {
		t.Fatalf("expected CORRIGENDUM, got %s", got)
	}
	if got := Classify("Addendum to RHP"); got != DocTypeAddendum {
		t.Fatalf("expected ADDENDUM, got %s", got)
	}
	// "drhp" contains "rhp" as a substring; DRHP must win.
	if got := Classify("XYZ DRHP filing"); got != DocTypeDRHP {
		t.Fatalf("expected DRHP, got %s", got)
	}
}

func TestDocTypePriority(t *testing.T) {
	if DocTypeRHP.Priority() <= DocTypeDRHP.Priority() {
		t.Fatal("RHP must outrank DRHP")
	}
	if DocTypeDRHP.Priority() <= DocTypeCorrigendum.Priority() {
		t.Fatal("DRHP must outrank CORRIGENDUM")
	}
	if DocTypeOther.Eligible() || DocTypeCorrigendum.Eligible() || DocTypeAddendum.Eligible() {
		t.Fatal("only RHP/DRHP are eligible")
	}
	if !DocTypeRHP.Eligible() || !DocTypeDRHP.Eligible() {
		t.Fatal("RHP and DRHP must be eligible")
	}
}
