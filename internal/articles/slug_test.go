package articles

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Welcome to the Knowledge Base", "welcome-to-the-knowledge-base"},
		{"Go 1.24 Release Notes", "go-1-24-release-notes"},
		{"  Leading and trailing  ", "leading-and-trailing"},
		{"Crème brûlée für Anfänger", "creme-brulee-fur-anfanger"},
		{"What's new?!", "what-s-new"},
		{"UPPER Case Title", "upper-case-title"},
		{"multiple---hyphens -- collapse", "multiple-hyphens-collapse"},
		{"", ""},
		{"!!!", ""},
	}
	for _, tc := range tests {
		if got := Slugify(tc.title); got != tc.want {
			t.Errorf("Slugify(%q) = %q, want %q", tc.title, got, tc.want)
		}
	}
}
