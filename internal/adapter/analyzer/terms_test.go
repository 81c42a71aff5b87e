package analyzer

import (
	"reflect"
	"testing"
)

func TestSignificantTerms(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{
			"drops stopwords and case-folds",
			"What was the Quarterly Revenue?",
			[]string{"quarterly", "revenue"},
		},
		{
			"deduplicates preserving order",
			"revenue revenue growth Revenue",
			[]string{"revenue", "growth"},
		},
		{
			"drops single characters",
			"a b vitamin C levels",
			[]string{"vitamin", "levels"},
		},
		{
			"splits on punctuation",
			"shipping-policy: returns/refunds",
			[]string{"shipping", "policy", "returns", "refunds"},
		},
		{
			"keeps numbers",
			"revenue in Q3 2024",
			[]string{"revenue", "q3", "2024"},
		},
		{
			"empty input",
			"",
			[]string{},
		},
		{
			"only stopwords",
			"what is the",
			[]string{},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SignificantTerms(tc.in)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("SignificantTerms(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}
