package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/david/rfp-desk/internal/models"
)

func sample() []models.OpportunityRecord {
	return []models.OpportunityRecord{
		{ID: "RFP-001", Title: "Cable Supply", Organization: "ABC Corp", Category: "Cables", Status: models.StatusOpen},
		{ID: "RFP-002", Title: "Transformer Overhaul", Organization: "Grid Co", Category: "Electrical", Status: models.StatusSubmitted},
		{ID: "RFP-003", Title: "XLPE cable laying", Organization: "Metro Rail", Category: "Cables", Status: models.StatusClosingSoon},
		{ID: "TND-104", Title: "Substation Works", Organization: "ÉNERGIE Müller", Category: "Electrical", Status: models.StatusOpen},
	}
}

func ids(records []models.OpportunityRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestApply_IdentityLaw(t *testing.T) {
	in := sample()

	got := Apply(in, Criteria{Query: "", Status: All, Category: All})

	assert.Equal(t, in, got)
	assert.Equal(t, in, Apply(in, Criteria{}))
}

func TestApply_Predicates(t *testing.T) {
	tests := []struct {
		name string
		c    Criteria
		want []string
	}{
		{name: "title substring any case", c: Criteria{Query: "CABLE"}, want: []string{"RFP-001", "RFP-003"}},
		{name: "organization", c: Criteria{Query: "grid"}, want: []string{"RFP-002"}},
		{name: "identifier", c: Criteria{Query: "tnd-1"}, want: []string{"TND-104"}},
		{name: "unicode fold", c: Criteria{Query: "énergie müller"}, want: []string{"TND-104"}},
		{name: "status", c: Criteria{Status: "Open", Category: All}, want: []string{"RFP-001", "TND-104"}},
		{name: "category", c: Criteria{Status: All, Category: "Cables"}, want: []string{"RFP-001", "RFP-003"}},
		{name: "conjunctive", c: Criteria{Query: "cable", Status: "Closing Soon", Category: "Cables"}, want: []string{"RFP-003"}},
		{name: "status is exact", c: Criteria{Status: "open"}, want: []string{}},
		{name: "no match", c: Criteria{Query: "zzz"}, want: []string{}},
		{name: "whitespace query", c: Criteria{Query: "  "}, want: []string{"RFP-001", "RFP-002", "RFP-003", "TND-104"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Apply(sample(), tt.c)))
		})
	}
}

func TestApply_SubsetIdempotentAndNonMutating(t *testing.T) {
	in := sample()
	before := sample()
	c := Criteria{Query: "c", Status: All, Category: "Cables"}

	once := Apply(in, c)
	twice := Apply(once, c)

	assert.Equal(t, once, twice)
	assert.Equal(t, before, in)
	for _, r := range once {
		assert.Contains(t, in, r)
	}
}

func TestApply_ResultDoesNotShareBacking(t *testing.T) {
	in := sample()
	got := Apply(in, Criteria{})
	got[0].Title = "changed"

	assert.Equal(t, "Cable Supply", in[0].Title)
}

func TestBuildOptions(t *testing.T) {
	opts := BuildOptions(sample())

	assert.Equal(t, []string{All, "Open", "Submitted", "Closing Soon"}, opts.Statuses)
	assert.Equal(t, []string{All, "Cables", "Electrical"}, opts.Categories)
}

func TestBuildOptions_EmptyCollection(t *testing.T) {
	opts := BuildOptions(nil)

	assert.Equal(t, []string{All}, opts.Statuses)
	assert.Equal(t, []string{All}, opts.Categories)
}
