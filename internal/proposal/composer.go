// Package proposal assembles the technical and commercial proposal text for
// an opportunity from its top-ranked matched product.
package proposal

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/david/rfp-desk/internal/apperr"
	"github.com/david/rfp-desk/internal/models"
)

const (
	Title = "TECHNICAL & COMMERCIAL PROPOSAL"
	rule  = "============================================================"
)

var ErrNoMatchedProducts = errors.New("no matched products")

// SectionHeadings lists the fixed section headings in emission order. The
// signature block has no heading of its own and is keyed by its sign-off.
var SectionHeadings = []string{
	"RFP Reference Details",
	"Match Summary",
	"Technical Offer",
	"Commercial Offer",
	"Why Our Product Fits the Requirement",
	"Delivery and Terms",
	"Compliance Statement",
	"Best Regards",
}

type Config struct {
	CurrencyPrefix string `yaml:"currency_prefix"`
	CompanyName    string `yaml:"company_name"`
	CompanyEmail   string `yaml:"company_email"`
	ValidityDays   int    `yaml:"validity_days"`
}

func DefaultConfig() Config {
	return Config{
		CurrencyPrefix: "₹",
		CompanyName:    "Acme Cables Pvt. Ltd.",
		CompanyEmail:   "proposals@acmecables.example",
		ValidityDays:   90,
	}
}

type Section struct {
	Heading string
	Lines   []string
}

type Composer struct {
	cfg Config
	now func() time.Time
}

func NewComposer(cfg Config, now func() time.Time) *Composer {
	if now == nil {
		now = time.Now
	}
	return &Composer{cfg: cfg, now: now}
}

// Compose builds a draft from rfp and the first entry of ranked. Rank order
// is trusted as supplied.
func (c *Composer) Compose(rfp models.OpportunityRecord, ranked []models.MatchedProduct) (models.ProposalDocument, error) {
	if strings.TrimSpace(rfp.ID) == "" {
		return models.ProposalDocument{}, apperr.Validation("compose", "opportunity has no identifier")
	}
	if len(ranked) == 0 {
		return models.ProposalDocument{}, &apperr.Error{
			Kind:    apperr.KindValidation,
			Op:      "compose",
			Message: fmt.Sprintf("cannot compose proposal for %s", rfp.ID),
			Err:     ErrNoMatchedProducts,
		}
	}
	top := ranked[0]

	return models.ProposalDocument{
		ID:           uuid.New(),
		RFPID:        rfp.ID,
		RFPTitle:     rfp.Title,
		Organization: rfp.Organization,
		SKU:          top.SKU,
		Body:         Render(c.Sections(rfp, top)),
		GeneratedAt:  c.now().UTC(),
	}, nil
}

// Sections fills the template. Every section is always present; missing
// values render as Placeholder.
func (c *Composer) Sections(rfp models.OpportunityRecord, p models.MatchedProduct) []Section {
	cur := c.cfg.CurrencyPrefix
	standard := orPlaceholder(string(p.Standard))

	total := Placeholder
	if sum, ok := TotalBasePrice(p); ok {
		total = FormatMoney(cur, sum)
	}

	validity := Placeholder
	if c.cfg.ValidityDays > 0 {
		validity = fmt.Sprintf("%d days from date of issue", c.cfg.ValidityDays)
	}

	return []Section{
		{Heading: "RFP Reference Details", Lines: []string{
			"RFP ID: " + orPlaceholder(rfp.ID),
			"Title: " + orPlaceholder(rfp.Title),
			"Issuing Authority: " + orPlaceholder(rfp.Organization),
			"Department: " + orPlaceholder(rfp.Department),
			"Deadline: " + orPlaceholder(rfp.Deadline),
		}},
		{Heading: "Match Summary", Lines: []string{
			"Match Confidence: " + FormatScore(p.Match),
			"Recommended SKU: " + orPlaceholder(p.SKU),
			"Matched Product: " + orPlaceholder(p.ProductName),
			"Category: " + orPlaceholder(p.Category),
		}},
		{Heading: "Technical Offer", Lines: []string{
			"Product Specifications:",
			"- Conductor Material: " + orPlaceholder(string(p.ConductorMaterial)),
			"- Conductor Size: " + withUnit(p.ConductorSizeSqmm, "sqmm"),
			"- Voltage Rating: " + withUnit(p.VoltageRatingKV, "kV"),
			"- Compliance Standard: " + standard,
		}},
		{Heading: "Commercial Offer", Lines: []string{
			"Unit Price: " + formatAmount(cur, p.UnitPrice),
			"Testing Charges: " + formatAmount(cur, p.TestPrice),
			"Total Base Price: " + total,
			"",
			"(Final pricing will depend on the quantity specified in the BOQ.)",
		}},
		{Heading: "Why Our Product Fits the Requirement", Lines: []string{
			"- Fully compliant with " + standard + " standards",
			"- High-quality " + orPlaceholder(string(p.ConductorMaterial)) + " conductor material",
			"- Low resistance and durable insulation design",
			"- Manufactured in certified facilities with strong QA processes",
			"- Competitive pricing with complete transparency",
			"- Extensive testing procedures included",
			"- Reliable support and warranty coverage",
		}},
		{Heading: "Delivery and Terms", Lines: []string{
			"Expected Delivery: As per project schedule",
			"Warranty: Standard OEM warranty applies",
			"Payment Terms: To be mutually agreed",
			"Proposal Validity: " + validity,
		}},
		{Heading: "Compliance Statement", Lines: []string{
			"We confirm that the proposed product meets all requirements specified in the RFP, including:",
			"• Conductor and insulation specifications",
			"• Voltage and resistance parameters",
			"• Type and routine testing obligations",
			"• Conformance with " + standard + " standards",
			"",
			"Thank you for considering our proposal. We look forward to supporting your project with high-quality products and reliable service.",
		}},
		{Heading: "Best Regards", Lines: []string{
			orPlaceholder(c.cfg.CompanyName),
			orPlaceholder(c.cfg.CompanyEmail),
		}},
	}
}

// Render lays sections out under the title banner.
func Render(sections []Section) string {
	var b strings.Builder
	b.WriteString(Title)
	b.WriteString("\n")
	b.WriteString(rule)
	for _, s := range sections {
		b.WriteString("\n\n")
		b.WriteString(s.Heading)
		for _, line := range s.Lines {
			b.WriteString("\n")
			b.WriteString(line)
		}
	}
	b.WriteString("\n")
	b.WriteString(rule)
	return b.String()
}
