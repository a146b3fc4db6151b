package backendtest

// SampleFixture is a small seeded data set covering the three feed shapes,
// one prior submission and ranked products for two opportunities.
func SampleFixture() Fixture {
	return Fixture{
		Feeds: map[string][]Row{
			"/scrape": {
				{
					"rfp_id":           "RFP-001",
					"title":            "Cable Supply",
					"organization":     "ABC Corp",
					"department":       nil,
					"category":         "Cables",
					"issue_date":       "2024-11-01",
					"deadline":         "2024-12-15",
					"status":           "Open",
					"description":      "<p>Supply of <b>XLPE</b> power cables &amp; accessories</p>",
					"submission_email": "tenders@abccorp.example",
				},
				{
					"rfp_id":       "RFP-002",
					"title":        "Substation Wiring",
					"organization": "Grid Utilities",
					"department":   "Transmission",
					"category":     "Wiring",
					"deadline":     "2024-12-20",
					"status":       "Open",
				},
				{
					"rfp_id": "RFP-003",
					"title":  "Street Lighting Retrofit",
					"status": "posted",
				},
				{
					"title":  "Untracked listing without identifier",
					"status": "Open",
				},
			},
			"/new-incoming": {
				{
					"rfp_id":        "RFP-004",
					"title":         "Control Cable Framework",
					"organization":  "Metro Rail Corp",
					"category":      "Cables",
					"deadline":      "15-03-2026",
					"match_percent": 91.25,
					"priority":      "high",
				},
				{
					"rfp_id":        "RFP-005",
					"title":         "Armoured Cable Annual Contract",
					"organization":  "Port Authority",
					"category":      "Cables",
					"deadline":      "2026-02-15",
					"match_percent": "78.4",
					"priority":      "Medium",
				},
			},
			"/dashboard-rfps": {
				{
					"rfp_id":   "RFP-001",
					"title":    "Cable Supply",
					"client":   "ABC Corp",
					"category": "Cables",
					"deadline": "2024-12-15",
					"status":   "Open",
					"match":    94,
				},
				{
					"rfp_id":   "RFP-006",
					"title":    "Solar Plant DC Cabling",
					"client":   "Sunrise Energy",
					"category": "Cables",
					"deadline": "2026-06-30",
					"status":   "In Progress",
					"match":    88,
				},
				{
					"rfp_id":   "RFP-007",
					"title":    "Busbar Trunking",
					"client":   "City Hospital",
					"category": "Electrical",
					"deadline": "2025-01-10",
					"status":   "Won",
					"match":    "72",
				},
			},
		},
		Submitted: []Row{
			{
				"rfp_id":        "RFP-002",
				"title":         "Substation Wiring",
				"client":        "Grid Utilities",
				"deadline":      "2024-12-20",
				"match_percent": 86.5,
				"status":        "Submitted",
				"submitted_at":  "2024-12-01T10:30:00Z",
				"to_email":      "bids@gridutilities.example",
			},
		},
		Matches: map[string]Match{
			"RFP-001": {
				RFP: Row{
					"rfp_id":           "RFP-001",
					"title":            "Cable Supply",
					"organization":     "ABC Corp",
					"department":       nil,
					"deadline":         "2024-12-15",
					"submission_email": "tenders@abccorp.example",
				},
				Products: []Row{
					{
						"sku":                 "SKU-7",
						"product_name":        "XLPE Insulated Power Cable",
						"category":            "Power Cables",
						"conductor_material":  "Copper",
						"conductor_size_sqmm": 95,
						"voltage_rating":      "1.1",
						"standard_iec":        "IEC 60502-1",
						"unit_price":          1000,
						"test_price":          50,
						"match_percent":       94.2,
						"priority":            "High",
					},
					{
						"sku":                 "SKU-3",
						"product_name":        "PVC Control Cable",
						"category":            "Control Cables",
						"conductor_material":  "Copper",
						"conductor_size_sqmm": "2.5",
						"voltage_rating":      1.1,
						"standard_iec":        "IEC 60227",
						"unit_price":          "420.00",
						"test_price":          35,
						"match_percent":       81.7,
						"priority":            "Medium",
					},
				},
			},
			"RFP-004": {
				RFP: Row{
					"rfp_id":       "RFP-004",
					"title":        "Control Cable Framework",
					"organization": "Metro Rail Corp",
					"department":   "Signalling",
					"deadline":     "15-03-2026",
				},
				Products: []Row{
					{
						"sku":                 "SKU-3",
						"product_name":        "PVC Control Cable",
						"category":            "Control Cables",
						"conductor_material":  "Copper",
						"conductor_size_sqmm": "2.5",
						"voltage_rating":      "1.1",
						"standard_iec":        "IEC 60227",
						"unit_price":          1200.5,
						"test_price":          75.25,
						"match_percent":       91.25,
						"priority":            "High",
					},
				},
			},
			"RFP-005": {
				RFP:      Row{"rfp_id": "RFP-005", "title": "Armoured Cable Annual Contract", "organization": "Port Authority"},
				Products: []Row{},
			},
		},
	}
}
