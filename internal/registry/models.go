package registry

// Unknown replaces identifiers or eligibility text the registry left out.
const Unknown = "Unknown"

// Response models for GET /api/v2/studies. Only the fields we surface are decoded.
type StudiesResponse struct {
	Studies       []Study `json:"studies"`
	NextPageToken string  `json:"nextPageToken,omitempty"`
}

type Study struct {
	ProtocolSection *ProtocolSection `json:"protocolSection,omitempty"`
}

type ProtocolSection struct {
	IdentificationModule *IdentificationModule `json:"identificationModule,omitempty"`
	EligibilityModule    *EligibilityModule    `json:"eligibilityModule,omitempty"`
}

type IdentificationModule struct {
	NCTID *string `json:"nctId,omitempty"`
}

type EligibilityModule struct {
	EligibilityCriteria *string `json:"eligibilityCriteria,omitempty"`
}

// NCTID returns the registry identifier or Unknown.
func (s Study) NCTID() string {
	if s.ProtocolSection == nil || s.ProtocolSection.IdentificationModule == nil ||
		s.ProtocolSection.IdentificationModule.NCTID == nil {
		return Unknown
	}
	return *s.ProtocolSection.IdentificationModule.NCTID
}

// EligibilityCriteria returns the free-text criteria or Unknown.
func (s Study) EligibilityCriteria() string {
	if s.ProtocolSection == nil || s.ProtocolSection.EligibilityModule == nil ||
		s.ProtocolSection.EligibilityModule.EligibilityCriteria == nil {
		return Unknown
	}
	return *s.ProtocolSection.EligibilityModule.EligibilityCriteria
}

// SearchResult holds index-aligned eligibility texts and NCT ids.
type SearchResult struct {
	EligibilityCriteria []string `json:"eligibility_criteria"`
	NCTIDs              []string `json:"nct_ids"`
}

func NewSearchResult() SearchResult {
	return SearchResult{
		EligibilityCriteria: make([]string, 0),
		NCTIDs:              make([]string, 0),
	}
}

func (r SearchResult) Len() int {
	return len(r.NCTIDs)
}

// Pair is the wire shape handed back to the agent: [eligibility_texts, nct_ids].
func (r SearchResult) Pair() [2][]string {
	criteria, ids := r.EligibilityCriteria, r.NCTIDs
	if criteria == nil {
		criteria = []string{}
	}
	if ids == nil {
		ids = []string{}
	}
	return [2][]string{criteria, ids}
}

func (r *SearchResult) add(s Study) {
	r.NCTIDs = append(r.NCTIDs, s.NCTID())
	r.EligibilityCriteria = append(r.EligibilityCriteria, s.EligibilityCriteria())
}
