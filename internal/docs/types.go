package docs

// Overview is the short project background shown with the dashboard.
type Overview struct {
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	Context     string   `json:"context" yaml:"context"`
	Value       []string `json:"value" yaml:"value"`
	KeyEntities []string `json:"key_entities" yaml:"key_entities"`
}

type Entity struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// Documentation is the long-form dataset report.
type Documentation struct {
	Title                string   `json:"title" yaml:"title"`
	ExecutiveSummary     string   `json:"executive_summary" yaml:"executive_summary"`
	ArchitectureOverview string   `json:"architecture_overview" yaml:"architecture_overview"`
	KeyEntities          []Entity `json:"key_entities" yaml:"key_entities"`
	BusinessUtility      []string `json:"business_utility" yaml:"business_utility"`
	DataQualityNarrative string   `json:"data_quality_narrative" yaml:"data_quality_narrative"`
}

// TableSummary is a plain-language description of one table and its risks.
type TableSummary struct {
	Table   string   `json:"table" yaml:"table"`
	Summary string   `json:"summary" yaml:"summary"`
	Risks   []string `json:"risks" yaml:"risks"`
}

// ChatContext is what the assistant may cite when answering.
type ChatContext struct {
	Overview    *Overview          `json:"overview,omitempty"`
	Schemas     any                `json:"schema"`
	TrustScores map[string]float64 `json:"trust_scores"`
}
