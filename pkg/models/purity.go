package models

// PurityLevel classifies how a function's effects are scoped.
type PurityLevel string

const (
	// PurityPure means no observable effects and no local mutation.
	PurityPure PurityLevel = "pure"
	// PurityLocallyImpure means the function mutates its own locals
	// but has no effects a caller can observe.
	PurityLocallyImpure PurityLevel = "locally_impure"
	// PurityImpure means the function performs impure calls or mutates
	// captured state.
	PurityImpure PurityLevel = "impure"
)

// FunctionPurity is the purity verdict for a single function.
type FunctionPurity struct {
	Name    string      `json:"name"`
	File    string      `json:"file"`
	Line    uint32      `json:"line"`
	Level   PurityLevel `json:"level"`
	Reasons []string    `json:"reasons,omitempty"`
}

// PurityAnalysis is the full purity classification result.
type PurityAnalysis struct {
	Functions []FunctionPurity `json:"functions"`
	Summary   PuritySummary    `json:"summary"`
}

// PuritySummary provides aggregate statistics.
type PuritySummary struct {
	Pure               int `json:"pure"`
	LocallyImpure      int `json:"locally_impure"`
	Impure             int `json:"impure"`
	TotalFunctions     int `json:"total_functions"`
	TotalFilesAnalyzed int `json:"total_files_analyzed"`
}

// Add updates the summary with a function verdict.
func (s *PuritySummary) Add(f FunctionPurity) {
	s.TotalFunctions++
	switch f.Level {
	case PurityPure:
		s.Pure++
	case PurityLocallyImpure:
		s.LocallyImpure++
	case PurityImpure:
		s.Impure++
	}
}
