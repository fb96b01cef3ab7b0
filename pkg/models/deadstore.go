package models

// DeadStore represents a definition whose value is never read.
type DeadStore struct {
	Variable string `json:"variable"`
	Function string `json:"function"`
	File     string `json:"file"`
	Line     uint32 `json:"line"`
	Kind     string `json:"kind"` // declaration, assignment, call-result, parameter
}

// DeadStoreAnalysis is the full dead store detection result.
type DeadStoreAnalysis struct {
	Stores  []DeadStore      `json:"dead_stores"`
	Summary DeadStoreSummary `json:"summary"`
}

// DeadStoreSummary provides aggregate statistics.
type DeadStoreSummary struct {
	TotalDeadStores    int            `json:"total_dead_stores"`
	TotalFunctions     int            `json:"total_functions"`
	TotalFilesAnalyzed int            `json:"total_files_analyzed"`
	ByFile             map[string]int `json:"by_file"`
}

// NewDeadStoreSummary creates an initialized summary.
func NewDeadStoreSummary() DeadStoreSummary {
	return DeadStoreSummary{ByFile: make(map[string]int)}
}

// Add updates the summary with a dead store.
func (s *DeadStoreSummary) Add(d DeadStore) {
	s.TotalDeadStores++
	s.ByFile[d.File]++
}
