package models

// CFGFunction summarizes the control flow graph of one function.
type CFGFunction struct {
	Name        string `json:"name"`
	File        string `json:"file"`
	Line        uint32 `json:"line"`
	Blocks      int    `json:"blocks"`
	Edges       int    `json:"edges"`
	Variables   int    `json:"variables"`
	Definitions int    `json:"definitions"`
	Captures    int    `json:"captures"`
}

// CFGAnalysis is the full graph summary result.
type CFGAnalysis struct {
	Functions []CFGFunction `json:"functions"`
	Summary   CFGSummary    `json:"summary"`
}

// CFGSummary provides aggregate statistics.
type CFGSummary struct {
	TotalFunctions     int `json:"total_functions"`
	TotalBlocks        int `json:"total_blocks"`
	TotalEdges         int `json:"total_edges"`
	TotalFilesAnalyzed int `json:"total_files_analyzed"`
}

// Add updates the summary with a function graph.
func (s *CFGSummary) Add(f CFGFunction) {
	s.TotalFunctions++
	s.TotalBlocks += f.Blocks
	s.TotalEdges += f.Edges
}
