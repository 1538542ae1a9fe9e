package server

// Messages exchanged by the compiler service. They travel as JSON through
// jsonCodec, so they are plain structs rather than generated types.

// Diagnostic describes one problem found in a source text.
type Diagnostic struct {
	Severity string `json:"severity"`
	Line     int    `json:"line,omitempty"` // 1-based; 0 when unknown
	Kind     string `json:"kind,omitempty"` // compile error kind, empty for runtime errors
	Message  string `json:"message"`
}

// CompileRequest asks for source to be compiled.
type CompileRequest struct {
	Source string `json:"source"`
}

// CompileResponse carries the compiled program, both as a listing and in
// its binary wire encoding.
type CompileResponse struct {
	Success     bool         `json:"success"`
	Disassembly string       `json:"disassembly,omitempty"`
	Program     []byte       `json:"program,omitempty"`
	Cached      bool         `json:"cached,omitempty"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// CheckRequest asks for source to be checked without producing a program.
type CheckRequest struct {
	Source string `json:"source"`
}

// CheckResponse reports whether the source compiles.
type CheckResponse struct {
	Valid       bool         `json:"valid"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// RunRequest asks for source to be compiled and executed. MaxSteps can
// only lower the server's own limit.
type RunRequest struct {
	Source   string `json:"source"`
	MaxSteps int    `json:"maxSteps,omitempty"`
}

// RunResponse carries the program result and everything it logged.
type RunResponse struct {
	Success     bool         `json:"success"`
	Result      string       `json:"result,omitempty"`
	Output      string       `json:"output,omitempty"`
	Steps       int          `json:"steps"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}
