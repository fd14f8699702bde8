package server

// Service messages. They travel as CBOR over both Connect and gRPC, so the
// field keys are fixed by the cbor tags.

// EvaluateRequest asks the service to compile and run Source.
type EvaluateRequest struct {
	Source string `cbor:"source" json:"source"`
	Trace  bool   `cbor:"trace,omitempty" json:"trace,omitempty"`
}

// EvaluateResponse reports one run. Output holds everything printed, even
// when the run failed part way.
type EvaluateResponse struct {
	RunID        string `cbor:"run_id" json:"run_id"`
	Success      bool   `cbor:"success" json:"success"`
	Output       string `cbor:"output" json:"output"`
	ErrorKind    string `cbor:"error_kind,omitempty" json:"error_kind,omitempty"`
	ErrorMessage string `cbor:"error_message,omitempty" json:"error_message,omitempty"`
	Steps        uint64 `cbor:"steps" json:"steps"`
	Cached       bool   `cbor:"cached,omitempty" json:"cached,omitempty"`
}

// CheckSyntaxRequest asks for front-end diagnostics without running.
type CheckSyntaxRequest struct {
	Source string `cbor:"source" json:"source"`
}

// Diagnostic is one front-end error.
type Diagnostic struct {
	Kind    string `cbor:"kind" json:"kind"`
	Message string `cbor:"message" json:"message"`
}

// CheckSyntaxResponse lists diagnostics and the variables declared before
// the first error.
type CheckSyntaxResponse struct {
	Valid        bool         `cbor:"valid" json:"valid"`
	Diagnostics  []Diagnostic `cbor:"diagnostics,omitempty" json:"diagnostics,omitempty"`
	Variables    []string     `cbor:"variables,omitempty" json:"variables,omitempty"`
	Instructions int          `cbor:"instructions" json:"instructions"`
}

// DisassembleRequest asks for the listing of Source. Name labels the
// listing header.
type DisassembleRequest struct {
	Source string `cbor:"source" json:"source"`
	Name   string `cbor:"name,omitempty" json:"name,omitempty"`
}

// DisassembleResponse carries the listing.
type DisassembleResponse struct {
	Listing      string `cbor:"listing" json:"listing"`
	Instructions int    `cbor:"instructions" json:"instructions"`
}
