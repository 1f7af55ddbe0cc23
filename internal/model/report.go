package model

// Outcome names the arrestor that settled a probe.
type Outcome string

const (
	OutcomeOK         Outcome = "ok"
	OutcomeExpected   Outcome = "expected"
	OutcomeValidation Outcome = "validation"
	OutcomeUpstream   Outcome = "upstream"
	OutcomeHTTP       Outcome = "http"
	OutcomeFailed     Outcome = "failed"
)

// Report holds the result of probing one URL.
type Report struct {
	URL       string              `json:"url"`
	RequestID string              `json:"request_id"`
	Outcome   Outcome             `json:"outcome"`
	Status    int                 `json:"status,omitempty"`
	Message   string              `json:"message,omitempty"`
	Fields    map[string][]string `json:"fields,omitempty"`
	Error     string              `json:"error,omitempty"`
}

// Unexpected reports whether the probe ended in a failure that was not
// listed as expected.
func (r Report) Unexpected() bool {
	return r.Outcome != OutcomeOK && r.Outcome != OutcomeExpected
}

// Summary counts reports by outcome.
type Summary struct {
	Total      int             `json:"total"`
	Unexpected int             `json:"unexpected"`
	ByOutcome  map[Outcome]int `json:"by_outcome"`
}

// Summarize builds a Summary for reports.
func Summarize(reports []Report) Summary {
	s := Summary{Total: len(reports), ByOutcome: make(map[Outcome]int)}
	for _, r := range reports {
		s.ByOutcome[r.Outcome]++
		if r.Unexpected() {
			s.Unexpected++
		}
	}
	return s
}

// ProbeResult is the JSON document written by the CLI and the HTTP endpoint.
type ProbeResult struct {
	Reports []Report `json:"reports"`
	Summary Summary  `json:"summary"`
}

// ErrorResponse is the JSON shape returned on failure.
type ErrorResponse struct {
	Error      string `json:"error"`
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
}
