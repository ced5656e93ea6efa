package harness

// ShotResult is the outcome of one shot.
type ShotResult struct {
	Name        string `json:"name"`
	Detectors   []int  `json:"detectors"`
	Defects     []int  `json:"defects"`
	Heralds     []int  `json:"heralds"`
	Observables []int  `json:"observables"`

	// Failure is the solver failure reason when the shot could not be
	// decoded under the raise policy.
	Failure string `json:"failure,omitempty"`

	// Record is the stored failure id.
	Record string `json:"record,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expectation and assertion held.
	Pass bool `json:"pass"`

	Kind           string `json:"kind"`
	Fingerprint    string `json:"fingerprint"`
	NumDetectors   int    `json:"num_detectors"`
	NumObservables int    `json:"num_observables"`
	NumEdges       int    `json:"num_edges"`
	NumHeralds     int    `json:"num_heralds"`

	Shots []ShotResult `json:"shots"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Shots:  []ShotResult{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
