package filter

// Result is the outcome of evaluating one filter against a file list.
type Result struct {
	Name        string `json:"name"`
	Key         string `json:"-"`
	Matched     bool   `json:"matched"`
	Fingerprint string `json:"fingerprint,omitempty"`
}

// Evaluator runs every filter of a set against the same file list.
type Evaluator struct {
	Set *Set
	// Fingerprinter is used when Fingerprints is true.
	Fingerprinter Fingerprinter
	// Fingerprints enables fingerprint computation alongside the match decision.
	Fingerprints bool
}

// Evaluate returns one result per filter, in declaration order. Evaluation
// stops at the first error.
func (e *Evaluator) Evaluate(files []string) ([]Result, error) {
	results := make([]Result, 0, len(e.Set.Filters))

	for _, f := range e.Set.Filters {
		matched, err := f.Matches(files)
		if err != nil {
			return nil, err
		}

		r := Result{Name: f.Name, Key: f.Key(), Matched: matched}
		if e.Fingerprints {
			r.Fingerprint, err = e.Fingerprinter.Fingerprint(f, files)
			if err != nil {
				return nil, err
			}
		}
		results = append(results, r)
	}

	return results, nil
}
