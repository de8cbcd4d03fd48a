package prereq

// CheckMany evaluates many requirements against one character. Every
// entry is evaluated independently: an error on one (a nil tree, a
// provider failure mid-walk) lands in the returned error map under its
// key and the remaining entries still run. Keys mirror the input; a
// key appears in exactly one of the two maps. The error map is nil
// when everything evaluated cleanly.
func (e *Engine) CheckMany(reqs map[string]Requirement, facts FactProvider) (map[string]*CheckResult, map[string]error) {
	results := make(map[string]*CheckResult, len(reqs))
	var errs map[string]error

	for key, r := range reqs {
		res, err := e.Check(r, facts)
		if err != nil {
			if errs == nil {
				errs = make(map[string]error)
			}
			errs[key] = err
			continue
		}
		results[key] = res
	}

	return results, errs
}

// CheckAcross evaluates one requirement against many characters. Both
// returned slices are index-aligned with the input: position i holds
// either a result or an error, never both. Entries are independent;
// one provider failing does not stop the rest.
func (e *Engine) CheckAcross(r Requirement, providers []FactProvider) ([]*CheckResult, []error) {
	results := make([]*CheckResult, len(providers))
	errs := make([]error, len(providers))

	for i, facts := range providers {
		results[i], errs[i] = e.Check(r, facts)
	}

	return results, errs
}
