package filter

import (
	"fmt"
	"regexp"
)

// Pattern is a regular expression matched against the start of a path.
// The expression is compiled on first use and the result, including a
// compile error, is kept for the lifetime of the pattern.
type Pattern struct {
	expression string
	state      *compiled
}

type compiled struct {
	re  *regexp.Regexp
	err error
}

// NewPattern returns an uncompiled pattern for expr.
func NewPattern(expr string) *Pattern {
	return &Pattern{expression: expr}
}

// NewPatterns wraps each expression in a Pattern, preserving order.
func NewPatterns(exprs []string) []*Pattern {
	patterns := make([]*Pattern, 0, len(exprs))
	for _, e := range exprs {
		patterns = append(patterns, NewPattern(e))
	}
	return patterns
}

// Expression returns the raw expression.
func (p *Pattern) Expression() string {
	return p.expression
}

// Compile compiles the expression if it has not been compiled yet.
func (p *Pattern) Compile() error {
	_, err := p.regexp()
	return err
}

// Match reports whether path begins with a match of the expression.
// "test" matches "test.txt" and "test/a.go" but not "a/test.txt".
func (p *Pattern) Match(path string) (bool, error) {
	re, err := p.regexp()
	if err != nil {
		return false, err
	}
	return re.MatchString(path), nil
}

func (p *Pattern) regexp() (*regexp.Regexp, error) {
	if p.state == nil {
		re, err := regexp.Compile(`^(?:` + p.expression + `)`)
		if err != nil {
			err = fmt.Errorf("%w %q: %v", ErrInvalidPattern, p.expression, err)
		}
		p.state = &compiled{re: re, err: err}
	}
	return p.state.re, p.state.err
}

// matchAny reports whether path matches at least one of patterns.
func matchAny(patterns []*Pattern, path string) (bool, error) {
	for _, p := range patterns {
		ok, err := p.Match(path)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
