// Package filter decides whether a set of changed paths is relevant to a
// named filter and fingerprints the files a filter covers.
package filter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"
)

// SkipRule suppresses an otherwise positive match when every considered
// file matches at least one of its patterns.
type SkipRule struct {
	AllFilesMatchAny []*Pattern
}

// NewSkipRule returns a skip rule for the given expressions.
func NewSkipRule(exprs []string) SkipRule {
	return SkipRule{AllFilesMatchAny: NewPatterns(exprs)}
}

// OptionalSkipRule is either a SkipRule or nothing.
type OptionalSkipRule struct {
	rule  SkipRule
	valid bool
}

// NoSkip is the absent skip rule.
var NoSkip = OptionalSkipRule{}

// SkipIf wraps a present skip rule.
func SkipIf(rule SkipRule) OptionalSkipRule {
	return OptionalSkipRule{rule: rule, valid: true}
}

// Get returns the rule and whether it is present.
func (o OptionalSkipRule) Get() (SkipRule, bool) {
	return o.rule, o.valid
}

// Filter is a named set of include patterns with an optional skip rule.
type Filter struct {
	Name  string
	Files []*Pattern
	Skip  OptionalSkipRule

	nameRegex *regexp.Regexp
	nameErr   error
}

// New creates a filter from raw include expressions.
func New(name string, files []string, skip OptionalSkipRule) *Filter {
	return &Filter{
		Name:  name,
		Files: NewPatterns(files),
		Skip:  skip,
	}
}

// Key returns the case-normalized name. Names are unique by Key within a set.
// Example: "backend-api" -> "BACKEND-API".
func (f *Filter) Key() string {
	return strings.ToUpper(f.Name)
}

// MatchesFile reports whether any include pattern matches file.
func (f *Filter) MatchesFile(file string) (bool, error) {
	p, err := f.MatchingPattern(file)
	return p != nil, err
}

// MatchingPattern returns the first include pattern, in declaration order,
// that matches file. It returns nil when none match.
func (f *Filter) MatchingPattern(file string) (*Pattern, error) {
	for _, p := range f.Files {
		ok, err := p.Match(file)
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", f.Name, err)
		}
		if ok {
			return p, nil
		}
	}
	return nil, nil
}

// Matches reports whether files is relevant to the filter: at least one
// file matches an include pattern, and the skip rule (if any) does not
// cover every file.
func (f *Filter) Matches(files []string) (bool, error) {
	matched := false
	rule, skipActive := f.Skip.Get()

	for _, file := range files {
		if !matched {
			ok, err := f.MatchesFile(file)
			if err != nil {
				return false, err
			}
			if ok {
				log.Debug("filter matched", "filter", f.Name, "file", file)
				matched = true
			}
		}

		if skipActive {
			ok, err := matchAny(rule.AllFilesMatchAny, file)
			if err != nil {
				return false, fmt.Errorf("filter %s skip-if: %w", f.Name, err)
			}
			if !ok {
				log.Debug("skip-if disqualified", "filter", f.Name, "file", file)
				skipActive = false
			}
		}

		// Skip evaluation needs every file while it is still active.
		if matched && !skipActive {
			break
		}
	}

	log.Debug("filter evaluated", "filter", f.Name, "matched", matched, "skip", skipActive)
	return matched && !skipActive, nil
}

// MatchesName reports whether the filter name, read as an unanchored
// regular expression, matches a job name.
func (f *Filter) MatchesName(job string) (bool, error) {
	if f.nameRegex == nil && f.nameErr == nil {
		f.nameRegex, f.nameErr = regexp.Compile(f.Name)
		if f.nameErr != nil {
			f.nameErr = fmt.Errorf("%w %q: %v", ErrInvalidPattern, f.Name, f.nameErr)
		}
	}
	if f.nameErr != nil {
		return false, f.nameErr
	}
	return f.nameRegex.MatchString(job), nil
}

// Compile compiles every include and skip pattern.
func (f *Filter) Compile() error {
	for _, p := range f.Files {
		if err := p.Compile(); err != nil {
			return fmt.Errorf("filter %s: %w", f.Name, err)
		}
	}
	if rule, ok := f.Skip.Get(); ok {
		for _, p := range rule.AllFilesMatchAny {
			if err := p.Compile(); err != nil {
				return fmt.Errorf("filter %s skip-if: %w", f.Name, err)
			}
		}
	}
	return nil
}
