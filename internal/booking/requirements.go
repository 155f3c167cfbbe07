package booking

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// RequirementType classifies what kind of answer a requirement expects.
type RequirementType string

const (
	ReqText        RequirementType = "text"
	ReqInteger     RequirementType = "integer"
	ReqNumber      RequirementType = "number"
	ReqTemperature RequirementType = "temperature"
	ReqSpinSpeed   RequirementType = "spin_speed"
)

// ParseRequirementType returns the RequirementType named by s.
func ParseRequirementType(s string) (RequirementType, error) {
	switch RequirementType(s) {
	case ReqText, ReqInteger, ReqNumber, ReqTemperature, ReqSpinSpeed:
		return RequirementType(s), nil
	}
	return "", fmt.Errorf("unknown requirement type %q", s)
}

// Unit returns the unit string attached to stored values of this type, or
// "" for unitless types.
func (t RequirementType) Unit() string {
	switch t {
	case ReqTemperature:
		return "celsius"
	case ReqSpinSpeed:
		return "rpm"
	}
	return ""
}

// Numeric reports whether answers of this type are numbers.
func (t RequirementType) Numeric() bool {
	return t != ReqText && t != ""
}

// Requirement is a single piece of information the user must supply when
// confirming a booking, e.g. the centrifuge spin speed.
type Requirement struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Type          RequirementType `json:"type"`
	AllowedValues string          `json:"allowed_values,omitempty"`
	Help          string          `json:"help,omitempty"`
}

// RequirementSet is everything a piece of equipment demands at confirm
// time.
type RequirementSet struct {
	Intro              string        `json:"intro,omitempty"`
	NeedsAuthorization bool          `json:"needs_authorization"`
	Requirements       []Requirement `json:"requirements,omitempty"`
}

// RequirementValue is a validated, unit-qualified answer stored on the
// reservation.
type RequirementValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Process validates the user's answers against every requirement in the
// set and returns the values to store. All failures are collected and
// reported together as a RequirementValidationError so the user can fix
// the whole form in one pass.
func (s *RequirementSet) Process(answers map[string]string) ([]RequirementValue, error) {
	if s == nil || len(s.Requirements) == 0 {
		return nil, nil
	}

	values := make([]RequirementValue, 0, len(s.Requirements))
	var problems []string

	for _, req := range s.Requirements {
		raw := strings.TrimSpace(answers[req.Key()])
		if raw == "" {
			problems = append(problems, fmt.Sprintf("you must supply a value for %q", req.Name))
			continue
		}

		value, err := req.ProcessAnswer(raw)
		if err != nil {
			problems = append(problems, err.Error())
			continue
		}

		values = append(values, RequirementValue{Name: req.Name, Value: value})
	}

	if len(problems) > 0 {
		return nil, &RequirementValidationError{Problems: problems}
	}

	return values, nil
}

// Key returns the identifier under which the answer for this requirement
// is expected, falling back to the slug of the name.
func (r *Requirement) Key() string {
	if r.ID != "" {
		return r.ID
	}
	return NameToID(r.Name)
}

// ProcessAnswer validates a single answer and returns it in canonical
// form, with the type's unit appended when the user left it off.
func (r *Requirement) ProcessAnswer(raw string) (string, error) {
	if err := r.validate(raw); err != nil {
		return "", err
	}

	if unit := r.Type.Unit(); unit != "" && !strings.Contains(raw, unit) {
		return fmt.Sprintf("%s %s", raw, unit), nil
	}
	return raw, nil
}

func (r *Requirement) validate(raw string) error {
	if !r.Type.Numeric() {
		return nil
	}

	numeric := raw
	if unit := r.Type.Unit(); unit != "" {
		numeric = strings.TrimSpace(strings.ReplaceAll(numeric, unit, ""))
	}

	value, err := strconv.ParseFloat(numeric, 64)
	if err != nil {
		return fmt.Errorf("the value %q supplied for %q is not a number", raw, r.Name)
	}

	if r.Type == ReqInteger && value != float64(int64(value)) {
		return fmt.Errorf("the value %q supplied for %q is not a whole number", raw, r.Name)
	}

	av, err := ParseAllowedValues(r.AllowedValues)
	if err != nil {
		return fmt.Errorf("requirement %q has an invalid allowed-value range: %w", r.Name, err)
	}
	if !av.Contains(value) {
		return fmt.Errorf("the value %q supplied for %q does not fit into the valid range of values [ %s ]",
			raw, r.Name, av)
	}

	return nil
}

// AllowedValues is the parsed form of a requirement's allowed-value
// specification: a comma-separated mix of single numbers, "a-b" ranges
// and "x+" unbounded ranges, or "all" to accept anything.
type AllowedValues struct {
	terms []valueTerm
}

type valueTerm struct {
	lo, hi    float64
	unbounded bool // value >= lo, hi ignored
	exact     bool // value == lo
}

var (
	rangeTermRe     = regexp.MustCompile(`^(-?\d+\.?\d*)-(-?\d+\.?\d*)$`)
	unboundedTermRe = regexp.MustCompile(`^(-?\d+\.?\d*)\+$`)
	numberTermRe    = regexp.MustCompile(`^-?\d+\.?\d*$`)
)

// ParseAllowedValues parses spec into an AllowedValues matcher. An empty
// spec or "all" accepts every value.
func ParseAllowedValues(spec string) (*AllowedValues, error) {
	spec = strings.ToLower(strings.TrimSpace(spec))
	if spec == "" || spec == "all" {
		return &AllowedValues{}, nil
	}

	av := &AllowedValues{}

	for _, part := range strings.Split(spec, ",") {
		part = strings.ReplaceAll(part, " ", "")
		if part == "" {
			continue
		}

		if m := rangeTermRe.FindStringSubmatch(part); m != nil {
			lo, _ := strconv.ParseFloat(m[1], 64)
			hi, _ := strconv.ParseFloat(m[2], 64)
			if lo > hi {
				lo, hi = hi, lo
			}
			av.terms = append(av.terms, valueTerm{lo: lo, hi: hi, exact: lo == hi})
			continue
		}

		if m := unboundedTermRe.FindStringSubmatch(part); m != nil {
			lo, _ := strconv.ParseFloat(m[1], 64)
			av.terms = append(av.terms, valueTerm{lo: lo, unbounded: true})
			continue
		}

		if numberTermRe.MatchString(part) {
			v, _ := strconv.ParseFloat(part, 64)
			av.terms = append(av.terms, valueTerm{lo: v, exact: true})
			continue
		}

		return nil, fmt.Errorf("cannot understand the range of values in %q: "+
			"provide a comma-separated list of numbers (e.g. '10, 20, 30'), ranges (e.g. '10-40'), "+
			"'+' for all numbers greater than a value (e.g. '30+'), or 'all'", spec)
	}

	return av, nil
}

// Contains reports whether v matches any term. An empty matcher accepts
// everything.
func (a *AllowedValues) Contains(v float64) bool {
	if len(a.terms) == 0 {
		return true
	}
	for _, t := range a.terms {
		switch {
		case t.exact:
			if v == t.lo {
				return true
			}
		case t.unbounded:
			if v >= t.lo {
				return true
			}
		default:
			if v >= t.lo && v <= t.hi {
				return true
			}
		}
	}
	return false
}

// String renders the matcher back into the grammar for error messages.
func (a *AllowedValues) String() string {
	if len(a.terms) == 0 {
		return "all"
	}
	parts := make([]string, 0, len(a.terms))
	for _, t := range a.terms {
		switch {
		case t.exact:
			parts = append(parts, formatNumber(t.lo))
		case t.unbounded:
			parts = append(parts, formatNumber(t.lo)+"+")
		default:
			parts = append(parts, fmt.Sprintf("%s - %s", formatNumber(t.lo), formatNumber(t.hi)))
		}
	}
	return strings.Join(parts, ", ")
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var (
	idStripRe    = regexp.MustCompile(`[^a-z.0-9\-\s_]+`)
	idCollapseRe = regexp.MustCompile(`[\s-]+`)
)

// NameToID derives the stable identifier slug from a display name: lower
// case, punctuation stripped, whitespace and dashes collapsed to
// underscores.
func NameToID(name string) string {
	return idCollapseRe.ReplaceAllString(idStripRe.ReplaceAllString(strings.ToLower(name), ""), "_")
}
