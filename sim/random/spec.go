package random

import (
	"bytes"
	"fmt"
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Spec describes a random variable in configuration files and on the command
// line. Params keys are lower case.
type Spec struct {
	Type   string             `yaml:"type"`
	Params map[string]float64 `yaml:"params,omitempty"`
}

// positional parameter names per type, used by the short "type:a,b" form
// and to validate keys.
var typeParams = map[string][]string{
	"constant":    {"constant"},
	"uniform":     {"min", "max"},
	"exponential": {"mean", "bound"},
	"normal":      {"mean", "std_dev"},
	"gamma":       {"mean", "cv"},
	"weibull":     {"mean", "cv"},
}

// framework type names accepted by Parse.
var longTypeNames = map[string]string{
	"constantrandomvariable":    "constant",
	"uniformrandomvariable":     "uniform",
	"exponentialrandomvariable": "exponential",
	"normalrandomvariable":      "normal",
	"gammarandomvariable":       "gamma",
	"weibullrandomvariable":     "weibull",
}

// ConstantSpec is shorthand for a constant variable.
func ConstantSpec(v float64) Spec {
	return Spec{Type: "constant", Params: map[string]float64{"constant": v}}
}

// UniformSpec is shorthand for a uniform variable on [min, max).
func UniformSpec(min, max float64) Spec {
	return Spec{Type: "uniform", Params: map[string]float64{"min": min, "max": max}}
}

// ExponentialSpec is shorthand for an unbounded exponential variable.
func ExponentialSpec(mean float64) Spec {
	return Spec{Type: "exponential", Params: map[string]float64{"mean": mean}}
}

// Parse reads a variable description. Accepted forms:
//
//	ns3::UniformRandomVariable[Min=0.0|Max=500.0]
//	Constant[Constant=2]
//	uniform:0,1
//	exponential:0.1
//	3.5            (a bare number is a constant)
//	{type: gamma, params: {mean: 0.1, cv: 2}}
func Parse(s string) (Spec, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Spec{}, fmt.Errorf("empty random variable")
	}
	if strings.HasPrefix(s, "{") {
		return LoadSpec([]byte(s))
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return ConstantSpec(v), nil
	}

	if open := strings.IndexByte(s, '['); open >= 0 {
		if !strings.HasSuffix(s, "]") {
			return Spec{}, fmt.Errorf("random variable %q: missing closing ']'", s)
		}
		name := strings.ToLower(strings.TrimPrefix(s[:open], "ns3::"))
		if long, ok := longTypeNames[name]; ok {
			name = long
		}
		spec := Spec{Type: name, Params: map[string]float64{}}
		body := s[open+1 : len(s)-1]
		if body != "" {
			for _, kv := range strings.Split(body, "|") {
				key, val, ok := strings.Cut(kv, "=")
				if !ok {
					return Spec{}, fmt.Errorf("random variable %q: attribute %q is not key=value", s, kv)
				}
				f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
				if err != nil {
					return Spec{}, fmt.Errorf("random variable %q: attribute %q: %w", s, key, err)
				}
				spec.Params[normalizeKey(key)] = f
			}
		}
		return spec, spec.Validate()
	}

	name, args, _ := strings.Cut(s, ":")
	spec := Spec{Type: strings.ToLower(strings.TrimSpace(name)), Params: map[string]float64{}}
	names, ok := typeParams[spec.Type]
	if !ok {
		return Spec{}, fmt.Errorf("unknown random variable type %q", name)
	}
	if args != "" {
		parts := strings.Split(args, ",")
		if len(parts) > len(names) {
			return Spec{}, fmt.Errorf("random variable %q: %s takes at most %d parameters", s, spec.Type, len(names))
		}
		for i, p := range parts {
			f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return Spec{}, fmt.Errorf("random variable %q: parameter %d: %w", s, i, err)
			}
			spec.Params[names[i]] = f
		}
	}
	return spec, spec.Validate()
}

// normalizeKey maps framework attribute names to Params keys.
func normalizeKey(k string) string {
	k = strings.ToLower(strings.TrimSpace(k))
	switch k {
	case "stddev", "std":
		return "std_dev"
	}
	return k
}

// LoadSpec decodes a YAML document into a Spec. Unknown keys are rejected.
func LoadSpec(data []byte) (Spec, error) {
	var spec Spec
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&spec); err != nil {
		return Spec{}, fmt.Errorf("parsing random variable: %w", err)
	}
	return spec, spec.Validate()
}

// Validate checks the type and parameter ranges.
func (s Spec) Validate() error {
	names, ok := typeParams[s.Type]
	if !ok {
		return fmt.Errorf("unknown random variable type %q", s.Type)
	}
	for k := range s.Params {
		known := false
		for _, n := range names {
			if n == k {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("%s: unknown parameter %q (valid: %s)", s.Type, k, strings.Join(names, ", "))
		}
	}
	p := s.Params
	switch s.Type {
	case "uniform":
		if p["max"] < p["min"] {
			return fmt.Errorf("uniform: max %g < min %g", p["max"], p["min"])
		}
	case "exponential":
		if p["mean"] <= 0 {
			return fmt.Errorf("exponential: mean must be > 0, got %g", p["mean"])
		}
	case "normal":
		if p["std_dev"] < 0 {
			return fmt.Errorf("normal: std_dev must be >= 0, got %g", p["std_dev"])
		}
	case "gamma", "weibull":
		if p["mean"] <= 0 {
			return fmt.Errorf("%s: mean must be > 0, got %g", s.Type, p["mean"])
		}
		if cv, ok := p["cv"]; ok && cv <= 0 {
			return fmt.Errorf("%s: cv must be > 0, got %g", s.Type, cv)
		}
	}
	return nil
}

// Build instantiates the variable drawing from rng.
func (s Spec) Build(rng *rand.Rand) (Variable, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	p := s.Params
	cv := 1.0
	if v, ok := p["cv"]; ok {
		cv = v
	}
	switch s.Type {
	case "constant":
		return Constant{V: p["constant"]}, nil
	case "uniform":
		max := p["max"]
		if _, ok := p["max"]; !ok {
			max = 1
		}
		return NewUniform(p["min"], max, rng), nil
	case "exponential":
		return NewExponential(p["mean"], p["bound"], rng), nil
	case "normal":
		return NewNormal(p["mean"], p["std_dev"], rng), nil
	case "gamma":
		return NewGamma(p["mean"], cv, rng), nil
	case "weibull":
		return NewWeibull(p["mean"], cv, rng), nil
	}
	return nil, fmt.Errorf("unknown random variable type %q", s.Type)
}

// MustBuild is Build for specs that already passed Validate.
func (s Spec) MustBuild(rng *rand.Rand) Variable {
	v, err := s.Build(rng)
	if err != nil {
		panic(err)
	}
	return v
}

// String renders the spec in the framework attribute form.
func (s Spec) String() string {
	keys := make([]string, 0, len(s.Params))
	for k := range s.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	attrs := make([]string, len(keys))
	for i, k := range keys {
		attrs[i] = k + "=" + strconv.FormatFloat(s.Params[k], 'g', -1, 64)
	}
	return s.Type + "[" + strings.Join(attrs, "|") + "]"
}
