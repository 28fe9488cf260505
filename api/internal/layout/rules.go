package layout

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultTemplate is the built-in lease contract layout.
const DefaultTemplate = "lease"

// Rules decides which tokens open a new paragraph.
type Rules struct {
	roleLabels  map[string]struct{}
	enumeration *regexp.Regexp
}

// NewRules builds rules from role labels (matched against trimmed token text)
// and an enumeration-marker regexp. An empty pattern disables enumeration markers.
func NewRules(roleLabels []string, enumeration string) (Rules, error) {
	r := Rules{roleLabels: make(map[string]struct{}, len(roleLabels))}
	for _, l := range roleLabels {
		if l = strings.TrimSpace(l); l != "" {
			r.roleLabels[l] = struct{}{}
		}
	}
	if enumeration != "" {
		re, err := regexp.Compile(enumeration)
		if err != nil {
			return Rules{}, fmt.Errorf("bad enumeration pattern %q: %w", enumeration, err)
		}
		r.enumeration = re
	}
	return r, nil
}

// LeaseRules: landlord/tenant role labels and "N." enumeration markers.
func LeaseRules() Rules {
	r, _ := NewRules([]string{"임대인", "임차인"}, `^[0-9]+\.$`)
	return r
}

// IsBoundary reports whether a token with this text starts a new paragraph.
func (r Rules) IsBoundary(text string) bool {
	t := strings.TrimSpace(text)
	if _, ok := r.roleLabels[t]; ok {
		return true
	}
	return r.enumeration != nil && r.enumeration.MatchString(t)
}

// RuleSet maps template names to their rules.
type RuleSet struct {
	def       string
	templates map[string]Rules
}

// DefaultRuleSet holds only the lease template.
func DefaultRuleSet() *RuleSet {
	return &RuleSet{
		def:       DefaultTemplate,
		templates: map[string]Rules{DefaultTemplate: LeaseRules()},
	}
}

type yamlRuleSet struct {
	Default   string `yaml:"default"`
	Templates map[string]struct {
		RoleLabels  []string `yaml:"role_labels"`
		Enumeration string   `yaml:"enumeration"`
	} `yaml:"templates"`
}

// LoadRuleSet reads a YAML rules file. The built-in lease template stays
// available unless the file redefines it.
func LoadRuleSet(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseRuleSet(data)
}

// ParseRuleSet is LoadRuleSet over bytes.
func ParseRuleSet(data []byte) (*RuleSet, error) {
	var yr yamlRuleSet
	if err := yaml.Unmarshal(data, &yr); err != nil {
		return nil, fmt.Errorf("bad rules yaml: %w", err)
	}
	rs := DefaultRuleSet()
	for name, t := range yr.Templates {
		r, err := NewRules(t.RoleLabels, t.Enumeration)
		if err != nil {
			return nil, fmt.Errorf("template %q: %w", name, err)
		}
		rs.templates[name] = r
	}
	if yr.Default != "" {
		if _, ok := rs.templates[yr.Default]; !ok {
			return nil, fmt.Errorf("default template %q is not defined", yr.Default)
		}
		rs.def = yr.Default
	}
	return rs, nil
}

// Get returns the rules for name; an empty name selects the default template.
func (rs *RuleSet) Get(name string) (Rules, error) {
	if name == "" {
		name = rs.def
	}
	r, ok := rs.templates[name]
	if !ok {
		return Rules{}, fmt.Errorf("unknown template %q", name)
	}
	return r, nil
}
