package discovery

import (
	_ "embed"
	"fmt"
	"regexp"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/jbird-nerd/CalendarCaptureExtension/internal/provider"
)

//go:embed patterns.yaml
var patternsYAML []byte

// Rule is one entry of an ordered filter policy: the first rule whose
// pattern matches a model identifier decides its fate.
type Rule struct {
	// Include keeps a matching identifier; false drops it
	Include bool

	// Pattern matches anywhere in the identifier
	Pattern *regexp.Regexp
}

// Policy is the per-vendor, per-capability model identifier filter, kept as
// data so discovery behavior is testable apart from any network code.
type Policy struct {
	rules map[provider.Vendor]map[provider.Capability][]Rule
}

var (
	defaultPolicy     *Policy
	defaultPolicyOnce sync.Once
)

// DefaultPolicy returns the policy compiled from the embedded rules file.
func DefaultPolicy() *Policy {
	defaultPolicyOnce.Do(func() {
		p, err := ParsePolicy(patternsYAML)
		if err != nil {
			// The embedded file ships with the binary; failing to compile
			// it is a build defect, not a runtime condition.
			panic(fmt.Sprintf("embedded filter policy: %v", err))
		}
		defaultPolicy = p
	})
	return defaultPolicy
}

// ParsePolicy compiles a YAML rules document into a Policy.
func ParsePolicy(raw []byte) (*Policy, error) {
	var doc map[string]map[string][]map[string]string
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse filter rules: %w", err)
	}

	policy := &Policy{rules: map[provider.Vendor]map[provider.Capability][]Rule{}}
	for vendor, capabilities := range doc {
		byCapability := map[provider.Capability][]Rule{}
		for capability, entries := range capabilities {
			var rules []Rule
			for i, entry := range entries {
				if len(entry) != 1 {
					return nil, fmt.Errorf("rule %d for %s/%s: want exactly one of include/exclude", i, vendor, capability)
				}
				for action, pattern := range entry {
					re, err := regexp.Compile(pattern)
					if err != nil {
						return nil, fmt.Errorf("rule %d for %s/%s: %w", i, vendor, capability, err)
					}
					switch action {
					case "include":
						rules = append(rules, Rule{Include: true, Pattern: re})
					case "exclude":
						rules = append(rules, Rule{Include: false, Pattern: re})
					default:
						return nil, fmt.Errorf("rule %d for %s/%s: unknown action %q", i, vendor, capability, action)
					}
				}
			}
			byCapability[provider.Capability(capability)] = rules
		}
		policy.rules[provider.Vendor(vendor)] = byCapability
	}
	return policy, nil
}

// Filter applies the capability-specific rules for a vendor to a list of
// model identifiers, preserving input order. Filtering is per-identifier,
// so applying it to an already-filtered list is a no-op.
func (p *Policy) Filter(v provider.Vendor, c provider.Capability, models []string) []string {
	rules := p.rules[v][c]
	if len(rules) == 0 {
		return nil
	}

	var out []string
	for _, model := range models {
		if keep(rules, model) {
			out = append(out, model)
		}
	}
	return out
}

func keep(rules []Rule, model string) bool {
	for _, rule := range rules {
		if rule.Pattern.MatchString(model) {
			return rule.Include
		}
	}
	return false
}
