// Package intent maps normalized user text to a named action via the
// configured rule table. Matching is exhaustive: every pattern of every
// rule is tested and the best match is selected afterwards, so a more
// specific pattern later in the table still beats an early generic one.
package intent

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/matalai-travel/chat-backend/internal/catalog"
)

// ActionID names one action handler strategy.
type ActionID string

type pattern struct {
	action   ActionID
	raw      string
	length   int
	wildcard bool
	re       *regexp.Regexp
}

// Matcher holds the precompiled rule table. It is immutable after
// construction and safe for concurrent use.
type Matcher struct {
	patterns []pattern
}

func NewMatcher(rules []catalog.Rule) (*Matcher, error) {
	m := &Matcher{}

	for _, rule := range rules {
		for _, raw := range rule.Patterns {
			normalized := Normalize(raw)
			if normalized == "" {
				continue
			}

			p := pattern{
				action: ActionID(rule.Action),
				raw:    normalized,
				length: len(normalized),
			}

			if strings.Contains(normalized, "*") {
				re, err := compileWildcard(normalized)
				if err != nil {
					return nil, fmt.Errorf("rule %q pattern %q: %w", rule.Action, raw, err)
				}
				p.wildcard = true
				p.re = re
			}

			m.patterns = append(m.patterns, p)
		}
	}

	return m, nil
}

// Match returns the best-matching action for the message, or false when
// no rule matches. Ranking: longest pattern wins; on a length tie a
// literal beats a wildcard; otherwise the first pattern found wins.
func (m *Matcher) Match(message string) (ActionID, bool) {
	text := Normalize(message)
	if text == "" {
		return "", false
	}

	var best *pattern
	for i := range m.patterns {
		p := &m.patterns[i]

		var hit bool
		if p.wildcard {
			hit = p.re.MatchString(text)
		} else {
			hit = strings.Contains(text, p.raw)
		}
		if !hit {
			continue
		}

		if best == nil ||
			p.length > best.length ||
			(p.length == best.length && best.wildcard && !p.wildcard) {
			best = p
		}
	}

	if best == nil {
		return "", false
	}
	return best.action, true
}

// Normalize lowercases the text and strips terminal punctuation.
func Normalize(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	return strings.TrimRight(text, "?.,!")
}

// compileWildcard translates a '*' wildcard pattern into a regexp;
// everything between the wildcards is matched literally.
func compileWildcard(raw string) (*regexp.Regexp, error) {
	parts := strings.Split(raw, "*")
	for i, part := range parts {
		parts[i] = regexp.QuoteMeta(part)
	}
	return regexp.Compile(strings.Join(parts, ".*"))
}
