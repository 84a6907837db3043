// Package patterns evaluates track metadata against a data-driven table of
// suspicious-pattern rules. Rules are plain data records naming a check kind
// plus parameters; a fixed interpreter applies them, so the table can be
// swapped at startup without code changes.
package patterns

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode"

	"spotauth-srv/internal/models"
)

type RuleKind string

const (
	KindLengthBounds     RuleKind = "length_bounds"
	KindCharRepeat       RuleKind = "char_repeat"
	KindDigitRun         RuleKind = "digit_run"
	KindDisallowedChars  RuleKind = "disallowed_chars"
	KindNoVowel          RuleKind = "no_vowel"
	KindPunctuationCount RuleKind = "punctuation_count"
	KindKeywordSubstring RuleKind = "keyword_substring"
	KindArtistPattern    RuleKind = "artist_caps_pattern"
)

// NoPatternsMessage replaces an empty match list so callers never render an
// empty explanation.
const NoPatternsMessage = "No suspicious patterns detected"

// Vowel set extended with common accented forms.
const vowels = "aeiouàáâäãåèéêëìíîïòóôöõøùúûü"

// Rule is one entry of the pattern table. Which parameter fields apply
// depends on Kind; the rest are ignored.
type Rule struct {
	Kind        RuleKind `json:"kind"`
	Weight      float64  `json:"weight"`
	Description string   `json:"description"`
	Min         int      `json:"min,omitempty"`
	Max         int      `json:"max,omitempty"`
	Run         int      `json:"run,omitempty"`
	Allowed     string   `json:"allowed,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
	Pattern     string   `json:"pattern,omitempty"`
}

type compiledRule struct {
	Rule
	re *regexp.Regexp
}

// Table is an ordered, immutable set of compiled rules.
type Table struct {
	rules []compiledRule
}

type ruleFile struct {
	Rules []Rule `json:"rules"`
}

// Load parses and compiles a JSON rule table.
func Load(data []byte) (*Table, error) {
	var rf ruleFile
	if err := json.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse pattern rules: %w", err)
	}
	if len(rf.Rules) == 0 {
		return nil, fmt.Errorf("pattern rule table is empty")
	}

	t := &Table{rules: make([]compiledRule, 0, len(rf.Rules))}
	for i, r := range rf.Rules {
		cr := compiledRule{Rule: r}
		switch r.Kind {
		case KindLengthBounds, KindCharRepeat, KindDisallowedChars,
			KindNoVowel, KindPunctuationCount, KindKeywordSubstring:
			// No regex to compile.
		case KindDigitRun:
			run := r.Run
			if run <= 0 {
				run = 4
			}
			cr.re = regexp.MustCompile(fmt.Sprintf(`[0-9]{%d,}`, run))
		case KindArtistPattern:
			re, err := regexp.Compile(r.Pattern)
			if err != nil {
				return nil, fmt.Errorf("rule %d: compile %q: %w", i, r.Pattern, err)
			}
			cr.re = re
		default:
			return nil, fmt.Errorf("rule %d: unknown kind %q", i, r.Kind)
		}
		t.rules = append(t.rules, cr)
	}
	return t, nil
}

// LoadFile reads a rule table from disk.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pattern rules: %w", err)
	}
	return Load(data)
}

// Evaluate applies every rule once and returns the additive score capped at
// 1.0 plus the matched descriptions in table order.
func (t *Table) Evaluate(title, artist string) models.PatternAnalysis {
	score := 0.0
	matched := []string{}

	for _, r := range t.rules {
		if r.test(title, artist) {
			score += r.Weight
			matched = append(matched, r.Description)
		}
	}

	if score > 1.0 {
		score = 1.0
	}
	if len(matched) == 0 {
		matched = []string{NoPatternsMessage}
	}
	return models.PatternAnalysis{Score: score, Patterns: matched}
}

func (r *compiledRule) test(title, artist string) bool {
	switch r.Kind {
	case KindLengthBounds:
		n := len([]rune(title))
		return n < r.Min || n > r.Max
	case KindCharRepeat:
		return hasCharRun(title, r.Run)
	case KindDigitRun, KindArtistPattern:
		target := title
		if r.Kind == KindArtistPattern {
			target = artist
		}
		return r.re.MatchString(target)
	case KindDisallowedChars:
		for _, c := range title {
			if unicode.IsLetter(c) || unicode.IsDigit(c) || unicode.IsSpace(c) {
				continue
			}
			if !strings.ContainsRune(r.Allowed, c) {
				return true
			}
		}
		return false
	case KindNoVowel:
		return !strings.ContainsAny(strings.ToLower(title), vowels)
	case KindPunctuationCount:
		count := 0
		for _, c := range title + artist {
			if strings.ContainsRune("!?.,", c) {
				count++
			}
		}
		return count > r.Max
	case KindKeywordSubstring:
		titleLower := strings.ToLower(title)
		artistLower := strings.ToLower(artist)
		for _, kw := range r.Keywords {
			kw = strings.ToLower(kw)
			if strings.Contains(titleLower, kw) || strings.Contains(artistLower, kw) {
				return true
			}
		}
		return false
	}
	return false
}

func hasCharRun(s string, run int) bool {
	if run <= 0 {
		run = 5
	}
	var prev rune
	count := 0
	for _, c := range s {
		if c == prev {
			count++
			if count >= run {
				return true
			}
		} else {
			prev = c
			count = 1
		}
	}
	return false
}
