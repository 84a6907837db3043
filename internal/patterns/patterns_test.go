package patterns

import (
	"math/rand"
	"strings"
	"testing"
)

func TestCleanMetadataScoresZero(t *testing.T) {
	table := Default()

	cases := []struct {
		title  string
		artist string
	}{
		{"Shape of You", "Ed Sheeran"},
		{"Blinding Lights", "The Weeknd"},
		{"Hotel California", "Eagles"},
		{"Don't Stop Me Now", "Queen"},
		{"Nuvole Bianche", "Ludovico Einaudi"},
	}

	for _, c := range cases {
		res := table.Evaluate(c.title, c.artist)
		if res.Score != 0 {
			t.Errorf("Evaluate(%q, %q) score = %v, want 0 (patterns: %v)",
				c.title, c.artist, res.Score, res.Patterns)
		}
		if len(res.Patterns) != 1 || res.Patterns[0] != NoPatternsMessage {
			t.Errorf("Evaluate(%q, %q) patterns = %v, want sentinel only",
				c.title, c.artist, res.Patterns)
		}
	}
}

func TestIndividualRules(t *testing.T) {
	table := Default()

	cases := []struct {
		name    string
		title   string
		artist  string
		flagged string
	}{
		{"short title", "X", "Some Artist", "Unusual title length"},
		{"long title", strings.Repeat("na ", 40) + "Batman", "Some Artist", "Unusual title length"},
		{"char repeat", "Looooove Song", "Some Artist", "Repeated character sequences"},
		{"digit run", "Track 20250101", "Some Artist", "Long digit sequences in title"},
		{"disallowed chars", "Song #Title", "Some Artist", "Unusual characters in title"},
		{"no vowels", "Rhythm", "Some Artist", "Title contains no vowels"},
		{"punctuation", "Why?! Really?!", "O.K. Band", "Excessive punctuation"},
		{"keyword in title", "Heart on My Sleeve", "ghostwriter977", "AI-related terms in metadata"},
		{"keyword in artist", "Some Song", "Drake AI", "AI-related terms in metadata"},
		{"caps artist", "Some Song", "DJ_9000", "All caps/numbers artist name"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			res := table.Evaluate(c.title, c.artist)
			if !contains(res.Patterns, c.flagged) {
				t.Errorf("Evaluate(%q, %q) patterns = %v, want %q flagged",
					c.title, c.artist, res.Patterns, c.flagged)
			}
			if res.Score <= 0 {
				t.Errorf("Evaluate(%q, %q) score = %v, want > 0", c.title, c.artist, res.Score)
			}
		})
	}
}

func TestKnownAITrackScoresAtLeastKeywordWeight(t *testing.T) {
	table := Default()
	res := table.Evaluate("Heart on My Sleeve", "Anonymous")
	if res.Score < 0.3 {
		t.Errorf("score = %v, want >= 0.3", res.Score)
	}
	if !contains(res.Patterns, "AI-related terms in metadata") {
		t.Errorf("patterns = %v, missing keyword match", res.Patterns)
	}
}

// Trigger strings per rule, combined at random; the additive score must stay
// inside [0,1] for every combination.
func TestScoreStaysBounded(t *testing.T) {
	table := Default()

	triggers := []struct {
		title  string
		artist string
	}{
		{"X", ""},                          // length
		{"aaaaaa song", ""},                // char repeat
		{"track 123456", ""},               // digit run
		{"song @ home", ""},                // disallowed chars
		{"Rhythm", ""},                     // no vowel
		{"a?!?! song", "b.,.,"},            // punctuation
		{"neural dreams", "GPT Collective"}, // keywords
		{"plain song", "ROBOT_99"},         // caps artist
	}

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		tr := triggers[rng.Intn(len(triggers))]
		extra := triggers[rng.Intn(len(triggers))]
		res := table.Evaluate(tr.title+" "+extra.title, tr.artist+extra.artist)
		if res.Score < 0 || res.Score > 1 {
			t.Fatalf("score %v out of [0,1] for title=%q artist=%q",
				res.Score, tr.title+" "+extra.title, tr.artist+extra.artist)
		}
	}
}

func TestEveryRuleFiringCapsAtOne(t *testing.T) {
	table := Default()
	// Hits length, repeat, digits, disallowed chars, punctuation, keywords,
	// and caps-artist at once.
	title := strings.Repeat("?????", 21) + " 12345 AI generated @@@"
	res := table.Evaluate(title, "SYNTHETIC_BOT_1")
	if res.Score != 1.0 {
		t.Errorf("score = %v, want capped at 1.0", res.Score)
	}
}

func TestLoadRejectsBadTables(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"empty", `{"rules": []}`},
		{"unknown kind", `{"rules": [{"kind": "spectral", "weight": 0.1}]}`},
		{"bad regexp", `{"rules": [{"kind": "artist_caps_pattern", "weight": 0.1, "pattern": "["}]}`},
		{"not json", `rules:`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := Load([]byte(c.data)); err == nil {
				t.Error("Load succeeded, want error")
			}
		})
	}
}

func TestCustomTableOverridesWeights(t *testing.T) {
	table, err := Load([]byte(`{"rules": [
		{"kind": "keyword_substring", "weight": 0.9, "description": "flagged term", "keywords": ["covers"]}
	]}`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	res := table.Evaluate("Greatest Covers Vol. 1", "Somebody")
	if res.Score != 0.9 {
		t.Errorf("score = %v, want 0.9", res.Score)
	}
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
