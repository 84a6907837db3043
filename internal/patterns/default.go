package patterns

import _ "embed"

//go:embed rules.json
var defaultRules []byte

// Default returns the built-in rule table.
func Default() *Table {
	t, err := Load(defaultRules)
	if err != nil {
		panic("patterns: embedded rule table invalid: " + err.Error())
	}
	return t
}
