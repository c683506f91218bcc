package source

import "strings"

// SplitStatements splits a script on semicolons that are outside quoted strings,
// identifiers and -- comments. Empty statements are dropped.
func SplitStatements(script string) []string {
	var (
		statements []string
		current    strings.Builder
		quote      rune
		comment    bool
	)

	flush := func() {
		if stmt := strings.TrimSpace(current.String()); stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
	}

	runes := []rune(script)
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		switch {
		case comment:
			if r == '\n' {
				comment = false
				current.WriteRune(r)
			}
			continue
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"' || r == '`':
			quote = r
		case r == '-' && i+1 < len(runes) && runes[i+1] == '-':
			comment = true
			continue
		case r == ';':
			flush()
			continue
		}

		current.WriteRune(r)
	}

	flush()

	return statements
}
