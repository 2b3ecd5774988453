package engine

import "strings"

// SplitStatements breaks a SQL script on top-level semicolons. Quoted
// strings, quoted identifiers and comments are left intact.
func SplitStatements(script string) []string {
	var (
		out   []string
		b     strings.Builder
		quote rune
	)
	runes := []rune(script)
	flush := func() {
		if s := strings.TrimSpace(b.String()); s != "" && !onlyComments(s) {
			out = append(out, s)
		}
		b.Reset()
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if quote != 0 {
			b.WriteRune(r)
			if r == quote {
				quote = 0
			}
			continue
		}
		switch {
		case r == '\'' || r == '"' || r == '`':
			quote = r
			b.WriteRune(r)
		case r == '[':
			quote = ']'
			b.WriteRune(r)
		case r == '-' && i+1 < len(runes) && runes[i+1] == '-':
			for i < len(runes) && runes[i] != '\n' {
				b.WriteRune(runes[i])
				i++
			}
			if i < len(runes) {
				b.WriteRune('\n')
			}
		case r == '/' && i+1 < len(runes) && runes[i+1] == '*':
			j := i + 2
			for j+1 < len(runes) && !(runes[j] == '*' && runes[j+1] == '/') {
				j++
			}
			end := min(j+2, len(runes))
			b.WriteString(string(runes[i:end]))
			i = end - 1
		case r == ';':
			flush()
		default:
			b.WriteRune(r)
		}
	}
	flush()
	return out
}

func onlyComments(s string) bool {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		if strings.HasPrefix(line, "/*") && strings.HasSuffix(line, "*/") {
			continue
		}
		return false
	}
	return true
}
