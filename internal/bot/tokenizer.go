package bot

import (
	"regexp"
	"strings"
)

// Tokenize splits a command line on spaces. Double-quoted phrases stay
// together as one argument without their quotes:
//
//	p eth btc "enjin coin" xmr  ->  [p eth btc enjin coin xmr]
func Tokenize(line string) []string {
	var (
		args    []string
		current strings.Builder
		quoted  bool
		pending bool
	)
	flush := func() {
		if pending {
			args = append(args, current.String())
		}
		current.Reset()
		pending = false
	}

	for _, r := range line {
		switch {
		case r == '"':
			if quoted {
				flush()
			}
			quoted = !quoted
		case r == ' ' && !quoted:
			flush()
		default:
			current.WriteRune(r)
			pending = true
		}
	}
	flush()
	return args
}

var mentionPattern = regexp.MustCompile(`^<@!?([0-9]+)>$`)

// ParseMention extracts the user id from a mention such as <@123> or <@!123>
func ParseMention(s string) (string, bool) {
	m := mentionPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", false
	}
	return m[1], true
}
