package directory

import "regexp"

const masked = "***"

var secretPatterns = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`("(?:access_token|refresh_token|id_token|client_secret)"\s*:\s*")[^"]*(")`), "${1}" + masked + "${2}"},
	{regexp.MustCompile(`(?i)\b(bearer\s+)[A-Za-z0-9\-._~+/]+=*`), "${1}" + masked},
	{regexp.MustCompile(`((?:client_secret|access_token|refresh_token)=)[^&\s"]+`), "${1}" + masked},
}

// Mask replaces credential material in s with a fixed placeholder so request and
// response dumps can be logged.
func Mask(s string) string {
	for _, p := range secretPatterns {
		s = p.re.ReplaceAllString(s, p.repl)
	}
	return s
}
