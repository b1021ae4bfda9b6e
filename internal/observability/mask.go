package observability

import "regexp"

var (
	rePassword   = regexp.MustCompile(`(?i)(password\s*[=:]\s*"?)([^\s";]+)`)
	reBearer     = regexp.MustCompile(`(?i)(bearer\s+)([A-Za-z0-9._-]+)`)
	reURLUserPwd = regexp.MustCompile(`(://)([^:/@\s]+):([^@\s]+)(@)`)
	reAPIKey     = regexp.MustCompile(`(?i)(api[_-]?key\s*[=:]\s*"?)([^\s";]+)`)
	reOpenAIKey  = regexp.MustCompile(`sk-[A-Za-z0-9_-]{8,}`)
)

// Mask hides credentials embedded in free text such as driver error
// messages, DSNs and provider responses.
func Mask(s string) string {
	out := rePassword.ReplaceAllString(s, "${1}***")
	out = reBearer.ReplaceAllString(out, "${1}***")
	out = reURLUserPwd.ReplaceAllString(out, "${1}${2}:***${4}")
	out = reAPIKey.ReplaceAllString(out, "${1}***")
	out = reOpenAIKey.ReplaceAllString(out, "sk-***")
	return out
}
