package secrets

import "regexp"

// Pattern defines a secret detection pattern. When the regex has a group
// named "secret", only that group is reported; the rest is context.
type Pattern struct {
	Name  string
	Regex *regexp.Regexp
}

// DefaultPatterns returns the built-in secret detection patterns.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{
			Name:  "Google API Key",
			Regex: regexp.MustCompile(`AIza[0-9A-Za-z\-_]{35}`),
		},
		{
			Name:  "OpenAI API Key",
			Regex: regexp.MustCompile(`sk-(?:proj-)?[A-Za-z0-9_\-]{20,}`),
		},
		{
			Name:  "URL Key Parameter",
			Regex: regexp.MustCompile(`[?&](?:key|api_key|access_token)=(?P<secret>[^&\s"']+)`),
		},
		{
			Name:  "Bearer Token",
			Regex: regexp.MustCompile(`(?i)bearer\s+(?P<secret>[A-Za-z0-9\-._~+/]{8,}=*)`),
		},
		{
			Name:  "AWS Access Key",
			Regex: regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
		},
		{
			Name:  "GitHub Token",
			Regex: regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{36,}`),
		},
		{
			Name:  "Private Key",
			Regex: regexp.MustCompile(`-----BEGIN (?:RSA |EC |DSA )?PRIVATE KEY-----`),
		},
		{
			Name:  "Connection String Password",
			Regex: regexp.MustCompile(`(?:postgres|postgresql|redis)://[^:/\s]+:(?P<secret>[^@\s]+)@`),
		},
		{
			Name:  "JWT Token",
			Regex: regexp.MustCompile(`eyJ[A-Za-z0-9\-_]+\.eyJ[A-Za-z0-9\-_]+\.[A-Za-z0-9\-_]+`),
		},
	}
}
