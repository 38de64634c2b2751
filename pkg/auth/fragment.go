package auth

import (
	"net/url"
	"strings"
)

// Redirect is the payload a completed OAuth flow hands back through the
// redirect URL fragment: either a token or an error code, never both.
type Redirect struct {
	Token string
	Err   string
}

// Empty reports whether the fragment carried nothing of interest.
func (r Redirect) Empty() bool { return r.Token == "" && r.Err == "" }

// ConsumeFragment extracts the auth payload from rawURL's fragment and
// returns the URL with the fragment stripped. Re-processing the returned
// URL yields an empty Redirect, so a reload never re-applies a token or
// error.
func ConsumeFragment(rawURL string) (Redirect, string) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Fragment == "" {
		return Redirect{}, rawURL
	}
	values, err := url.ParseQuery(parsed.Fragment)
	if err != nil {
		return Redirect{}, rawURL
	}
	redirect := Redirect{
		Token: strings.TrimSpace(values.Get("token")),
		Err:   strings.TrimSpace(values.Get("error")),
	}
	if redirect.Empty() {
		return Redirect{}, rawURL
	}
	parsed.Fragment = ""
	return redirect, parsed.String()
}
