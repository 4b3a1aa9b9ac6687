package authflow

// Package authflow implements the sign-in completion flow for the OAuth
// callback location: parsing provider redirect parameters and driving the
// session establishment state machine.

import (
	"net/url"
	"strings"
)

// denialPatterns are matched case-insensitively as substrings of the error
// parameter to detect user cancellation or provider denial.
var denialPatterns = []string{"access_denied", "access-denied", "denied", "cancel"}

// Outcome is the parsed, ephemeral result of one callback page load. It is
// derived once per run from the URL and never persisted.
type Outcome struct {
	Code             string
	AccessToken      string
	RefreshToken     string
	Error            string
	ErrorDescription string
	RedirectTarget   string
}

// HasCode reports whether an authorization code is present.
func (o Outcome) HasCode() bool { return o.Code != "" }

// HasImplicitTokens reports whether both implicit-flow tokens are present.
func (o Outcome) HasImplicitTokens() bool {
	return o.AccessToken != "" && o.RefreshToken != ""
}

// Denied reports whether the error parameter matches a cancellation/denial
// pattern.
func (o Outcome) Denied() bool {
	if o.Error == "" {
		return false
	}
	lowered := strings.ToLower(o.Error)
	for _, p := range denialPatterns {
		if strings.Contains(lowered, p) {
			return true
		}
	}
	return false
}

// DenialMessage returns the human-readable denial description when present,
// else a generic message.
func (o Outcome) DenialMessage() string {
	if o.ErrorDescription != "" {
		return o.ErrorDescription
	}
	return "Sign-in was denied or canceled."
}

// ParseRedirect extracts OAuth outcome signals from a callback URL. Providers
// may place parameters in either the query string or the URL fragment, so both
// are read; query values win and fragment values fill the gaps.
func ParseRedirect(rawURL string) Outcome {
	var out Outcome

	u, err := url.Parse(rawURL)
	if err != nil {
		return out
	}

	query := u.Query()
	fragment, fragErr := url.ParseQuery(u.Fragment)
	if fragErr != nil {
		fragment = url.Values{}
	}

	pick := func(key string) string {
		if v := query.Get(key); v != "" {
			return v
		}
		return fragment.Get(key)
	}

	out.Code = pick("code")
	out.AccessToken = pick("access_token")
	out.RefreshToken = pick("refresh_token")
	out.Error = pick("error")
	out.ErrorDescription = pick("error_description")
	out.RedirectTarget = safeRedirectPath(pick("redirect_uri"))

	return out
}

// CleanURL rewrites the callback URL so no sign-in tokens, codes, or error
// parameters remain visible. Only the redirect_uri query parameter is
// preserved; the fragment is dropped entirely. Must be called after parsing,
// so tokens are read before being erased.
func CleanURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "/"
	}

	kept := url.Values{}
	if target := u.Query().Get("redirect_uri"); safeRedirectPath(target) == target && target != "" {
		kept.Set("redirect_uri", target)
	}

	u.RawQuery = kept.Encode()
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

// safeRedirectPath ensures the provided redirect is a same-origin relative
// path starting with "/" and not an absolute URL. Returns "/" when invalid.
func safeRedirectPath(candidate string) string {
	if candidate == "" {
		return "/"
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") {
		return "/"
	}
	return candidate
}
