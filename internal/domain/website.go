package domain

import (
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// RegistrableDomain reduces a company website to its eTLD+1 ("www.opticore.io/about"
// becomes "opticore.io"). Bare hosts without a scheme are accepted.
func RegistrableDomain(website string) string {
	website = strings.TrimSpace(website)
	if website == "" {
		return ""
	}
	if !strings.Contains(website, "://") {
		website = "https://" + website
	}
	u, err := url.Parse(website)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	registrable, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return registrable
}
