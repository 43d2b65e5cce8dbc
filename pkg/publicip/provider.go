package publicip

import (
	"github.com/deckwork/ipkey/pkg/errors"
)

// Provider identifies one public-address lookup service.
type Provider string

// Known lookup providers. All of them answer a plain GET with the caller's
// address as bare text.
const (
	Ipify      Provider = "ipify"
	ICanHazIP  Provider = "icanhazip"
	IfconfigMe Provider = "ifconfig-me"
)

// ListProviders returns every known provider in the default fallback order.
func ListProviders() []Provider {
	return []Provider{Ipify, ICanHazIP, IfconfigMe}
}

// ValidateProvider checks that the provider is a known one.
func ValidateProvider(provider Provider) error {
	for _, known := range ListProviders() {
		if provider == known {
			return nil
		}
	}
	return errors.New(errors.ErrCodeInvalidProvider, "unknown lookup provider: %q", provider)
}

// URL returns the lookup endpoint for the provider. The icanhazip endpoint
// pins the IPv4 subdomain so a dual-stack machine cannot come back with a
// v6 answer.
func (p Provider) URL() string {
	switch p {
	case Ipify:
		return "https://api.ipify.org"
	case ICanHazIP:
		return "https://ipv4.icanhazip.com"
	case IfconfigMe:
		return "https://ifconfig.me/ip"
	default:
		return ""
	}
}

// String implements fmt.Stringer.
func (p Provider) String() string {
	return string(p)
}
