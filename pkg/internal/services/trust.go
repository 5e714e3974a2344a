package services

import (
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// IsHostBlocked consults the instance-level trust policy. Blocking an entry
// covers its subdomains as well.
func IsHostBlocked(host string) bool {
	host = strings.ToLower(host)
	return lo.SomeBy(viper.GetStringSlice("federation.blocked_hosts"), func(blocked string) bool {
		blocked = strings.ToLower(blocked)
		return host == blocked || strings.HasSuffix(host, "."+blocked)
	})
}

// IsSelfHost reports whether the host is this server itself.
func IsSelfHost(host string) bool {
	return strings.EqualFold(host, viper.GetString("federation.domain"))
}
