package investigator

import (
	"net/url"
	"strings"
)

// Normalize reduces an asset reference to a bare bucket name.
// "gs://b" and "https://b/" both become "b"; anything else is returned as is.
func Normalize(assetID string) string {
	if !strings.HasPrefix(assetID, "gs://") && !strings.HasPrefix(assetID, "https://") {
		return assetID
	}

	u, err := url.Parse(assetID)
	if err != nil {
		return assetID
	}
	if u.Host != "" {
		return u.Host
	}
	return strings.Trim(u.Path, "/")
}
