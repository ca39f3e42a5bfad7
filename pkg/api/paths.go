package api

import (
	"fmt"
	"net/url"
)

// Helium API v1 resources. Both are cursor paginated.
const (
	accountHotspotsPath = "/v1/accounts/%s/hotspots"
	hotspotRolesPath    = "/v1/hotspots/%s/roles"
)

func accountHotspots(account string) string {
	return fmt.Sprintf(accountHotspotsPath, url.PathEscape(account))
}

func hotspotRoles(address string) string {
	return fmt.Sprintf(hotspotRolesPath, url.PathEscape(address))
}
