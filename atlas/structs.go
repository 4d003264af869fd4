package atlas

// GeoResult is the geolocation answer for one address.
type GeoResult struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type ASNResult struct {
	CIDR   string `json:"cidr"`
	ASN    string `json:"asn"`
	ASName string `json:"as_name"`
}

type ISPResult struct {
	ISP      string `json:"isp"`
	Domain   string `json:"domain"`
	Provider string `json:"provider"`
}

type ProxyResult struct {
	ProxyType string `json:"proxy_type"`
}

// Result aggregates all datasets for one address. A nil field means
// that dataset has no record covering the address; for ProxyType that
// is the expected common case, not an anomaly.
type Result struct {
	IP    string       `json:"ip"`
	Geo   *GeoResult   `json:"geo,omitempty"`
	ASN   *ASNResult   `json:"asn,omitempty"`
	ISP   *ISPResult   `json:"isp,omitempty"`
	Proxy *ProxyResult `json:"proxy,omitempty"`
}

// DatasetState reports the load outcome for one database.
type DatasetState struct {
	Loaded  bool   `json:"loaded"`
	Records int    `json:"records"`
	Error   string `json:"error,omitempty"`
}

// LoadResult maps dataset name to its load outcome. Partial capability
// is expressed here instead of refusing to serve anything.
type LoadResult struct {
	Datasets map[string]DatasetState `json:"datasets"`
}

func (lr LoadResult) AllLoaded() bool {
	for _, state := range lr.Datasets {
		if !state.Loaded {
			return false
		}
	}

	return len(lr.Datasets) > 0
}
