// internal/integrations/location/models.go
package location

// LocationInfo describes where a property is. Fallback is set when MapURL is
// a plain search link rather than one the model resolved.
type LocationInfo struct {
	Identifier string `json:"identifier"`
	Summary    string `json:"summary"`
	MapURL     string `json:"mapUrl"`
	Fallback   bool   `json:"fallback"`
	Cached     bool   `json:"cached"`
}

const unavailableSummary = "Location details are not available at the moment."
