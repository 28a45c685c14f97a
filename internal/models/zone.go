package models

import "strings"

// Zone is a forecast-eligible geographic area. A zone is only retained when it
// has at least one observation station.
type Zone struct {
	Key                 string   `json:"key"`
	Name                string   `json:"name"`
	State               string   `json:"state"`
	ObservationStations []string `json:"observationStations"`
}

// DedupKey returns a string that is identical for value-equal zones. Used to
// deduplicate the zone catalog during cache population.
func (z Zone) DedupKey() string {
	return z.Key + "\x00" + z.Name + "\x00" + z.State + "\x00" + strings.Join(z.ObservationStations, "\x00")
}
