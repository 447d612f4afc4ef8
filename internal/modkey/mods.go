// Package modkey derives the canonical mods_key and speed_mod derived
// columns from a score row's JSON-encoded data payload (spec §4.C).
package modkey

import (
	"encoding/json"
	"sort"
	"strings"
)

// Normalized is the pair of derived columns appended to every typed row.
type Normalized struct {
	ModsKey  string
	SpeedMod *string // nil means SQL NULL
}

type modRecord struct {
	Acronym string `json:"acronym"`
}

type dataPayload struct {
	Mods []json.RawMessage `json:"mods"`
}

// Derive parses the raw value of a `data` column (NULL, or a JSON object
// string) and produces the canonicalized mods_key/speed_mod pair.
//
// A null value, or a value that is not valid JSON, yields ("", nil) per
// spec §4.C and the JsonIgnored error kind in §7 — the row is retained
// with empty derived columns rather than rejected.
func Derive(raw *string) Normalized {
	if raw == nil {
		return Normalized{ModsKey: ""}
	}

	var payload dataPayload
	if err := json.Unmarshal([]byte(*raw), &payload); err != nil {
		return Normalized{ModsKey: ""}
	}

	acronyms := make([]string, 0, len(payload.Mods))
	seen := make(map[string]struct{}, len(payload.Mods))
	for _, raw := range payload.Mods {
		var rec modRecord
		if err := json.Unmarshal(raw, &rec); err != nil || rec.Acronym == "" {
			continue
		}
		if _, dup := seen[rec.Acronym]; dup {
			continue
		}
		seen[rec.Acronym] = struct{}{}
		acronyms = append(acronyms, rec.Acronym)
	}

	sort.Strings(acronyms)
	modsKey := strings.Join(acronyms, ",")

	return Normalized{ModsKey: modsKey, SpeedMod: speedModOf(acronyms)}
}

// speedModOf implements the DT/NC/HT co-occurrence rule: DT wins over HT.
func speedModOf(acronyms []string) *string {
	var hasDT, hasNC, hasHT bool
	for _, a := range acronyms {
		switch a {
		case "DT":
			hasDT = true
		case "NC":
			hasNC = true
		case "HT":
			hasHT = true
		}
	}
	dt, ht := "DT", "HT"
	switch {
	case hasDT || hasNC:
		return &dt
	case hasHT:
		return &ht
	default:
		return nil
	}
}
