package models

import "strings"

// Party is the normalised party bucket used in published documents
type Party string

const (
	PartyDem   Party = "dem"
	PartyGOP   Party = "gop"
	PartyOther Party = "oth"
)

// PartyFromAP maps a feed party code onto dem, gop or oth
func PartyFromAP(code string) Party {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "dem":
		return PartyDem
	case "gop":
		return PartyGOP
	default:
		return PartyOther
	}
}

// Valid reports whether p is one of the three known buckets
func (p Party) Valid() bool {
	return p == PartyDem || p == PartyGOP || p == PartyOther
}
