// Package scan decodes the structured text carried by a site marker
// into a site identity record.
package scan

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedPayload indicates a scanned payload that cannot be
// decoded or is missing required identity fields. No site or session is
// created when this is returned.
var ErrMalformedPayload = errors.New("malformed payload")

// SiteIdentity is the parsed content of a scanned marker. Field names
// follow the deployed marker format ("nom" is the site name).
type SiteIdentity struct {
	ID   string  `json:"id"`
	Name string  `json:"nom"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// ParsePayload decodes a raw scanned payload. The id and name fields
// must be non-blank; coordinates are taken as-is.
func ParsePayload(raw string) (SiteIdentity, error) {
	var ident SiteIdentity
	if err := json.Unmarshal([]byte(raw), &ident); err != nil {
		return SiteIdentity{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	if strings.TrimSpace(ident.ID) == "" || strings.TrimSpace(ident.Name) == "" {
		return SiteIdentity{}, fmt.Errorf("%w: missing id or name", ErrMalformedPayload)
	}

	return ident, nil
}
