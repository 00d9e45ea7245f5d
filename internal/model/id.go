// ABOUTME: Tagged track/entity identifier shared across providers
// ABOUTME: Equality and hashing are by (source, kind, value)
package model

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ApiSource names the provider that an Id or entity belongs to.
type ApiSource string

const (
	SourceLibrary ApiSource = "LIBRARY"
	SourceTidal   ApiSource = "TIDAL"
	SourceQobuz   ApiSource = "QOBUZ"
	SourceYouTube ApiSource = "YOUTUBE"
)

// Id is a tagged sum of Number(u64) or String, scoped by an ApiSource.
// Equality is by (Source, kind, value) — a numeric Id never equals a
// string Id even if their textual forms match.
type Id struct {
	Source ApiSource
	isNum  bool
	num    uint64
	str    string
}

// NewNumberId builds an Id carrying a numeric library-style key.
func NewNumberId(source ApiSource, n uint64) Id {
	return Id{Source: source, isNum: true, num: n}
}

// NewStringId builds an Id carrying an opaque provider key.
func NewStringId(source ApiSource, s string) Id {
	return Id{Source: source, str: s}
}

// IsNumber reports whether this Id carries a numeric key.
func (id Id) IsNumber() bool { return id.isNum }

// Number returns the numeric key and true if this Id is numeric.
func (id Id) Number() (uint64, bool) { return id.num, id.isNum }

// String returns the canonical text form of the key (not the full Id).
func (id Id) String() string {
	if id.isNum {
		return strconv.FormatUint(id.num, 10)
	}
	return id.str
}

// Equal compares two Ids by (source, kind, value).
func (id Id) Equal(other Id) bool {
	if id.Source != other.Source || id.isNum != other.isNum {
		return false
	}
	if id.isNum {
		return id.num == other.num
	}
	return id.str == other.str
}

// Key returns a value suitable for use as a map key, unique per (source,
// kind, value) triple.
func (id Id) Key() string {
	kind := "s"
	if id.isNum {
		kind = "n"
	}
	return fmt.Sprintf("%s:%s:%s", id.Source, kind, id.String())
}

type idJSON struct {
	Source ApiSource `json:"source"`
	Value  string    `json:"value"`
	Number bool      `json:"number"`
}

// MarshalJSON encodes the Id as {source, value, number}.
func (id Id) MarshalJSON() ([]byte, error) {
	return json.Marshal(idJSON{Source: id.Source, Value: id.String(), Number: id.isNum})
}

// UnmarshalJSON decodes an Id encoded by MarshalJSON.
func (id *Id) UnmarshalJSON(data []byte) error {
	var raw idJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Number {
		n, err := strconv.ParseUint(raw.Value, 10, 64)
		if err != nil {
			return fmt.Errorf("model: invalid numeric id %q: %w", raw.Value, err)
		}
		*id = NewNumberId(raw.Source, n)
		return nil
	}
	*id = NewStringId(raw.Source, raw.Value)
	return nil
}
