package trapi

import "github.com/di2ag/chp-sdk/schema"

// SchemaVersion selects the TRAPI revision a graph is serialized and
// validated against.
type SchemaVersion string

const (
	// V1_0 is TRAPI 1.0: singular keys, constraints flattened into the owner.
	V1_0 SchemaVersion = schema.TRAPI1_0

	// V1_1 is TRAPI 1.1: plural list keys, constraints as a nested list.
	V1_1 SchemaVersion = schema.TRAPI1_1
)

// DefaultSchemaVersion is used when no version is configured.
const DefaultSchemaVersion = V1_1

// String returns the version tag.
func (v SchemaVersion) String() string {
	return string(v)
}

// IsValid returns true if the version is one of the supported revisions.
func (v SchemaVersion) IsValid() bool {
	_, ok := serializers[v]
	return ok
}

// Validate returns an *UnsupportedSchemaVersionError if the version is not
// supported.
func (v SchemaVersion) Validate() error {
	if !v.IsValid() {
		return &UnsupportedSchemaVersionError{Version: string(v)}
	}
	return nil
}

// ParseSchemaVersion parses a version tag. The major-only forms "1" and "2"
// are accepted as aliases for the older and newer revision.
func ParseSchemaVersion(s string) (SchemaVersion, error) {
	switch s {
	case "1.0", "1":
		return V1_0, nil
	case "1.1", "2":
		return V1_1, nil
	default:
		return "", &UnsupportedSchemaVersionError{Version: s}
	}
}

// AllSchemaVersions returns all supported versions.
func AllSchemaVersions() []SchemaVersion {
	return []SchemaVersion{V1_0, V1_1}
}
