package trapi

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadQuery reads a query document from path.
func LoadQuery(path string, opts ...GraphOption) (*Query, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read query %s: %w", path, err)
	}
	return DecodeQuery(data, opts...)
}

// Save writes the query as indented JSON to path.
func (q *Query) Save(path string) error {
	data, err := json.MarshalIndent(q, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write query %s: %w", path, err)
	}
	return nil
}
