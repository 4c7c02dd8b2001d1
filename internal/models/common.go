package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSON is the jsonb metadata column shared by commissions, dispensations and
// audit entries. A nil map stores as SQL NULL.
type JSON map[string]interface{}

// Value serializes the map for the jsonb column.
func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan restores the map from the stored jsonb bytes.
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("unsupported jsonb source type %T", value)
	}

	var result JSON
	if err := json.Unmarshal(bytes, &result); err != nil {
		return err
	}
	*j = result
	return nil
}
