package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// UsageMap stores per-day request counts keyed by YYYY-MM-DD, persisted as JSONB.
type UsageMap map[string]int

// Value implements driver.Valuer.
func (m UsageMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *UsageMap) Scan(src any) error {
	if src == nil {
		*m = UsageMap{}
		return nil
	}

	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported usage map source %T", src)
	}

	if len(raw) == 0 {
		*m = UsageMap{}
		return nil
	}

	parsed := map[string]int{}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("decoding usage map: %w", err)
	}
	*m = parsed
	return nil
}

// GormDataType tells GORM which column type to use.
func (UsageMap) GormDataType() string {
	return "jsonb"
}
