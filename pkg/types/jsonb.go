package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// jsonValue binds v as JSON text. pgx casts text into jsonb columns and
// sqlite stores it as-is, so one encoding serves both drivers.
func jsonValue(v any) (driver.Value, error) {
	buf, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return string(buf), nil
}

// scanJSON decodes a jsonb column. NULL and empty values leave dest untouched.
func scanJSON(src any, dest any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan %T into %T: unsupported source type", src, dest)
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode %T: %w", dest, err)
	}
	return nil
}
