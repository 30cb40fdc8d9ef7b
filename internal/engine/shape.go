package engine

import (
	"encoding/base64"
	"fmt"
	"math/big"
	"reflect"
	"time"

	"github.com/duckdb/duckdb-go/v2"
	"github.com/google/uuid"
)

// shapeRow turns one scanned row into a column→value map. types holds the
// engine type name of each column and may be shorter than cols. When a
// statement yields two columns with the same name the later one wins, as it
// would in any JSON object.
func shapeRow(cols, types []string, vals []any) map[string]any {
	row := make(map[string]any, len(cols))
	for i, c := range cols {
		var typeName string
		if i < len(types) {
			typeName = types[i]
		}
		row[c] = shapeColumn(typeName, vals[i])
	}
	return row
}

// shapeColumn shapes a top-level column value. UUID and BLOB columns arrive
// as raw bytes: UUIDs are rendered in canonical text form, BLOBs as standard
// base64.
func shapeColumn(typeName string, v any) any {
	if b, ok := v.([]byte); ok {
		switch typeName {
		case "UUID":
			if id, err := uuid.FromBytes(b); err == nil {
				return id.String()
			}
		case "BLOB":
			return base64.StdEncoding.EncodeToString(b)
		}
	}
	return shapeValue(v)
}

// shapeValue converts driver values into plain JSON-friendly scalars.
func shapeValue(v any) any {
	switch x := v.(type) {
	case nil, bool, string, time.Time,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return x
	case []byte:
		return string(x)
	case *big.Int:
		if x == nil {
			return nil
		}
		if x.IsInt64() {
			return x.Int64()
		}
		return x.String()
	case duckdb.Decimal:
		return x.Float64()
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = shapeValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = shapeValue(e)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Map {
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[fmt.Sprint(iter.Key().Interface())] = shapeValue(iter.Value().Interface())
		}
		return out
	}
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return v
}
