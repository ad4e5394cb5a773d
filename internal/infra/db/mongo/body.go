package mongo

import (
	"bytes"
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Bodies are plain JSON. They are decoded with encoding/json rather than as
// extended JSON so that map keys such as user ids are never read as type
// wrappers like "$date".

func bodyFromJSON(b []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("body is not an object")
	}
	return normalizeNumbers(m).(map[string]any), nil
}

// normalizeNumbers turns json.Number into int64 or float64; bson would
// otherwise store it as a string.
func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = normalizeNumbers(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = normalizeNumbers(e)
		}
		return t
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		f, _ := t.Float64()
		return f
	default:
		return v
	}
}

func bodyToJSON(raw bson.Raw) ([]byte, error) {
	v, err := fromBSON(bson.RawValue{Type: bsontype.EmbeddedDocument, Value: raw})
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

func fromBSON(v bson.RawValue) (any, error) {
	switch v.Type {
	case bsontype.EmbeddedDocument:
		elems, err := bson.Raw(v.Value).Elements()
		if err != nil {
			return nil, err
		}
		m := make(map[string]any, len(elems))
		for _, e := range elems {
			val, err := fromBSON(e.Value())
			if err != nil {
				return nil, err
			}
			m[e.Key()] = val
		}
		return m, nil
	case bsontype.Array:
		// arrays share the document layout with keys "0", "1", ...
		elems, err := bson.Raw(v.Value).Elements()
		if err != nil {
			return nil, err
		}
		out := make([]any, 0, len(elems))
		for _, e := range elems {
			val, err := fromBSON(e.Value())
			if err != nil {
				return nil, err
			}
			out = append(out, val)
		}
		return out, nil
	case bsontype.String:
		return v.StringValue(), nil
	case bsontype.Int32:
		return v.Int32(), nil
	case bsontype.Int64:
		return v.Int64(), nil
	case bsontype.Double:
		return v.Double(), nil
	case bsontype.Boolean:
		return v.Boolean(), nil
	case bsontype.Null:
		return nil, nil
	case bsontype.DateTime:
		return v.Time().UTC(), nil
	default:
		return nil, fmt.Errorf("unsupported bson type %s", v.Type)
	}
}
