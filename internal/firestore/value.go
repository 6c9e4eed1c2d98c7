package firestore

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Value is a Firestore typed value in its REST JSON form, e.g. {"stringValue": "x"}
type Value map[string]interface{}

// EncodeValue converts a Go value to its Firestore REST representation.
// Supported: nil, string, bool, integers, floats, time.Time, maps and slices of those.
func EncodeValue(v interface{}) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Value{"nullValue": nil}, nil
	case string:
		return Value{"stringValue": x}, nil
	case bool:
		return Value{"booleanValue": x}, nil
	case int:
		return Value{"integerValue": strconv.FormatInt(int64(x), 10)}, nil
	case int32:
		return Value{"integerValue": strconv.FormatInt(int64(x), 10)}, nil
	case int64:
		return Value{"integerValue": strconv.FormatInt(x, 10)}, nil
	case float32:
		return Value{"doubleValue": float64(x)}, nil
	case float64:
		return Value{"doubleValue": x}, nil
	case time.Time:
		return Value{"timestampValue": x.UTC().Format(time.RFC3339Nano)}, nil
	case map[string]interface{}:
		fields, err := EncodeFields(x)
		if err != nil {
			return nil, err
		}
		return Value{"mapValue": map[string]interface{}{"fields": fields}}, nil
	case []interface{}:
		values := make([]Value, 0, len(x))
		for _, item := range x {
			encoded, err := EncodeValue(item)
			if err != nil {
				return nil, err
			}
			values = append(values, encoded)
		}
		return Value{"arrayValue": map[string]interface{}{"values": values}}, nil
	default:
		return nil, fmt.Errorf("unsupported firestore value type %T", v)
	}
}

// EncodeFields encodes every entry of a document body
func EncodeFields(fields map[string]interface{}) (map[string]Value, error) {
	out := make(map[string]Value, len(fields))
	for k, v := range fields {
		encoded, err := EncodeValue(v)
		if err != nil {
			return nil, errors.Wrapf(err, "field %q", k)
		}
		out[k] = encoded
	}
	return out, nil
}

// DecodeValue converts a Firestore REST value back to Go. Integers come back
// as int64, doubles as float64 and timestamps as time.Time.
func DecodeValue(v map[string]interface{}) (interface{}, error) {
	for kind, raw := range v {
		switch kind {
		case "nullValue":
			return nil, nil
		case "stringValue", "referenceValue", "bytesValue":
			s, _ := raw.(string)
			return s, nil
		case "booleanValue":
			b, _ := raw.(bool)
			return b, nil
		case "integerValue":
			return decodeInteger(raw)
		case "doubleValue":
			return decodeDouble(raw)
		case "timestampValue":
			s, _ := raw.(string)
			ts, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				return nil, errors.Wrap(err, "invalid timestampValue")
			}
			return ts, nil
		case "mapValue":
			m, _ := raw.(map[string]interface{})
			fields, _ := m["fields"].(map[string]interface{})
			return DecodeFields(fields)
		case "arrayValue":
			m, _ := raw.(map[string]interface{})
			items, _ := m["values"].([]interface{})
			out := make([]interface{}, 0, len(items))
			for _, item := range items {
				iv, _ := item.(map[string]interface{})
				decoded, err := DecodeValue(iv)
				if err != nil {
					return nil, err
				}
				out = append(out, decoded)
			}
			return out, nil
		}
	}
	return nil, nil
}

// DecodeFields decodes the "fields" object of a document
func DecodeFields(fields map[string]interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(fields))
	for k, raw := range fields {
		v, _ := raw.(map[string]interface{})
		decoded, err := DecodeValue(v)
		if err != nil {
			return nil, errors.Wrapf(err, "field %q", k)
		}
		out[k] = decoded
	}
	return out, nil
}

func decodeInteger(raw interface{}) (interface{}, error) {
	switch x := raw.(type) {
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		if err != nil {
			return nil, errors.Wrap(err, "invalid integerValue")
		}
		return n, nil
	case float64:
		return int64(x), nil
	case json.Number:
		return x.Int64()
	}
	return nil, fmt.Errorf("invalid integerValue %v", raw)
}

func decodeDouble(raw interface{}) (interface{}, error) {
	switch x := raw.(type) {
	case float64:
		return x, nil
	case string:
		// NaN and Infinity are sent as strings
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return nil, errors.Wrap(err, "invalid doubleValue")
		}
		return f, nil
	}
	return nil, fmt.Errorf("invalid doubleValue %v", raw)
}
