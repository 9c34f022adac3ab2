package amf3

import (
	"fmt"
	"strconv"
)

// ToNative converts a decoded value into plain Go values: nil, bool, int32,
// float64, string, []byte, time.Time, []any and map[string]any.
// Arrays without associative members become slices; other arrays, objects and
// dictionaries become maps. A value that contains itself is cut at the cycle and
// replaced by nil.
func ToNative(v Value) any {
	return (&nativeConverter{inProgress: make(map[Value]bool)}).convert(v)
}

type nativeConverter struct {
	inProgress map[Value]bool
}

// enter marks a reference value as being converted; it reports false on a cycle
func (c *nativeConverter) enter(v Value) bool {
	if c.inProgress[v] {
		return false
	}
	c.inProgress[v] = true
	return true
}

func (c *nativeConverter) leave(v Value) {
	delete(c.inProgress, v)
}

func (c *nativeConverter) convert(v Value) any {
	switch value := v.(type) {
	case nil, Undefined, Null:
		return nil
	case Boolean:
		return bool(value)
	case Integer:
		return int32(value)
	case Double:
		return float64(value)
	case String:
		return string(value)
	case *Date:
		return value.Time
	case *XMLDocument:
		return value.Data
	case *XML:
		return value.Data
	case *ByteArray:
		return value.Data
	case *VectorInt:
		return value.Items
	case *VectorUint:
		return value.Items
	case *VectorDouble:
		return value.Items
	case *Array, *Object, *VectorObject, *Dictionary:
	default:
		return nil
	}

	if !c.enter(v) {
		return nil
	}
	defer c.leave(v)

	switch value := v.(type) {
	case *Array:
		if len(value.Associative) == 0 {
			result := make([]any, len(value.Dense))
			for i, item := range value.Dense {
				result[i] = c.convert(item)
			}
			return result
		}

		// Mixed array: dense members become numbered keys
		result := make(map[string]any, len(value.Associative)+len(value.Dense))
		for k, item := range value.Associative {
			result[k] = c.convert(item)
		}
		for i, item := range value.Dense {
			result[strconv.Itoa(i)] = c.convert(item)
		}
		return result
	case *Object:
		if value.Traits != nil && value.Traits.Externalizable {
			return c.convert(value.External)
		}
		result := make(map[string]any, len(value.Properties))
		for k, item := range value.Properties {
			result[k] = c.convert(item)
		}
		return result
	case *VectorObject:
		result := make([]any, len(value.Items))
		for i, item := range value.Items {
			result[i] = c.convert(item)
		}
		return result
	case *Dictionary:
		result := make(map[string]any, len(value.Entries))
		for _, entry := range value.Entries {
			result[fmt.Sprint(c.convert(entry.Key))] = c.convert(entry.Value)
		}
		return result
	}
	return nil
}
