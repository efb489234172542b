package result

import (
	"fmt"
	"strings"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// ProtoMapper returns a PathMapper that maps the properties of a path's
// end element onto a protocol buffer message created by factory. For a
// relationship-rooted path the relationship's properties are used.
//
// Fields are matched by proto field name, with a snake_case to
// camelCase fallback for property keys. Properties without a matching
// field are ignored; nil property values leave the field unset.
//
// Example:
//
//	seq := result.MapNodes(cursor, result.ProtoMapper(func() *pb.Person {
//	    return &pb.Person{}
//	}))
func ProtoMapper[T proto.Message](factory func() T) PathMapper[T] {
	if factory == nil {
		panic("result: nil proto factory")
	}
	return func(p Path) (T, error) {
		msg := factory()
		props := pathProperties(p)
		if err := setProtoFields(msg, props); err != nil {
			var zero T
			return zero, err
		}
		return msg, nil
	}
}

func pathProperties(p Path) map[string]any {
	if rel := p.LastRelationship(); rel != nil {
		return rel.Properties()
	}
	return p.EndNode().Properties()
}

// setProtoFields assigns property values to same-named scalar fields of
// a proto message, converting the loose numeric types stores hand back
// (int64 for all integers, float64 for all floats).
func setProtoFields(target proto.Message, props map[string]any) error {
	if target == nil {
		return fmt.Errorf("result: target message cannot be nil")
	}
	msg := target.ProtoReflect()
	fields := msg.Descriptor().Fields()

	for i := 0; i < fields.Len(); i++ {
		field := fields.Get(i)
		name := string(field.Name())

		value, ok := props[name]
		if !ok {
			value, ok = props[snakeToCamel(name)]
			if !ok {
				continue
			}
		}
		if value == nil {
			continue
		}
		if field.IsList() || field.IsMap() {
			// Collection fields have no single property shape.
			continue
		}
		if err := setScalarField(msg, field, value); err != nil {
			return fmt.Errorf("result: field %q: %w", name, err)
		}
	}
	return nil
}

func setScalarField(msg protoreflect.Message, field protoreflect.FieldDescriptor, value any) error {
	switch field.Kind() {
	case protoreflect.BoolKind:
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %T", value)
		}
		msg.Set(field, protoreflect.ValueOfBool(b))

	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind:
		i64, err := toInt64(value)
		if err != nil {
			return err
		}
		if i64 < -2147483648 || i64 > 2147483647 {
			return fmt.Errorf("value %d overflows int32", i64)
		}
		msg.Set(field, protoreflect.ValueOfInt32(int32(i64)))

	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		i64, err := toInt64(value)
		if err != nil {
			return err
		}
		msg.Set(field, protoreflect.ValueOfInt64(i64))

	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind:
		i64, err := toInt64(value)
		if err != nil {
			return err
		}
		if i64 < 0 || i64 > 4294967295 {
			return fmt.Errorf("value %d overflows uint32", i64)
		}
		msg.Set(field, protoreflect.ValueOfUint32(uint32(i64)))

	case protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		i64, err := toInt64(value)
		if err != nil {
			return err
		}
		if i64 < 0 {
			return fmt.Errorf("negative value %d cannot be converted to uint64", i64)
		}
		msg.Set(field, protoreflect.ValueOfUint64(uint64(i64)))

	case protoreflect.FloatKind:
		f64, err := toFloat64(value)
		if err != nil {
			return err
		}
		msg.Set(field, protoreflect.ValueOfFloat32(float32(f64)))

	case protoreflect.DoubleKind:
		f64, err := toFloat64(value)
		if err != nil {
			return err
		}
		msg.Set(field, protoreflect.ValueOfFloat64(f64))

	case protoreflect.StringKind:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
		msg.Set(field, protoreflect.ValueOfString(s))

	case protoreflect.BytesKind:
		switch v := value.(type) {
		case []byte:
			msg.Set(field, protoreflect.ValueOfBytes(v))
		case string:
			msg.Set(field, protoreflect.ValueOfBytes([]byte(v)))
		default:
			return fmt.Errorf("expected []byte or string, got %T", value)
		}

	case protoreflect.EnumKind:
		i64, err := toInt64(value)
		if err != nil {
			return err
		}
		num := protoreflect.EnumNumber(i64)
		if field.Enum().Values().ByNumber(num) == nil {
			return fmt.Errorf("invalid enum number %d for %s", i64, field.Enum().FullName())
		}
		msg.Set(field, protoreflect.ValueOfEnum(num))

	default:
		return fmt.Errorf("unsupported field kind %s", field.Kind())
	}
	return nil
}

// toInt64 converts the numeric types graph stores hand back to int64.
func toInt64(value any) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		if v > 9223372036854775807 {
			return 0, fmt.Errorf("uint64 value %d overflows int64", v)
		}
		return int64(v), nil
	case float32:
		return int64(v), nil
	case float64:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("cannot convert %T to int64", value)
	}
}

func toFloat64(value any) (float64, error) {
	switch v := value.(type) {
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("cannot convert %T to float64", value)
	}
}

func snakeToCamel(s string) string {
	parts := strings.Split(s, "_")
	if len(parts) == 1 {
		return s
	}
	out := parts[0]
	for _, part := range parts[1:] {
		if part == "" {
			continue
		}
		out += strings.ToUpper(part[:1]) + part[1:]
	}
	return out
}
