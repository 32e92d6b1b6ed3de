package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/hupe1980/agentgraph/core"
)

// ValidationError represents a field validation failure with detailed information.
type ValidationError struct {
	Field   string `json:"field"`   // Field that failed validation
	Value   any    `json:"value"`   // Value that was provided
	Message string `json:"message"` // Human-readable error message
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// Is reports whether target is core.ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == core.ErrValidation }

// ValidationErrors collects every field failure of one record.
type ValidationErrors []*ValidationError

func (ve ValidationErrors) Error() string {
	msgs := make([]string, len(ve))
	for i, e := range ve {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Is reports whether target is core.ErrValidation.
func (ve ValidationErrors) Is(target error) bool { return target == core.ErrValidation }

// Coerce shapes values into a record carrying exactly the declared fields.
// Values are converted where safely possible (numeric strings, integral
// floats, JSON text for sequences and records). Fields that are missing,
// null while required, or not convertible are set to nil and reported in the
// returned ValidationErrors. Undeclared keys are dropped.
func (d *Descriptor) Coerce(values map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(d.Fields))
	var errs ValidationErrors

	for _, f := range d.Fields {
		raw, present := values[f.Name]
		if !present || raw == nil {
			out[f.Name] = nil
			if f.Required {
				errs = append(errs, &ValidationError{Field: f.Name, Message: "required field is missing"})
			}
			continue
		}

		v, err := coerceValue(f, raw)
		if err != nil {
			out[f.Name] = nil
			var nested ValidationErrors
			if errors.As(err, &nested) {
				for _, ne := range nested {
					errs = append(errs, &ValidationError{Field: f.Name + "." + ne.Field, Value: ne.Value, Message: ne.Message})
				}
				continue
			}
			errs = append(errs, &ValidationError{Field: f.Name, Value: raw, Message: err.Error()})
			continue
		}
		out[f.Name] = v
	}

	if len(errs) > 0 {
		return out, errs
	}
	return out, nil
}

// Validate reports whether values satisfy the descriptor after coercion.
func (d *Descriptor) Validate(values map[string]any) error {
	_, err := d.Coerce(values)
	return err
}

func coerceValue(f Field, v any) (any, error) {
	switch f.Kind {
	case KindText:
		return toText(v)
	case KindInteger:
		return toInteger(v)
	case KindFloat:
		return toFloat(v)
	case KindFlag:
		return toFlag(v)
	case KindSequence:
		return toSequence(v)
	case KindRecord:
		rec, err := toRecord(v)
		if err != nil || f.Nested == nil {
			return rec, err
		}
		return f.Nested.Coerce(rec)
	default:
		return v, nil
	}
}

func toText(v any) (any, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case fmt.Stringer:
		return t.String(), nil
	case bool:
		return strconv.FormatBool(t), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", t), nil
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	default:
		return nil, fmt.Errorf("expected type string, got %T", v)
	}
}

func toInteger(v any) (any, error) {
	switch t := v.(type) {
	case int:
		return t, nil
	case int8, int16, int32, int64:
		return int(reflect.ValueOf(t).Int()), nil
	case uint, uint8, uint16, uint32, uint64:
		u := reflect.ValueOf(t).Uint()
		if u > math.MaxInt64 {
			return nil, fmt.Errorf("expected type integer, got out of range %d", u)
		}
		return int(u), nil
	case float32:
		return integralFloat(float64(t))
	case float64:
		return integralFloat(t)
	case json.Number:
		i, err := t.Int64()
		if err != nil {
			return nil, fmt.Errorf("expected type integer, got %q", t.String())
		}
		return int(i), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return nil, fmt.Errorf("expected type integer, got %q", t)
		}
		return i, nil
	default:
		return nil, fmt.Errorf("expected type integer, got %T", v)
	}
}

func integralFloat(f float64) (any, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, fmt.Errorf("expected type integer, got fractional %v", f)
	}
	if f < -(1<<63) || f >= 1<<63 {
		return nil, fmt.Errorf("expected type integer, got out of range %v", f)
	}
	return int(int64(f)), nil
}

func toFloat(v any) (any, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return reflect.ValueOf(t).Convert(reflect.TypeOf(float64(0))).Float(), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("expected type number, got %q", t.String())
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil, fmt.Errorf("expected type number, got %q", t)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("expected type number, got %T", v)
	}
}

func toFlag(v any) (any, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return nil, fmt.Errorf("expected type boolean, got %q", t)
		}
		return b, nil
	case int:
		if t == 0 || t == 1 {
			return t == 1, nil
		}
	case float64:
		if t == 0 || t == 1 {
			return t == 1, nil
		}
	}
	return nil, fmt.Errorf("expected type boolean, got %T", v)
}

func toSequence(v any) (any, error) {
	switch t := v.(type) {
	case []any:
		return t, nil
	case string:
		s := strings.TrimSpace(t)
		if strings.HasPrefix(s, "[") {
			var out []any
			if err := json.Unmarshal([]byte(s), &out); err == nil {
				return out, nil
			}
		}
		return []any{t}, nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out, nil
	}
	if rv.Kind() == reflect.Map || rv.Kind() == reflect.Struct {
		return nil, fmt.Errorf("expected type array, got %T", v)
	}

	return []any{v}, nil
}

func toRecord(v any) (map[string]any, error) {
	switch t := v.(type) {
	case map[string]any:
		return t, nil
	case string:
		var out map[string]any
		if err := json.Unmarshal([]byte(strings.TrimSpace(t)), &out); err != nil {
			return nil, fmt.Errorf("expected type object, got string")
		}
		return out, nil
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map, reflect.Struct:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("expected type object, got %T", v)
		}
		var out map[string]any
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("expected type object, got %T", v)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected type object, got %T", v)
	}
}
