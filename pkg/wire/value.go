package wire

import (
	"fmt"
	"time"

	"github.com/paramtree/paramtree-go/pkg/model"
)

// Value is a parameter value on the wire.
//
// CBOR encoding:
//
//	{
//	  1: path,    // string
//	  2: type,    // string: TR-106 type name, omitted in requests
//	  3: value    // native CBOR value; dateTime as RFC 3339 text
//	}
type Value struct {
	Path  string `cbor:"1,keyasint"`
	Type  string `cbor:"2,keyasint,omitempty"`
	Value any    `cbor:"3,keyasint"`
}

// FromModel converts a model value for the wire.
func FromModel(pv model.ParameterValue) Value {
	v := Value{Path: pv.Path, Value: pv.Value}
	if pv.Type != model.DataTypeUnknown {
		v.Type = pv.Type.String()
	}
	if t, ok := pv.Value.(time.Time); ok {
		v.Value = t.UTC().Format(time.RFC3339Nano)
	}
	return v
}

// FromModelValues converts a list of model values for the wire.
func FromModelValues(pvs []model.ParameterValue) []Value {
	out := make([]Value, len(pvs))
	for i, pv := range pvs {
		out[i] = FromModel(pv)
	}
	return out
}

// ToModel converts a wire value back. A value with a type is coerced to
// that type's canonical Go form; an untyped value is passed through for
// the tree to coerce against the parameter's definition.
func (v Value) ToModel() (model.ParameterValue, error) {
	pv := model.ParameterValue{Path: v.Path, Value: v.Value}
	if v.Type == "" {
		return pv, nil
	}
	typ, err := model.ParseDataType(v.Type)
	if err != nil {
		return pv, fmt.Errorf("%s: %w", v.Path, model.ErrInvalidType)
	}
	val, err := typ.Coerce(v.Value)
	if err != nil {
		return pv, fmt.Errorf("%s: %w", v.Path, err)
	}
	pv.Type = typ
	pv.Value = val
	return pv, nil
}

// ToModelValues converts a list of wire values back, stopping at the first
// failure.
func ToModelValues(vs []Value) ([]model.ParameterValue, error) {
	out := make([]model.ParameterValue, len(vs))
	for i, v := range vs {
		pv, err := v.ToModel()
		if err != nil {
			return nil, err
		}
		out[i] = pv
	}
	return out, nil
}
