// Package utils contains configuration decoding, validation errors and small shared helpers.
package utils

import (
	"os"
	"reflect"
	"sort"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"github.com/yosuke-furukawa/json5/encoding/json5"
)

// AttributeMap is a loosely typed JSON object that is decoded into a typed config later.
type AttributeMap map[string]interface{}

// Has reports whether the map contains the given key.
func (am AttributeMap) Has(name string) bool {
	_, has := am[name]
	return has
}

// String returns the string stored at name, or "" when absent.
func (am AttributeMap) String(name string) (string, error) {
	x, has := am[name]
	if !has || x == nil {
		return "", nil
	}
	s, ok := x.(string)
	if !ok {
		return "", errors.Wrapf(NewUnexpectedTypeError(s, x), "attribute %q", name)
	}
	return s, nil
}

// Float64 returns the number stored at name, or def when absent.
func (am AttributeMap) Float64(name string, def float64) (float64, error) {
	x, has := am[name]
	if !has {
		return def, nil
	}
	switch v := x.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	}
	return def, errors.Wrapf(NewUnexpectedTypeError(def, x), "attribute %q", name)
}

// ReadAttributeMapFile decodes a JSON object from a file into an AttributeMap. The file may use
// JSON5 comments and trailing commas.
func ReadAttributeMapFile(path string) (AttributeMap, error) {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var attrs AttributeMap
	if err := json5.Unmarshal(data, &attrs); err != nil {
		return nil, errors.Wrapf(err, "error parsing config file %q", path)
	}
	return attrs, nil
}

// TransformAttributeMap uses an attribute map to transform attributes to the prescribed format.
// Keys are matched against `json` struct tags; unknown keys are rejected.
func TransformAttributeMap[T any](attributes AttributeMap) (T, error) {
	var out T

	var forResult interface{}

	toT := reflect.TypeOf(out)
	if toT == nil {
		// nothing to transform
		return out, nil
	}
	if toT.Kind() == reflect.Ptr {
		// needs to be allocated then
		var ok bool
		out, ok = reflect.New(toT.Elem()).Interface().(T)
		if !ok {
			return out, errors.Errorf("failed to allocate default config type %T", out)
		}
		forResult = out
	} else {
		forResult = &out
	}

	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           forResult,
		Metadata:         &md,
		WeaklyTypedInput: true,
		Squash:           true,
	})
	if err != nil {
		return out, err
	}
	if err := decoder.Decode(map[string]interface{}(attributes)); err != nil {
		return out, err
	}
	if len(md.Unused) != 0 {
		sort.Strings(md.Unused)
		return out, errors.Errorf("unknown attributes for %T: %v", out, md.Unused)
	}
	return out, nil
}
