// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

package moodle

import (
	"fmt"
	"net/url"
	"reflect"
	"strconv"
)

// EncodeParams flattens nested parameters into Moodle's bracketed key form:
//
//	{"courses": [{"fullname": "Test"}]}  ->  courses[0][fullname]=Test
//
// Maps with string keys nest as key[sub], slices and arrays as key[i].
// Booleans encode as "1"/"0" and nil as the empty string.
func EncodeParams(params map[string]any) url.Values {
	out := url.Values{}
	for key, value := range params {
		encodeValue(out, key, reflect.ValueOf(value))
	}
	return out
}

// EncodeArrayParam encodes values as name[0], name[1], ...
func EncodeArrayParam[T any](values []T, name string) url.Values {
	out := url.Values{}
	for i, v := range values {
		encodeValue(out, fmt.Sprintf("%s[%d]", name, i), reflect.ValueOf(v))
	}
	return out
}

func encodeValue(out url.Values, prefix string, v reflect.Value) {
	if !v.IsValid() {
		out.Set(prefix, "")
		return
	}

	switch v.Kind() {
	case reflect.Interface, reflect.Pointer:
		if v.IsNil() {
			out.Set(prefix, "")
			return
		}
		encodeValue(out, prefix, v.Elem())

	case reflect.Map:
		if v.IsNil() {
			return
		}
		iter := v.MapRange()
		for iter.Next() {
			encodeValue(out, prefix+"["+scalarString(iter.Key())+"]", iter.Value())
		}

	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8 {
			out.Set(prefix, string(v.Bytes()))
			return
		}
		for i := 0; i < v.Len(); i++ {
			encodeValue(out, prefix+"["+strconv.Itoa(i)+"]", v.Index(i))
		}

	default:
		out.Set(prefix, scalarString(v))
	}
}

func scalarString(v reflect.Value) string {
	switch v.Kind() {
	case reflect.Bool:
		if v.Bool() {
			return "1"
		}
		return "0"
	case reflect.String:
		return v.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10)
	case reflect.Float32:
		return strconv.FormatFloat(v.Float(), 'f', -1, 32)
	case reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64)
	case reflect.Interface, reflect.Pointer:
		if v.IsNil() {
			return ""
		}
		return scalarString(v.Elem())
	default:
		if v.CanInterface() {
			return fmt.Sprint(v.Interface())
		}
		return ""
	}
}
