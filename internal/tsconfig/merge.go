package tsconfig

import "reflect"

// Merge combines a child configuration with its base, field by field: any
// field the child sets wins, any field it leaves unset (nil pointer, nil
// slice, nil map) is taken from base. Pointers to structs that are set on
// both sides are merged recursively, so "compilerOptions" is combined option
// by option rather than replaced wholesale.
//
// The combinator is driven by reflection so new fields only need a struct
// tag; the inputs are never modified.
func Merge[T any](child, base *T) *T {
	switch {
	case child == nil && base == nil:
		return nil
	case child == nil:
		out := *base
		return &out
	case base == nil:
		out := *child
		return &out
	}

	out := *child
	mergeStruct(reflect.ValueOf(&out).Elem(), reflect.ValueOf(base).Elem())
	return &out
}

func mergeStruct(dst, base reflect.Value) {
	for i := 0; i < dst.NumField(); i++ {
		field := dst.Field(i)
		if !field.CanSet() {
			continue
		}
		inherited := base.Field(i)

		if field.IsZero() {
			field.Set(inherited)
			continue
		}

		if field.Kind() == reflect.Pointer && field.Elem().Kind() == reflect.Struct && !inherited.IsNil() {
			merged := reflect.New(field.Elem().Type())
			merged.Elem().Set(field.Elem())
			mergeStruct(merged.Elem(), inherited.Elem())
			field.Set(merged)
		}
	}
}
