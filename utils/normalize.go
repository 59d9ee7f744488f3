package utils

import (
	"reflect"
	"strings"
)

// TrimStrings trims string and *string fields of a pointer-to-struct DTO in
// place. Nil pointers stay nil.
func TrimStrings(dto any) {
	v := reflect.ValueOf(dto)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return
	}
	s := v.Elem()
	if s.Kind() != reflect.Struct {
		return
	}
	for i := 0; i < s.NumField(); i++ {
		f := s.Field(i)
		if !f.CanSet() {
			continue
		}
		if f.Kind() == reflect.Ptr {
			if f.IsNil() {
				continue
			}
			f = f.Elem()
		}
		if f.Kind() == reflect.String {
			f.SetString(strings.TrimSpace(f.String()))
		}
	}
}
