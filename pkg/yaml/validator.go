package yaml

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/trigg3rX/cipherwork/pkg/env"
)

// Validator checks `validate:"..."` struct tags on configuration structs.
// Supported rules: required, eth_address, min=N (numbers and slice lengths).
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// ValidateConfig validates a configuration struct
func (v *Validator) ValidateConfig(config interface{}) error {
	configValue := reflect.ValueOf(config)
	if configValue.Kind() == reflect.Ptr {
		configValue = configValue.Elem()
	}
	if configValue.Kind() != reflect.Struct {
		return fmt.Errorf("config must be a struct")
	}
	return v.validateStruct(configValue)
}

func (v *Validator) validateStruct(structValue reflect.Value) error {
	structType := structValue.Type()

	for i := 0; i < structValue.NumField(); i++ {
		field := structValue.Field(i)
		fieldType := structType.Field(i)
		if !field.CanInterface() {
			continue
		}

		if tag := fieldType.Tag.Get("validate"); tag != "" {
			for _, rule := range strings.Split(tag, ",") {
				if err := v.applyRule(field, strings.TrimSpace(rule)); err != nil {
					return fmt.Errorf("field %s: %w", fieldType.Name, err)
				}
			}
		}

		if field.Kind() == reflect.Struct {
			if err := v.validateStruct(field); err != nil {
				return fmt.Errorf("%s.%w", fieldType.Name, err)
			}
		}
	}
	return nil
}

func (v *Validator) applyRule(field reflect.Value, rule string) error {
	name, arg, _ := strings.Cut(rule, "=")
	switch name {
	case "required":
		if field.IsZero() {
			return fmt.Errorf("is required")
		}
	case "eth_address":
		return v.validateEthAddress(field)
	case "min":
		return v.validateMin(field, arg)
	default:
		return fmt.Errorf("unknown validation rule %q", name)
	}
	return nil
}

func (v *Validator) validateEthAddress(field reflect.Value) error {
	switch field.Kind() {
	case reflect.String:
		if !env.IsValidEthAddress(field.String()) {
			return fmt.Errorf("invalid ethereum address %q", field.String())
		}
	case reflect.Slice:
		for i := 0; i < field.Len(); i++ {
			if err := v.validateEthAddress(field.Index(i)); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
	default:
		return fmt.Errorf("eth_address applies to strings only")
	}
	return nil
}

func (v *Validator) validateMin(field reflect.Value, minValue string) error {
	limit, err := strconv.ParseInt(minValue, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid min value %q", minValue)
	}

	switch field.Kind() {
	case reflect.Slice, reflect.Map, reflect.String:
		if int64(field.Len()) < limit {
			return fmt.Errorf("length %d is below minimum %d", field.Len(), limit)
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Int() < limit {
			return fmt.Errorf("value %d is below minimum %d", field.Int(), limit)
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if limit > 0 && field.Uint() < uint64(limit) {
			return fmt.Errorf("value %d is below minimum %d", field.Uint(), limit)
		}
	default:
		return fmt.Errorf("min does not apply to %s", field.Kind())
	}
	return nil
}
