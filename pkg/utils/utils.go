package utils

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// IsEmpty checks if a string is empty.
func IsEmpty(s string) bool {
	return s == ""
}

// ParseStructEnv binds env vars to struct fields using a mapstructure tag
func ParseStructEnv(cfg interface{}) error {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if err := viper.BindEnv(tag); err != nil {
			return err
		}
	}
	return viper.Unmarshal(cfg)
}

// FormatConfigErrors turns validator failures into one readable error naming the
// offending env vars, so a misconfigured deployment fails fast with actionable output.
func FormatConfigErrors(logger *zap.Logger, err error, cfg interface{}) error {
	var verrs validator.ValidationErrors
	ok := false
	if e, isVErrs := err.(validator.ValidationErrors); isVErrs {
		verrs, ok = e, true
	}
	if !ok {
		return err
	}

	t := reflect.TypeOf(cfg)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		envName := fe.Field()
		if field, found := t.FieldByName(fe.Field()); found {
			if tag := field.Tag.Get("mapstructure"); !IsEmpty(tag) {
				envName = tag
			}
		}
		missing = append(missing, fmt.Sprintf("%s (%s)", envName, fe.Tag()))
		logger.Error("invalid configuration value",
			zap.String("field", envName),
			zap.String("constraint", fe.Tag()),
		)
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(missing, ", "))
}
