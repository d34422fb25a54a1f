package web

import (
	"reflect"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	"github.com/trezcool/schoolhub/core"
)

// bind decodes the posted form into dst, a pointer to a struct with form tags.
// Blank values are left out so that optional numbers stay nil.
func bind(ctx echo.Context, dst interface{}) error {
	params, err := ctx.FormParams()
	if err != nil {
		return errors.Wrap(err, "parsing form")
	}

	input := make(map[string]interface{}, len(params))
	for key, vals := range params {
		if len(vals) == 0 {
			continue
		}
		if v := strings.TrimSpace(vals[len(vals)-1]); v != "" {
			input[key] = v
		}
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "form",
		WeaklyTypedInput: true,
		DecodeHook:       checkboxHook,
		Result:           dst,
	})
	if err != nil {
		return errors.Wrap(err, "creating form decoder")
	}
	if err := dec.Decode(input); err != nil {
		return core.NewValidationError(errors.New("some fields have an invalid value"))
	}
	return nil
}

// checkboxHook maps the "on" value of checked checkboxes to true.
func checkboxHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() == reflect.String && to.Kind() == reflect.Bool && data == "on" {
		return true, nil
	}
	return data, nil
}
