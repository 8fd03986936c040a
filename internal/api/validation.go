package api

import (
	"fmt"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/lalith-99/slotbook/internal/models"
	"github.com/lalith-99/slotbook/internal/timezone"
)

// RegisterValidators adds the custom binding tags used by request structs:
//
//	timezone   an IANA zone name
//	clocktime  a strict HH:mm:ss time of day
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}
	if err := v.RegisterValidation("timezone", func(fl validator.FieldLevel) bool {
		return timezone.IsValid(fl.Field().String())
	}); err != nil {
		return fmt.Errorf("register timezone validator: %w", err)
	}
	if err := v.RegisterValidation("clocktime", func(fl validator.FieldLevel) bool {
		_, err := models.ParseClockTime(fl.Field().String())
		return err == nil
	}); err != nil {
		return fmt.Errorf("register clocktime validator: %w", err)
	}
	return nil
}
