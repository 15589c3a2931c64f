package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/yigit/credittransfer/internal/app/models"
)

// RegisterValidators adds the status validation tags to gin's validator
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}

	if err := v.RegisterValidation("item_status", func(fl validator.FieldLevel) bool {
		_, err := models.ParseItemStatus(fl.Field().String())
		return err == nil
	}); err != nil {
		return fmt.Errorf("failed to register item_status: %w", err)
	}

	if err := v.RegisterValidation("request_status", func(fl validator.FieldLevel) bool {
		_, err := models.ParseRequestStatus(fl.Field().String())
		return err == nil
	}); err != nil {
		return fmt.Errorf("failed to register request_status: %w", err)
	}

	return nil
}
