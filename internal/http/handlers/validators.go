package handlers

import (
	"strconv"

	"github.com/geocoder89/todohub/internal/security"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// gin validates binding tags with its own validator instance; custom rules
// are registered on that engine once at package init.
func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
			return security.IsStrongPassword(fl.Field().String())
		})
		// max counts runes; bcrypt limits bytes
		_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
			n, err := strconv.Atoi(fl.Param())
			return err == nil && len(fl.Field().String()) <= n
		})
	}
}
