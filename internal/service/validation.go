package service

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/rollcall-ledger/internal/models"
)

func registerValidators(v *validator.Validate) {
	v.RegisterValidation("attendance_status", func(fl validator.FieldLevel) bool {
		_, ok := models.ParseAttendanceStatus(fl.Field().String())
		return ok
	})
	v.RegisterValidation("student_status", func(fl validator.FieldLevel) bool {
		status := models.StudentStatus(strings.ToLower(strings.TrimSpace(fl.Field().String())))
		return status.Valid()
	})
}
