package validator

import (
	"errors"
	"fmt"
	"meetproof/pkg/logger"
	"meetproof/pkg/model"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type VerificationValidator struct {
	validate   *validator.Validate
	codeRegex  *regexp.Regexp
	codeLength int
	logger     *logger.Logger
}

// NewVerificationValidator builds the submission validator. The one-time code
// format is derived from the configured code length.
func NewVerificationValidator(log *logger.Logger, codeLength int) *VerificationValidator {
	codeRegex := regexp.MustCompile(fmt.Sprintf(`^\d{%d}$`, codeLength))

	v := validator.New()
	if err := v.RegisterValidation("otp_code", func(fl validator.FieldLevel) bool {
		return codeRegex.MatchString(fl.Field().String())
	}); err != nil {
		log.Fatal("Failed to register 'otp_code' validator",
			"error", err,
		)
	}

	log.Info("Verification validator initialized successfully", "code_length", codeLength)

	return &VerificationValidator{
		validate:   v,
		codeRegex:  codeRegex,
		codeLength: codeLength,
		logger:     log,
	}
}

func (v *VerificationValidator) ValidateSubmission(sub *model.CodeSubmission) error {
	if err := v.validate.Struct(sub); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	return nil
}

func (v *VerificationValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid MongoDB ObjectID", err.Field())
		case "otp_code":
			message = fmt.Sprintf("%s must be exactly %d digits", err.Field(), v.codeLength)
		case "latitude":
			message = fmt.Sprintf("%s must be a valid latitude between -90 and 90", err.Field())
		case "longitude":
			message = fmt.Sprintf("%s must be a valid longitude between -180 and 180", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
