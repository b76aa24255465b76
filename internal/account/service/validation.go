package service

import (
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/AlibekovAA/book-exchange/backend/internal/account/domain"
	"github.com/AlibekovAA/book-exchange/backend/internal/common/constants"
	commonerrors "github.com/AlibekovAA/book-exchange/backend/internal/common/errors"
)

var validate = validator.New()

var mobileRule = "len=" + strconv.Itoa(constants.PhoneDigits) + ",number"

func validateRegistration(input RegisterInput) (domain.Role, error) {
	if input.Name == "" || input.Email == "" || input.Password == "" || input.Role == "" {
		return "", commonerrors.ErrMissingFields
	}
	if err := validateEmail(input.Email); err != nil {
		return "", err
	}
	if input.Mobile != "" {
		if err := validate.Var(input.Mobile, mobileRule); err != nil {
			return "", ErrInvalidMobile
		}
	}
	role, ok := domain.ParseRole(input.Role)
	if !ok {
		return "", ErrInvalidRole
	}
	return role, nil
}

func validateEmail(email string) error {
	if err := validate.Var(email, "required,email"); err != nil {
		return ErrInvalidEmail
	}
	return nil
}
