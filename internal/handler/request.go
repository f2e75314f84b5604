package handler

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/sakif/conduit/internal/apperror"
)

// validate is shared by every payload. Struct tags are checked here; rules
// that need the store (uniqueness, ownership) live in the services.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report the JSON name ("tagList") instead of the Go field name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// errMalformedBody marks a body that is not JSON of the expected shape.
var errMalformedBody = errors.New("malformed request body")

// decode reads a JSON body into v and runs its validation tags.
// A malformed body wraps errMalformedBody; a tag failure is returned as
// an apperror validation error naming the first offending field.
func decode(r *http.Request, v any) error {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return apperror.ValidationFailed(fe.Field(), validationMessage(fe))
		}
		return apperror.ValidationFailed("body", "is invalid")
	}
	return nil
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "can't be blank"
	case "email":
		return "is invalid"
	case "min":
		return "is too short (minimum is " + fe.Param() + " characters)"
	case "max":
		return "is too long (maximum is " + fe.Param() + " characters)"
	default:
		return "is invalid"
	}
}

// Request payloads. Each mirrors the Conduit envelope: the fields sit under
// a single "user", "article" or "comment" key.

type signupRequest struct {
	User struct {
		Username string `json:"username" validate:"required"`
		Email    string `json:"email"    validate:"required,email"`
		Password string `json:"password" validate:"required,min=8,max=72"`
	} `json:"user"`
}

type loginRequest struct {
	User struct {
		Email    string `json:"email"    validate:"required"`
		Password string `json:"password" validate:"required"`
	} `json:"user"`
}

// updateUserRequest uses pointers so an absent key leaves the field alone.
type updateUserRequest struct {
	User struct {
		Email    *string `json:"email"    validate:"omitnil,email"`
		Username *string `json:"username" validate:"omitnil,min=1"`
		Password *string `json:"password" validate:"omitnil,min=8,max=72"`
		Bio      *string `json:"bio"`
		Image    *string `json:"image"`
	} `json:"user"`
}

type createArticleRequest struct {
	Article struct {
		Title       string   `json:"title"       validate:"required"`
		Description string   `json:"description" validate:"required"`
		Body        string   `json:"body"        validate:"required"`
		TagList     []string `json:"tagList"`
	} `json:"article"`
}

type updateArticleRequest struct {
	Article struct {
		Title       *string   `json:"title"       validate:"omitnil,min=1"`
		Description *string   `json:"description"`
		Body        *string   `json:"body"`
		TagList     *[]string `json:"tagList"`
	} `json:"article"`
}

type commentRequest struct {
	Comment struct {
		Body string `json:"body" validate:"required"`
	} `json:"comment"`
}
