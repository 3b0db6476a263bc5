package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/apperr"
	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/respond"
)

const maxJSONBody = 1 << 20

var (
	errUnauthenticated = apperr.Unauthorized("unauthorized request")
	errInvalidBody     = apperr.Validation("invalid request body")
)

// handlerFunc is an HTTP handler that reports failures by returning them.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// handle adapts fn to http.HandlerFunc and writes returned errors as envelopes.
func handle(fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			respond.Error(r.Context(), w, err)
		}
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name, _, _ := strings.Cut(field.Tag.Get(tag), ",")
			if name != "" && name != "-" {
				return name
			}
		}
		return field.Name
	})
	return v
}

// validateStruct runs the validate tags of dst and reports the first failure
// as a validation error.
func validateStruct(dst any) error {
	err := validate.Struct(dst)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperr.Wrap(err, apperr.KindValidation, "invalid request")
	}

	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return apperr.Validation(fmt.Sprintf("%s is required", fe.Field()))
	case "min":
		return apperr.Validation(fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param()))
	case "max":
		return apperr.Validation(fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
	case "email":
		return apperr.Validation(fmt.Sprintf("%s must be a valid email address", fe.Field()))
	case "uuid", "uuid4":
		return apperr.Validation(fmt.Sprintf("%s must be a valid id", fe.Field()))
	case "unique":
		return apperr.Validation(fmt.Sprintf("%s must not contain duplicates", fe.Field()))
	default:
		return apperr.Validation(fmt.Sprintf("%s is invalid", fe.Field()))
	}
}

// normalizer is implemented by request bodies that trim or case-fold their
// fields before validation.
type normalizer interface {
	normalize()
}

// decodeJSON reads a JSON body into dst, normalizes it and validates it.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody)).Decode(dst); err != nil {
		return apperr.Wrap(err, apperr.KindValidation, errInvalidBody.Message)
	}
	return check(dst)
}

// check normalizes and validates a request body built by hand, such as one
// read from a multipart form.
func check(dst any) error {
	if n, ok := dst.(normalizer); ok {
		n.normalize()
	}
	return validateStruct(dst)
}

// pathID reads a chi URL parameter that must be a UUID.
func pathID(r *http.Request, name string) (string, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", apperr.Validation(fmt.Sprintf("invalid %s", name))
	}
	return id.String(), nil
}

// currentAccount returns the account attached by the session middleware.
func currentAccount(r *http.Request) (models.Account, error) {
	account, ok := auth.AccountFromContext(r.Context())
	if !ok {
		return models.Account{}, errUnauthenticated
	}
	return account, nil
}

// viewerID returns the authenticated account ID or "" for anonymous callers.
func viewerID(r *http.Request) string {
	account, _ := auth.AccountFromContext(r.Context())
	return account.ID
}
