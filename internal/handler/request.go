package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/fragmenthub/internal/apperror"
	"github.com/sakif/fragmenthub/internal/auth"
	"github.com/sakif/fragmenthub/internal/model"
)

// maxBodyBytes caps request bodies. The largest legitimate body is a fragment
// at the content limit plus its metadata.
const maxBodyBytes = 1 << 20

// validate checks request DTOs against their `validate` struct tags.
//
// A *validator.Validate caches struct metadata and is safe for concurrent
// use, so the package shares one instance.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// report the JSON name ("is_public"), not the Go name ("IsPublic")
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// decodeJSON reads the body into dst and validates it.
//
// Unknown fields are ignored. A body that is not JSON at all, or whose types
// do not match dst, is a 400.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperror.BadRequest("request body is too large")
		}
		return apperror.BadRequest("invalid JSON body")
	}
	return validateStruct(dst)
}

// validateStruct turns the first validator failure into a field-level
// validation error.
func validateStruct(dst any) error {
	err := validate.Struct(dst)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("handler: validating request: %w", err)
	}
	fe := fieldErrs[0]
	return apperror.ValidationFailed(fe.Field(), fieldMessage(fe))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be %s characters or less", fe.Field(), fe.Param())
	default:
		return fe.Field() + " is invalid"
	}
}

// queryInt parses an optional integer query parameter; absent means 0.
func queryInt(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.ValidationFailed(name, name+" must be an integer")
	}
	return n, nil
}

// queryBool parses an optional boolean query parameter; absent means false.
func queryBool(r *http.Request, name string) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, apperror.ValidationFailed(name, name+" must be true or false")
	}
	return b, nil
}

// currentUser returns the authenticated caller. Routes behind RequireAuth
// always have one; anywhere else anonymous callers get a 401.
func currentUser(r *http.Request) (*model.User, error) {
	user, ok := auth.IdentityFromContext(r.Context()).User()
	if !ok {
		return nil, apperror.Unauthorized("not authenticated")
	}
	return user, nil
}

// clientIP returns the caller's address without the port. chi's RealIP
// middleware has already replaced RemoteAddr with the forwarded address when
// the request came through a proxy.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
