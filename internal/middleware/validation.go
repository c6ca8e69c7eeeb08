package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"

	"interviewprep/ai/internal/models"
	"interviewprep/ai/internal/utils"
)

// MaxBodyBytes caps request bodies. One dialogue turn is far below this.
const MaxBodyBytes = 1 << 20

type contextKey string

const validatedRequestKey contextKey = "validated_request"

// request models implement this interface; Validate may also normalise fields in place
type Validator interface {
	Validate() error
}

// ValidateRequest decodes the JSON body into a fresh T, runs its Validate method and hands the
// result to the next handler through the request context. Handlers behind it can read the
// request with GetValidatedRequest and assume it is valid.
func ValidateRequest[T Validator]() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req := newRequest[T]()

			decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
			decoder.DisallowUnknownFields()
			if err := decoder.Decode(req); err != nil {
				writeDecodeError(w, err)
				return
			}

			if err := req.Validate(); err != nil {
				var errResp *models.ErrorResponse
				if errors.As(err, &errResp) {
					utils.JSON(w, http.StatusBadRequest, *errResp)
				} else {
					utils.JSON(w, http.StatusBadRequest, models.ErrorResponse{
						Code:    "validation_error",
						Message: err.Error(),
					})
				}
				return
			}

			ctx := context.WithValue(r.Context(), validatedRequestKey, req)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// newRequest allocates the value T points to, so pointer request types decode into real memory
func newRequest[T Validator]() T {
	var req T
	reqType := reflect.TypeOf(req)
	if reqType.Kind() == reflect.Ptr {
		return reflect.New(reqType.Elem()).Interface().(T)
	}
	return reflect.New(reqType).Elem().Interface().(T)
}

func writeDecodeError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		utils.JSON(w, http.StatusRequestEntityTooLarge, models.ErrorResponse{
			Code:    "body_too_large",
			Message: "Request body is too large",
		})
		return
	}
	utils.JSON(w, http.StatusBadRequest, models.ErrorResponse{
		Code:    "invalid_json",
		Message: "Invalid JSON in request body: " + err.Error(),
	})
}

// GetValidatedRequest retrieves the validated request from context. It panics when the route
// is not behind ValidateRequest[T], which is a wiring bug.
func GetValidatedRequest[T any](r *http.Request) T {
	return r.Context().Value(validatedRequestKey).(T)
}
