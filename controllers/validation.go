package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const unknownFieldPrefix = "json: unknown field "

// bindStrict decodes the JSON body into obj, rejecting any field the request
// type does not declare, then runs the binding validator.
func bindStrict(ctx *gin.Context, obj interface{}) error {
	if ctx.Request.Body == nil || ctx.Request.Body == http.NoBody {
		return errors.New("empty request body")
	}
	dec := json.NewDecoder(ctx.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(obj); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON body")
	}
	return binding.Validator.ValidateStruct(obj)
}

// bindingMessage turns the first validation failure into a message the
// storefront can show, e.g. "Customer.Email must be a valid email".
func bindingMessage(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	if msg := err.Error(); strings.HasPrefix(msg, unknownFieldPrefix) {
		return "Unknown field " + strings.TrimPrefix(msg, unknownFieldPrefix)
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return fallback
	}

	fe := ve[0]
	// Drop the request type from "CreateOrderRequest.Customer.Email".
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte", "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be %s characters long", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
