package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/awantoch/n8n-mcp/utils"
)

var argValidator = newArgValidator()

func newArgValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// workflowNode is the minimum a node needs for n8n to accept it. Other node
// fields are passed through untouched.
type workflowNode struct {
	ID       string    `json:"id" validate:"required"`
	Name     string    `json:"name" validate:"required"`
	Type     string    `json:"type" validate:"required"`
	Position []float64 `json:"position" validate:"len=2"`
}

type createWorkflowArgs struct {
	Name  string         `json:"name" validate:"required"`
	Nodes []workflowNode `json:"nodes" validate:"required,min=1,dive"`
}

type updateNodesArgs struct {
	Nodes []workflowNode `json:"nodes" validate:"dive"`
}

// bind decodes args into dst and checks its validate tags.
func bind(op string, args map[string]any, dst any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return invalid(op, "", err.Error())
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return invalid(op, typeErr.Field, "must be "+typeErr.Type.String())
		}
		return invalid(op, "", err.Error())
	}
	if err := argValidator.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return invalid(op, fieldPath(fe.Namespace()), describe(fe))
		}
		return invalid(op, "", err.Error())
	}
	return nil
}

// fieldPath drops the struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must have at least %s item(s)", fe.Param())
	case "len":
		return fmt.Sprintf("must have exactly %s elements", fe.Param())
	default:
		return fmt.Sprintf("failed %s check", fe.Tag())
	}
}

func stringArg(args map[string]any, key string) string {
	s, _ := utils.SafeStringAssert(args[key])
	return strings.TrimSpace(s)
}

func requireString(op string, args map[string]any, key string) (string, error) {
	s := stringArg(args, key)
	if s == "" {
		return "", invalid(op, key, "is required")
	}
	return s, nil
}

// intArg returns a positive integer argument or def.
func intArg(args map[string]any, key string, def int) int {
	if n, ok := utils.SafeIntAssert(args[key]); ok && n > 0 {
		return n
	}
	return def
}

// objectArg returns an object argument, or an empty object when absent.
func objectArg(args map[string]any, key string) map[string]any {
	if m, ok := utils.SafeMapAssert(args[key]); ok && m != nil {
		return m
	}
	return map[string]any{}
}
