package n8n

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Object is a loosely-typed n8n resource. n8n's representations vary across
// versions, so fields are read on demand rather than decoded into structs.
type Object map[string]any

// Workflow is an n8n workflow document.
type Workflow = Object

// ReadOnlyWorkflowFields are rejected by PUT /workflows/{id}.
var ReadOnlyWorkflowFields = []string{
	"createdAt", "updatedAt", "id", "active", "isArchived", "versionId",
	"triggerCount", "shared", "tags", "staticData", "meta", "pinData",
}

// ID returns the resource id, accepting string or numeric encodings.
func (o Object) ID() string {
	return stringify(o["id"])
}

func (o Object) Name() string {
	s, _ := o["name"].(string)
	return s
}

// Active reports the workflow state field. ok is false when the field is
// missing or not a boolean.
func (o Object) Active() (active bool, ok bool) {
	active, ok = o["active"].(bool)
	return active, ok
}

// Clone returns a shallow copy.
func (o Object) Clone() Object {
	out := make(Object, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

// Without returns a shallow copy lacking the named fields.
func (o Object) Without(fields ...string) Object {
	out := o.Clone()
	for _, f := range fields {
		delete(out, f)
	}
	return out
}

// NodeType is one entry of the node catalog served at /types/nodes.json.
type NodeType = Object

// Groups returns the node's group list.
func (o Object) Groups() []string {
	raw, _ := o["group"].([]any)
	out := make([]string, 0, len(raw))
	for _, g := range raw {
		if s, ok := g.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
