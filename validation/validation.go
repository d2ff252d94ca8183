package validation

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	crudErrors "github.com/qolzam/telar/apps/crud/errors"
)

// RuleGroup selects the constraints and fields that apply to one operation
type RuleGroup string

const (
	Create        RuleGroup = "create"
	Update        RuleGroup = "update"
	PartialUpdate RuleGroup = "partial_update"
	Read          RuleGroup = "read"
)

// Validator checks a payload under a rule-group. An empty result means the payload is valid.
type Validator interface {
	Validate(ctx context.Context, payload interface{}, group RuleGroup) ([]crudErrors.Violation, error)
}

// Func adapts a function into a Validator
type Func func(ctx context.Context, payload interface{}, group RuleGroup) ([]crudErrors.Violation, error)

func (f Func) Validate(ctx context.Context, payload interface{}, group RuleGroup) ([]crudErrors.Violation, error) {
	return f(ctx, payload, group)
}

// StructValidator reads constraints from the struct tag named after the rule-group:
//
//	Name string `json:"name" create:"required,min=2" partial_update:"omitempty,min=2"`
//
// Partial updates decode only the fields present in the request, so their rules should use omitempty.
// Violations are reported under json field names, nested structs as children.
type StructValidator struct {
	mu         sync.Mutex
	validators map[RuleGroup]*validator.Validate
}

// NewStructValidator creates a validator with one validator.Validate per rule-group
func NewStructValidator() *StructValidator {
	return &StructValidator{validators: make(map[RuleGroup]*validator.Validate)}
}

func (s *StructValidator) forGroup(group RuleGroup) *validator.Validate {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.validators[group]
	if !ok {
		v = validator.New()
		v.SetTagName(string(group))
		v.RegisterTagNameFunc(jsonName)
		s.validators[group] = v
	}
	return v
}

// RegisterValidation adds a custom constraint tag to every rule-group
func (s *StructValidator) RegisterValidation(tag string, fn validator.Func, groups ...RuleGroup) error {
	if len(groups) == 0 {
		groups = []RuleGroup{Create, Update, PartialUpdate, Read}
	}
	for _, g := range groups {
		if err := s.forGroup(g).RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

func jsonName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}

// Validate checks payload, a struct or pointer to struct
func (s *StructValidator) Validate(ctx context.Context, payload interface{}, group RuleGroup) ([]crudErrors.Violation, error) {
	err := s.forGroup(group).StructCtx(ctx, payload)
	if err == nil {
		return nil, nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return nil, fmt.Errorf("cannot validate %T: %w", payload, err)
	}

	var violations []crudErrors.Violation
	for _, fe := range fieldErrs {
		path := strings.Split(fe.Namespace(), ".")
		if len(path) > 1 {
			path = path[1:]
		}
		violations = insert(violations, path, fe)
	}
	return violations, nil
}

func insert(list []crudErrors.Violation, path []string, fe validator.FieldError) []crudErrors.Violation {
	idx := -1
	for i := range list {
		if list[i].Property == path[0] {
			idx = i
			break
		}
	}
	if idx < 0 {
		list = append(list, crudErrors.Violation{Property: path[0]})
		idx = len(list) - 1
	}

	if len(path) > 1 {
		list[idx].Children = insert(list[idx].Children, path[1:], fe)
		return list
	}

	v := &list[idx]
	v.Value = fe.Value()
	if v.Constraints == nil {
		v.Constraints = make(map[string]string)
	}
	v.Constraints[fe.Tag()] = message(fe)
	return list
}

func message(fe validator.FieldError) string {
	if fe.Param() != "" {
		return fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("%s must satisfy %s", fe.Field(), fe.Tag())
}
