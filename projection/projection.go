package projection

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"

	crudErrors "github.com/qolzam/telar/apps/crud/errors"
	"github.com/qolzam/telar/apps/crud/validation"
)

// GroupsTag lists the rule-groups a target field takes part in. Fields without it take part in every group.
const GroupsTag = "groups"

// Projector copies values between entities, payloads and output representations,
// keeping only the fields the target declares for a rule-group
type Projector struct {
	allowed sync.Map // groupKey -> map[string]bool
}

type groupKey struct {
	typ   reflect.Type
	group validation.RuleGroup
}

// New creates a Projector
func New() *Projector {
	return &Projector{}
}

// Project fills target, a pointer to a struct or map, from source, a struct or map keyed by json names
func (p *Projector) Project(source, target interface{}, group validation.RuleGroup) error {
	values, err := toMap(source)
	if err != nil {
		return err
	}
	allowed, err := p.fieldsFor(target, group)
	if err != nil {
		return err
	}
	if allowed != nil {
		for key := range values {
			if !allowed[key] {
				delete(values, key)
			}
		}
	}
	return decode(values, target)
}

// ProjectInput decodes a raw request payload into target and returns the keys it applied, sorted.
// Keys the target does not declare for group are ignored. Values of the wrong shape are reported
// as a validation error naming each offending property.
func (p *Projector) ProjectInput(input map[string]interface{}, target interface{}, group validation.RuleGroup) ([]string, error) {
	allowed, err := p.fieldsFor(target, group)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(input))
	for key := range input {
		if allowed == nil || allowed[key] {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	var violations []crudErrors.Violation
	for _, key := range keys {
		if err := decode(map[string]interface{}{key: input[key]}, target); err != nil {
			violations = append(violations, crudErrors.Violation{
				Property:    key,
				Value:       input[key],
				Constraints: map[string]string{"type": fmt.Sprintf("%s has an invalid value", key)},
			})
		}
	}
	if len(violations) > 0 {
		return nil, crudErrors.NewValidationError(violations...)
	}
	return keys, nil
}

func decode(values map[string]interface{}, target interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Squash:           true,
		WeaklyTypedInput: true,
		Result:           target,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339),
			mapstructure.TextUnmarshallerHookFunc(),
		),
	})
	if err != nil {
		return fmt.Errorf("cannot project into %T: %w", target, err)
	}
	return decoder.Decode(values)
}

// fieldsFor returns the json names target accepts for group, or nil when target is a map
func (p *Projector) fieldsFor(target interface{}, group validation.RuleGroup) (map[string]bool, error) {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return nil, fmt.Errorf("projection target must be a non-nil pointer, got %T", target)
	}
	typ := rv.Elem().Type()
	switch typ.Kind() {
	case reflect.Map:
		return nil, nil
	case reflect.Struct:
	default:
		return nil, fmt.Errorf("projection target must point to a struct or map, got %T", target)
	}

	key := groupKey{typ: typ, group: group}
	if cached, ok := p.allowed.Load(key); ok {
		return cached.(map[string]bool), nil
	}
	allowed := make(map[string]bool)
	collectFields(typ, group, allowed)
	p.allowed.Store(key, allowed)
	return allowed, nil
}

func collectFields(typ reflect.Type, group validation.RuleGroup, allowed map[string]bool) {
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		if f.Anonymous && f.Type.Kind() == reflect.Struct {
			collectFields(f.Type, group, allowed)
			continue
		}
		name, ok := jsonName(f)
		if !ok {
			continue
		}
		if inGroup(f.Tag.Get(GroupsTag), group) {
			allowed[name] = true
		}
	}
}

func inGroup(tag string, group validation.RuleGroup) bool {
	if tag == "" {
		return true
	}
	for _, g := range strings.Split(tag, ",") {
		if strings.TrimSpace(g) == string(group) {
			return true
		}
	}
	return false
}

func jsonName(f reflect.StructField) (string, bool) {
	if f.PkgPath != "" {
		return "", false
	}
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	switch name {
	case "-":
		return "", false
	case "":
		return f.Name, true
	}
	return name, true
}

// toMap flattens the exported fields of a struct one level deep, so nested values such as
// time.Time keep their types
func toMap(source interface{}) (map[string]interface{}, error) {
	if m, ok := source.(map[string]interface{}); ok {
		out := make(map[string]interface{}, len(m))
		for k, v := range m {
			out[k] = v
		}
		return out, nil
	}

	rv := reflect.ValueOf(source)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, fmt.Errorf("cannot project from nil %T", source)
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("cannot project from %T", source)
	}

	out := make(map[string]interface{})
	flatten(rv, out)
	return out, nil
}

func flatten(rv reflect.Value, out map[string]interface{}) {
	typ := rv.Type()
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		if f.Anonymous && f.Type.Kind() == reflect.Struct {
			flatten(rv.Field(i), out)
			continue
		}
		if name, ok := jsonName(f); ok {
			out[name] = rv.Field(i).Interface()
		}
	}
}
