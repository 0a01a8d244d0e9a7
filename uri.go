package wampc

import (
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"
)

// componentPattern matches one dot-separated URI component under
// WAMP's loose (non strict) URI grammar: lowercase/uppercase letters,
// digits and underscores, at least one character.
var componentPattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

var (
	uriValidatorOnce sync.Once
	uriValidator     *validator.Validate
)

// getURIValidator lazily builds a *validator.Validate carrying a
// registered "wamp_uri" tag, following the teacher's single-shared-
// instance pattern (validation/main.go: "use a single instance of
// Validate, it caches struct info").
func getURIValidator() *validator.Validate {
	uriValidatorOnce.Do(func() {
		uriValidator = validator.New()
		_ = uriValidator.RegisterValidation("wamp_uri", func(fl validator.FieldLevel) bool {
			return ValidURI(fl.Field().String())
		})
	})
	return uriValidator
}

// ValidURI reports whether uri satisfies WAMP's basic profile URI
// grammar (spec.md §9 Open Question 4, resolved as opt-in: the session
// itself never calls this, but callers who want the check can). An
// empty uri, a uri containing a zero-length component (leading,
// trailing, or consecutive dots), or a component with characters
// outside [A-Za-z0-9_] is rejected.
func ValidURI(uri string) bool {
	if uri == "" {
		return false
	}
	start := 0
	for i := 0; i <= len(uri); i++ {
		if i == len(uri) || uri[i] == '.' {
			if !componentPattern.MatchString(uri[start:i]) {
				return false
			}
			start = i + 1
		}
	}
	return true
}

// TopicOrProcedure is a struct tag target for callers who want to
// validate a batch of user-supplied URIs (e.g. from a config file)
// through go-playground/validator instead of calling ValidURI
// one-by-one.
type TopicOrProcedure struct {
	URI string `validate:"required,wamp_uri"`
}

// ValidateURIStruct runs the registered "wamp_uri" rule over a
// TopicOrProcedure, returning validator.ValidationErrors on failure.
func ValidateURIStruct(t TopicOrProcedure) error {
	return getURIValidator().Struct(t)
}
