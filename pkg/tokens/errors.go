package tokens

import "fmt"

// InvalidPatternError is returned when a token's regex does not compile.
type InvalidPatternError struct {
	Name    string
	Pattern string
	Err     error
}

func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("token %q: invalid pattern %q: %v", e.Name, e.Pattern, e.Err)
}

func (e *InvalidPatternError) Unwrap() error { return e.Err }

// InvalidTemplateError is returned when a replacement template refers to a
// group the token's regex does not define.
type InvalidTemplateError struct {
	Name     string
	Template string
	Ref      string
}

func (e *InvalidTemplateError) Error() string {
	return fmt.Sprintf("token %q: replacement %q refers to unknown group %q", e.Name, e.Template, e.Ref)
}

// DuplicateTokenError is returned when two tokens of one Matcher share a name.
type DuplicateTokenError struct {
	Name string
}

func (e *DuplicateTokenError) Error() string {
	return fmt.Sprintf("token %q is registered more than once", e.Name)
}
