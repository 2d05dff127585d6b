package validation

import (
	"context"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"

	"usermanager/internal/models"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Errors maps a field name to its failed rule messages, in rule order.
type Errors map[string][]string

func (e Errors) Add(field, message string) {
	e[field] = append(e[field], message)
}

func (e Errors) Has(field string) bool {
	return len(e[field]) > 0
}

// First returns the first message for field, or "".
func (e Errors) First(field string) string {
	if msgs := e[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// Any reports whether at least one field failed.
func (e Errors) Any() bool {
	for _, msgs := range e {
		if len(msgs) > 0 {
			return true
		}
	}
	return false
}

// Fields returns the failing field names, sorted.
func (e Errors) Fields() []string {
	fields := make([]string, 0, len(e))
	for f, msgs := range e {
		if len(msgs) > 0 {
			fields = append(fields, f)
		}
	}
	slices.Sort(fields)
	return fields
}

// Value is a submitted field: text, an uploaded file, or neither.
type Value struct {
	Text string
	File *models.ImageUpload
}

func Text(s string) Value { return Value{Text: s} }

func File(f *models.ImageUpload) Value { return Value{File: f} }

// Blank reports whether nothing meaningful was submitted.
func (v Value) Blank() bool {
	return strings.TrimSpace(v.Text) == "" && v.File.IsZero()
}

// Rule is a predicate plus the message reported when it fails.
type Rule struct {
	Message string
	Check   func(ctx context.Context, v Value) (bool, error)
	// Implicit rules also run against blank values.
	Implicit bool
}

type Field struct {
	Name  string
	Rules []Rule
}

// Table is an ordered set of field rules.
type Table []Field

// Validate runs every rule of every field. A blank value only runs implicit
// rules. The error is non-nil only when a rule itself could not be evaluated.
func (t Table) Validate(ctx context.Context, values map[string]Value) (Errors, error) {
	errs := Errors{}
	for _, field := range t {
		v := values[field.Name]
		blank := v.Blank()
		for _, rule := range field.Rules {
			if blank && !rule.Implicit {
				continue
			}
			ok, err := rule.Check(ctx, v)
			if err != nil {
				return nil, err
			}
			if !ok {
				errs.Add(field.Name, rule.Message)
			}
		}
	}
	return errs, nil
}

func Required(message string) Rule {
	return Rule{
		Message:  message,
		Implicit: true,
		Check: func(_ context.Context, v Value) (bool, error) {
			return !v.Blank(), nil
		},
	}
}

// Tag checks the text value against a validator tag such as "email".
func Tag(tag, message string) Rule {
	return Rule{
		Message: message,
		Check: func(_ context.Context, v Value) (bool, error) {
			return validate.Var(v.Text, tag) == nil, nil
		},
	}
}

// Unique fails when exists reports the text value is already taken.
func Unique(exists func(ctx context.Context, value string) (bool, error), message string) Rule {
	return Rule{
		Message: message,
		Check: func(ctx context.Context, v Value) (bool, error) {
			taken, err := exists(ctx, v.Text)
			if err != nil {
				return false, err
			}
			return !taken, nil
		},
	}
}

// Image checks the sniffed content type, never the client supplied one.
func Image(message string) Rule {
	return Rule{
		Message: message,
		Check: func(_ context.Context, v Value) (bool, error) {
			if v.File.IsZero() {
				return false, nil
			}
			for m := mimetype.Detect(v.File.Data); m != nil; m = m.Parent() {
				if strings.HasPrefix(m.String(), "image/") {
					return true, nil
				}
			}
			return false, nil
		},
	}
}

var extensionTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"bmp":  "image/bmp",
}

// Mimes accepts files whose sniffed type matches one of the extensions.
func Mimes(message string, extensions ...string) Rule {
	var allowed []string
	for _, ext := range extensions {
		if mime, ok := extensionTypes[strings.ToLower(ext)]; ok {
			allowed = append(allowed, mime)
		}
	}
	return Rule{
		Message: message,
		Check: func(_ context.Context, v Value) (bool, error) {
			if v.File.IsZero() {
				return false, nil
			}
			detected := mimetype.Detect(v.File.Data)
			for _, mime := range allowed {
				if detected.Is(mime) {
					return true, nil
				}
			}
			return false, nil
		},
	}
}

// MaxKilobytes bounds the upload size.
func MaxKilobytes(kb int64, message string) Rule {
	return Rule{
		Message: message,
		Check: func(_ context.Context, v Value) (bool, error) {
			if v.File == nil {
				return true, nil
			}
			limit := kb * 1024
			return v.File.Size <= limit && int64(len(v.File.Data)) <= limit, nil
		},
	}
}
