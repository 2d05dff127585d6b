package models

import "usermanager/internal/entities"

// FormState is what the create and edit pages render.
type FormState struct {
	User     *entities.User      // nil on the create page
	Errors   map[string][]string // Field name -> messages
	Previous map[string]string   // Previously submitted values
	Flash    *Flash
}

// Value returns the previously submitted value for field, falling back to
// the stored user's value on the edit page.
func (s FormState) Value(field string) string {
	if v, ok := s.Previous[field]; ok {
		return v
	}
	if s.User == nil {
		return ""
	}
	switch field {
	case "name":
		return s.User.Name
	case "email":
		return s.User.Email
	case "mobile":
		return s.User.Mobile
	case "address":
		return s.User.Address
	}
	return ""
}

// FirstError returns the first message recorded for field.
func (s FormState) FirstError(field string) string {
	if msgs := s.Errors[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Kind    string `json:"kind"` // "success" or "error"
	Message string `json:"message"`
}

const (
	FlashSuccess = "success"
	FlashError   = "error"
)
