// Package share turns the sender's form into a shareable card link and back.
package share

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/nyashahama/valentine-card/internal/card"
)

// Style is a card design the sender can pick.
type Style struct {
	ID          string
	Name        string
	Description string
	Preview     string // emoji thumbnail
}

// DefaultStyle is used for empty or unknown style ids.
const DefaultStyle = "interactive-face"

// Styles lists every available card design.
var Styles = []Style{
	{
		ID:          DefaultStyle,
		Name:        "Interactive Face",
		Description: `A playful card with a face that gets sadder when you hover over "No"`,
		Preview:     "😊",
	},
}

// LookupStyle returns the style with id, or the default style.
func LookupStyle(id string) Style {
	for _, s := range Styles {
		if s.ID == id {
			return s
		}
	}
	return Styles[0]
}

// Form is what the sender submits.
type Form struct {
	RequestorName string
	RecipientName string
	PhoneNumber   string
	Style         string
}

// Normalize trims every field and resolves the style.
func (f Form) Normalize() Form {
	return Form{
		RequestorName: strings.TrimSpace(f.RequestorName),
		RecipientName: strings.TrimSpace(f.RecipientName),
		PhoneNumber:   strings.TrimSpace(f.PhoneNumber),
		Style:         LookupStyle(strings.TrimSpace(f.Style)).ID,
	}
}

var phonePattern = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)

// FieldErrors maps a form field name to its message. Field names match the
// HTML form inputs.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	parts := make([]string, 0, len(fe))
	for _, field := range []string{"requestorName", "recipientName", "phoneNumber"} {
		if msg, ok := fe[field]; ok {
			parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
		}
	}
	return "share: invalid form: " + strings.Join(parts, "; ")
}

// Validate checks a form. The returned error is a FieldErrors when any field
// is invalid.
func Validate(f Form) error {
	f = f.Normalize()
	errs := FieldErrors{}

	if f.RequestorName == "" {
		errs["requestorName"] = "Your name is required"
	}
	if f.RecipientName == "" {
		errs["recipientName"] = "Recipient's name is required"
	}
	switch {
	case f.PhoneNumber == "":
		errs["phoneNumber"] = "Phone number is required for SMS notifications"
	case !phonePattern.MatchString(f.PhoneNumber):
		errs["phoneNumber"] = "Please enter a valid phone number (e.g., +1234567890)"
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// AsFieldErrors extracts FieldErrors from err.
func AsFieldErrors(err error) (FieldErrors, bool) {
	var fe FieldErrors
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// CardPath is where cards are served.
const CardPath = "/card"

// Link validates f and returns the card URL under baseURL.
func Link(baseURL string, f Form) (string, error) {
	if err := Validate(f); err != nil {
		return "", err
	}
	f = f.Normalize()

	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("share: parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("share: base url %q must be absolute", baseURL)
	}

	q := url.Values{}
	q.Set("style", f.Style)
	q.Set("requestor", f.RequestorName)
	q.Set("recipient", f.RecipientName)
	q.Set("phone", f.PhoneNumber)

	base.Path += CardPath
	base.RawQuery = q.Encode()
	return base.String(), nil
}

// Params is what a card link carries.
type Params struct {
	Style   string
	Session card.Session
}

// ParseParams reads card parameters from a link's query. Every value is
// optional; the destination is not validated.
func ParseParams(q url.Values) Params {
	return Params{
		Style: LookupStyle(q.Get("style")).ID,
		Session: card.Session{
			RecipientName: strings.TrimSpace(q.Get("recipient")),
			RequestorName: strings.TrimSpace(q.Get("requestor")),
			Destination:   strings.TrimSpace(q.Get("phone")),
		},
	}
}

// ParseLink parses a full card URL.
func ParseLink(link string) (Params, error) {
	u, err := url.Parse(link)
	if err != nil {
		return Params{}, fmt.Errorf("share: parse link: %w", err)
	}
	return ParseParams(u.Query()), nil
}
