package registration

import "fmt"

type Field string

const (
	FIELD_NAME       Field = "name"
	FIELD_EMAIL      Field = "email"
	FIELD_ADDRESS    Field = "address"
	FIELD_PHONE      Field = "phone"
	FIELD_MEMBERSHIP Field = "membership"
)

var draftFields = []Field{FIELD_NAME, FIELD_EMAIL, FIELD_ADDRESS, FIELD_PHONE, FIELD_MEMBERSHIP}

// Fields returns the draft fields in the order the form displays them.
func Fields() []Field {
	fields := make([]Field, len(draftFields))
	copy(fields, draftFields)
	return fields
}

type Membership string

const (
	BASIC   Membership = "basic"
	PREMIUM Membership = "premium"
	VIP     Membership = "vip"
)

var memberships = []Membership{BASIC, PREMIUM, VIP}

func Memberships() []Membership {
	m := make([]Membership, len(memberships))
	copy(m, memberships)
	return m
}

func (m Membership) Label() string {
	switch m {
	case BASIC:
		return "Basic"
	case PREMIUM:
		return "Premium"
	case VIP:
		return "VIP"
	default:
		return string(m)
	}
}

// Draft is the in-memory record of a fan's registration inputs.
type Draft struct {
	Name       string     `validate:"required"`
	Email      string     `validate:"required,email"`
	Address    string     `validate:"required"`
	Phone      string     `validate:"required"`
	Membership Membership `validate:"required,oneof=basic premium vip"`
}

// NewDraft returns an empty draft with the membership select on its first option.
func NewDraft() Draft {
	return Draft{Membership: BASIC}
}

// Update returns a copy of d with field set to value. d itself is left untouched.
func (d Draft) Update(field Field, value string) (Draft, error) {
	switch field {
	case FIELD_NAME:
		d.Name = value
	case FIELD_EMAIL:
		d.Email = value
	case FIELD_ADDRESS:
		d.Address = value
	case FIELD_PHONE:
		d.Phone = value
	case FIELD_MEMBERSHIP:
		d.Membership = Membership(value)
	default:
		return d, NewUnknownFieldError(fmt.Sprintf("Unknown draft field %q", field))
	}

	return d, nil
}

func (d Draft) Value(field Field) string {
	switch field {
	case FIELD_NAME:
		return d.Name
	case FIELD_EMAIL:
		return d.Email
	case FIELD_ADDRESS:
		return d.Address
	case FIELD_PHONE:
		return d.Phone
	case FIELD_MEMBERSHIP:
		return string(d.Membership)
	default:
		return ""
	}
}
