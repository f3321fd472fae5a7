package registration

import "fmt"

const (
	FIELD_CARD_NUMBER    Field = "card_number"
	FIELD_CARD_EXP_MONTH Field = "card_exp_month"
	FIELD_CARD_EXP_YEAR  Field = "card_exp_year"
	FIELD_CARD_CVC       Field = "card_cvc"
	FIELD_CARD_TOKEN     Field = "card_token"
)

var cardFields = []Field{FIELD_CARD_NUMBER, FIELD_CARD_EXP_MONTH, FIELD_CARD_EXP_YEAR, FIELD_CARD_CVC, FIELD_CARD_TOKEN}

func CardFields() []Field {
	fields := make([]Field, len(cardFields))
	copy(fields, cardFields)
	return fields
}

// CardEntry is the state of the card-input element. Either Token holds a
// widget-issued card token, or the raw card fields are filled in.
type CardEntry struct {
	Number   string
	ExpMonth string
	ExpYear  string
	CVC      string
	Token    string
}

func (c CardEntry) Update(field Field, value string) (CardEntry, error) {
	switch field {
	case FIELD_CARD_NUMBER:
		c.Number = value
	case FIELD_CARD_EXP_MONTH:
		c.ExpMonth = value
	case FIELD_CARD_EXP_YEAR:
		c.ExpYear = value
	case FIELD_CARD_CVC:
		c.CVC = value
	case FIELD_CARD_TOKEN:
		c.Token = value
	default:
		return c, NewUnknownFieldError(fmt.Sprintf("Unknown card field %q", field))
	}

	return c, nil
}

// IsZero reports whether nothing has been entered, which is how a missing
// card-input element shows up.
func (c CardEntry) IsZero() bool {
	return c == CardEntry{}
}

func (c CardEntry) HasToken() bool {
	return c.Token != ""
}
