package crew

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// Contact is the personal information collected at registration
type Contact struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	CountryCode string `json:"country_code"`
	Mobile      string `json:"mobile"`
	Password    string `json:"password"`
}

// Validate will run validation rules
func (c Contact) Validate() error {
	return AsValidationError(validation.ValidateStruct(&c,
		validation.Field(&c.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&c.LastName, validation.Required, validation.Length(1, 200)),
		validation.Field(&c.Email, is.Email, validation.Length(0, 100)),
		validation.Field(&c.CountryCode, validation.Required, validation.Length(1, 5)),
		validation.Field(&c.Mobile, validation.Required, validation.Length(6, 15), is.Digit),
		validation.Field(&c.Password, validation.Required, validation.Length(1, maxPasswordBytes)),
	))
}

// FullName joins first and last name
func (c Contact) FullName() string {
	return c.FirstName + " " + c.LastName
}

// JoinRequest registers a person against a company or project code
type JoinRequest struct {
	Contact
	Intent     JoinIntent `json:"intent"`
	Code       string     `json:"code"`
	SecondCode string     `json:"second_code,omitempty"`
}

// Validate will run validation rules
func (r JoinRequest) Validate() error {
	if err := r.Contact.Validate(); err != nil {
		return err
	}

	codeRules := []validation.Rule{validation.Length(0, 32)}
	if r.Intent != IntentTalent {
		codeRules = append(codeRules, validation.Required)
	}

	return AsValidationError(validation.ValidateStruct(&r,
		validation.Field(&r.Intent,
			validation.Required,
			validation.In(IntentOffice, IntentField, IntentBoth, IntentTalent),
		),
		validation.Field(&r.Code, codeRules...),
	))
}

// CompanyInfo describes a company created together with its owner
type CompanyInfo struct {
	Name     string   `json:"name"`
	Industry Industry `json:"industry"`
	Country  string   `json:"country,omitempty"`
}

// Validate will run validation rules
func (c CompanyInfo) Validate() error {
	return AsValidationError(validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required, validation.Length(2, 200)),
		validation.Field(&c.Industry,
			validation.Required,
			validation.In(IndustryGeotechnical, IndustryGeophysical, IndustryMixed),
		),
	))
}

// IdentitySubmission carries identity verification documents
type IdentitySubmission struct {
	NationalID string  `json:"national_id"`
	Address    Address `json:"address"`
	IDCardURL  string  `json:"id_card_url,omitempty"`
	ResumeURL  string  `json:"resume_url,omitempty"`
}

// Validate will run validation rules
func (v IdentitySubmission) Validate() error {
	return AsValidationError(validation.ValidateStruct(&v,
		validation.Field(&v.NationalID, validation.Required, validation.Length(5, 20), is.Alphanumeric),
		validation.Field(&v.Address, validation.By(func(value any) error {
			addr, _ := value.(Address)
			return validation.ValidateStruct(&addr,
				validation.Field(&addr.Country, validation.Required),
				validation.Field(&addr.City, validation.Required),
			)
		})),
		validation.Field(&v.IDCardURL, is.URL),
		validation.Field(&v.ResumeURL, is.URL),
	))
}

// AsValidationError converts ozzo errors into the VALIDATION_ERROR taxonomy
// keeping the per field messages.
func AsValidationError(err error) error {
	if err == nil {
		return nil
	}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for field, ferr := range verrs {
			if ferr != nil {
				fields[field] = ferr.Error()
			}
		}
		return newValidationErrors(verrs.Error(), fields)
	}

	return newValidationErrors(err.Error(), map[string]string{})
}
