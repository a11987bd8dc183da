package crew

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DeriveUsername normalizes a country calling code and a national mobile
// number into the E.164 form used as the login username, e.g. "+98" and
// "09121234567" become "+989121234567".
func DeriveUsername(countryCode, mobile string) (string, error) {
	cc := strings.TrimPrefix(strings.TrimSpace(countryCode), "+")
	national := strings.TrimSpace(mobile)

	if cc == "" {
		return "", newValidationError("country_code", "country code is required")
	}
	if national == "" {
		return "", newValidationError("mobile", "mobile number is required")
	}

	num, err := phonenumbers.Parse("+"+cc+strings.TrimLeft(national, "0"), "")
	if err != nil {
		return "", newValidationError("mobile", "mobile number is not valid")
	}

	if !phonenumbers.IsPossibleNumber(num) {
		return "", newValidationError("mobile", "mobile number is not valid")
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}
