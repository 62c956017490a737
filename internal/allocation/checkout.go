package allocation

import (
    "strings"
    "time"
    "unicode"
)

// Address is the optional shipping/billing block of a checkout request.
// Either every field is provided or none is; a partially filled address
// is rejected.
type Address struct {
    FirstName  string `json:"first_name"`
    LastName   string `json:"last_name"`
    Street     string `json:"street"`
    City       string `json:"city"`
    PostalCode string `json:"postal_code"`
    Country    string `json:"country"`
}

// Empty reports whether no address field is set at all.
func (a Address) Empty() bool {
    return a.FirstName == "" && a.LastName == "" && a.Street == "" &&
        a.City == "" && a.PostalCode == "" && a.Country == ""
}

// Card is the payment card block of a checkout request.  Expiry uses the
// MM/YY format.
type Card struct {
    Number string `json:"number"`
    Expiry string `json:"expiry"`
    CVC    string `json:"cvc"`
}

// maximum lengths for free-text address fields
const maxAddressField = 100

// ValidateAddress checks the all-or-nothing rule and field bounds.  An
// entirely empty address is valid (the address is optional).  Returns a
// ValidationError listing every offending field.
func ValidateAddress(a Address) error {
    if a.Empty() {
        return nil
    }
    var fields []string
    check := func(name, value string) {
        switch {
        case strings.TrimSpace(value) == "":
            fields = append(fields, name+" is required when an address is given")
        case len(value) > maxAddressField:
            fields = append(fields, name+" exceeds the maximum length")
        }
    }
    check("first_name", a.FirstName)
    check("last_name", a.LastName)
    check("street", a.Street)
    check("city", a.City)
    check("postal_code", a.PostalCode)
    check("country", a.Country)
    if len(fields) > 0 {
        return &ValidationError{Fields: fields}
    }
    return nil
}

// ValidateCard checks the card number format and Luhn checksum, the
// MM/YY expiry, and the CVC length.  Returns a ValidationError listing
// every offending field.
func ValidateCard(c Card) error {
    var fields []string

    number := strings.ReplaceAll(strings.ReplaceAll(c.Number, " ", ""), "-", "")
    switch {
    case len(number) < 12 || len(number) > 19 || !digitsOnly(number):
        fields = append(fields, "card number format is invalid")
    case !luhnValid(number):
        fields = append(fields, "card number checksum is invalid")
    }

    if _, err := time.Parse("01/06", c.Expiry); err != nil {
        fields = append(fields, "card expiry must be in MM/YY format")
    }

    if len(c.CVC) < 3 || len(c.CVC) > 4 || !digitsOnly(c.CVC) {
        fields = append(fields, "cvc must be 3 or 4 digits")
    }

    if len(fields) > 0 {
        return &ValidationError{Fields: fields}
    }
    return nil
}

func digitsOnly(s string) bool {
    for _, r := range s {
        if !unicode.IsDigit(r) {
            return false
        }
    }
    return s != ""
}

// luhnValid implements the standard Luhn checksum over a digit string.
func luhnValid(number string) bool {
    sum := 0
    double := false
    for i := len(number) - 1; i >= 0; i-- {
        d := int(number[i] - '0')
        if double {
            d *= 2
            if d > 9 {
                d -= 9
            }
        }
        sum += d
        double = !double
    }
    return sum%10 == 0
}
