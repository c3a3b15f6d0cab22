package sso

import (
	"strings"

	"github.com/presenza/presenza/pkg/autherr"
)

// Claims is the typed attribute set extracted from a federated assertion.
// At least SubjectID is present on any Claims returned by ExtractClaims.
type Claims struct {
	SubjectID  string
	CardNumber string
	Email      string
	GivenName  string
	FamilyName string
}

// ComparisonKey is the identifier matched against a scanned card: the
// asserted card number when the IdP supplies one, the subject ID otherwise.
func (c *Claims) ComparisonKey() string {
	if c.CardNumber != "" {
		return c.CardNumber
	}
	return c.SubjectID
}

// DisplayName composes a human-readable name from the name claims, falling
// back to email, then subject ID.
func (c *Claims) DisplayName() string {
	name := strings.TrimSpace(c.GivenName + " " + c.FamilyName)
	if name != "" {
		return name
	}
	if c.Email != "" {
		return c.Email
	}
	return c.SubjectID
}

// AttributeMap is the explicit, ordered list of protocol attribute names
// tried for each claim field. One fallback chain per field, visible here
// rather than inferred at call sites.
type AttributeMap struct {
	SubjectID  []string
	CardNumber []string
	Email      []string
	GivenName  []string
	FamilyName []string
}

// DefaultAttributeMap covers the attribute names common IdPs emit, including
// the LDAP OID forms.
func DefaultAttributeMap() AttributeMap {
	return AttributeMap{
		SubjectID:  []string{"uid", "urn:oid:0.9.2342.19200300.100.1.1", "employeeID"},
		CardNumber: []string{"cardNumber", "badgeID", "urn:oid:2.16.840.1.113730.3.1.700"},
		Email:      []string{"email", "mail", "urn:oid:0.9.2342.19200300.100.1.3"},
		GivenName:  []string{"givenName", "firstName", "urn:oid:2.5.4.42"},
		FamilyName: []string{"sn", "surname", "lastName", "urn:oid:2.5.4.4"},
	}
}

// ExtractClaims populates Claims from an assertion using the attribute map.
// The NameID is the final fallback for the subject identifier; an assertion
// yielding no subject at all is an authentication failure.
func ExtractClaims(a *Assertion, m AttributeMap) (*Claims, error) {
	claims := &Claims{
		SubjectID:  firstAttribute(a, m.SubjectID),
		CardNumber: firstAttribute(a, m.CardNumber),
		Email:      firstAttribute(a, m.Email),
		GivenName:  firstAttribute(a, m.GivenName),
		FamilyName: firstAttribute(a, m.FamilyName),
	}

	if claims.SubjectID == "" {
		claims.SubjectID = strings.TrimSpace(a.NameID)
	}
	if claims.SubjectID == "" {
		return nil, autherr.Authentication("assertion carries no subject identifier", nil)
	}

	return claims, nil
}

// firstAttribute walks a fallback chain and returns the first non-empty
// value found.
func firstAttribute(a *Assertion, chain []string) string {
	for _, name := range chain {
		for _, v := range a.Attributes[name] {
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}
