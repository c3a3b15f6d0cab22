package sso

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"encoding/xml"
	"fmt"

	saml2 "github.com/russellhaering/gosaml2"
	dsig "github.com/russellhaering/goxmldsig"
)

// Assertion is the validated claim bundle returned by the Identity Provider.
// Attributes are keyed by protocol attribute name; values keep their order.
type Assertion struct {
	NameID       string
	SessionIndex string
	Attributes   map[string][]string
}

// Validator abstracts the federated protocol library: it builds the login
// redirect and cryptographically validates inbound assertions (signature,
// issuer, audience, time window). Handlers depend on this interface so the
// flow can be tested without an IdP.
type Validator interface {
	BuildLoginURL(relayState string) (string, error)
	ValidateResponse(encodedResponse string) (*Assertion, error)
	Metadata() ([]byte, error)
}

// Settings configures the SAML service provider
type Settings struct {
	// IdPSSOURL is the IdP endpoint login redirects target
	IdPSSOURL string
	// IdPIssuer is the entity ID expected as assertion issuer
	IdPIssuer string
	// IdPCertificate is the PEM-encoded IdP signing certificate
	IdPCertificate string
	// BaseURL is this service provider's externally visible origin
	BaseURL string
	// SPCertificate/SPPrivateKey sign AuthnRequests when SignRequests is set
	SPCertificate string
	SPPrivateKey  string
	SignRequests  bool
	NameIDFormat  string
}

// SAMLProvider implements Validator on top of gosaml2
type SAMLProvider struct {
	sp *saml2.SAMLServiceProvider
}

// NewSAMLProvider builds the service provider from PEM material
func NewSAMLProvider(settings Settings) (*SAMLProvider, error) {
	if settings.IdPCertificate == "" {
		return nil, fmt.Errorf("IdP certificate is required")
	}

	certBlock, _ := pem.Decode([]byte(settings.IdPCertificate))
	if certBlock == nil {
		return nil, fmt.Errorf("failed to decode IdP certificate PEM")
	}

	cert, err := x509.ParseCertificate(certBlock.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse IdP certificate: %w", err)
	}

	certStore := dsig.MemoryX509CertificateStore{
		Roots: []*x509.Certificate{cert},
	}

	var keyStore dsig.X509KeyStore
	if settings.SPPrivateKey != "" {
		keyBlock, _ := pem.Decode([]byte(settings.SPPrivateKey))
		if keyBlock == nil {
			return nil, fmt.Errorf("failed to decode SP private key PEM")
		}

		privateKey, err := x509.ParsePKCS1PrivateKey(keyBlock.Bytes)
		if err != nil {
			// Try PKCS8 format
			pkcs8Key, err := x509.ParsePKCS8PrivateKey(keyBlock.Bytes)
			if err != nil {
				return nil, fmt.Errorf("failed to parse SP private key: %w", err)
			}
			var ok bool
			privateKey, ok = pkcs8Key.(*rsa.PrivateKey)
			if !ok {
				return nil, fmt.Errorf("SP private key is not RSA")
			}
		}

		keyStore = &dsig.TLSCertKeyStore{
			PrivateKey:  privateKey,
			Certificate: [][]byte{[]byte(settings.SPCertificate)},
		}
	}

	sp := &saml2.SAMLServiceProvider{
		IdentityProviderSSOURL:      settings.IdPSSOURL,
		IdentityProviderIssuer:      settings.IdPIssuer,
		ServiceProviderIssuer:       settings.BaseURL + "/sso/metadata",
		AssertionConsumerServiceURL: settings.BaseURL + "/sso/acs",
		SignAuthnRequests:           settings.SignRequests,
		AudienceURI:                 settings.BaseURL,
		IDPCertificateStore:         &certStore,
		SPKeyStore:                  keyStore,
	}

	if settings.NameIDFormat != "" {
		sp.NameIdFormat = settings.NameIDFormat
	}

	return &SAMLProvider{sp: sp}, nil
}

// BuildLoginURL returns the IdP redirect URL carrying the relay state
func (p *SAMLProvider) BuildLoginURL(relayState string) (string, error) {
	authURL, err := p.sp.BuildAuthURL(relayState)
	if err != nil {
		return "", fmt.Errorf("failed to build auth URL: %w", err)
	}
	return authURL, nil
}

// ValidateResponse validates a base64-encoded SAMLResponse and extracts the
// assertion. Any protocol failure (signature, audience, time window) is an
// error; no partially trusted assertion escapes.
func (p *SAMLProvider) ValidateResponse(encodedResponse string) (*Assertion, error) {
	info, err := p.sp.RetrieveAssertionInfo(encodedResponse)
	if err != nil {
		return nil, fmt.Errorf("failed to validate assertion: %w", err)
	}

	if info.WarningInfo != nil {
		if info.WarningInfo.InvalidTime {
			return nil, fmt.Errorf("assertion outside its validity window")
		}
		if info.WarningInfo.NotInAudience {
			return nil, fmt.Errorf("assertion not in expected audience")
		}
	}

	assertion := &Assertion{
		NameID:       info.NameID,
		SessionIndex: info.SessionIndex,
		Attributes:   make(map[string][]string, len(info.Values)),
	}
	for _, attr := range info.Values {
		values := make([]string, 0, len(attr.Values))
		for _, v := range attr.Values {
			values = append(values, v.Value)
		}
		assertion.Attributes[attr.Name] = values
	}

	return assertion, nil
}

// Metadata returns the SP metadata document IdPs consume during setup
func (p *SAMLProvider) Metadata() ([]byte, error) {
	descriptor, err := p.sp.Metadata()
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata: %w", err)
	}

	out, err := xml.MarshalIndent(descriptor, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}
