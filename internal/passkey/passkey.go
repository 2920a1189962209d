// Package passkey wires the go-webauthn relying party into the
// emptyinbox domain model: RP configuration derived from the service
// domain, serializable ceremony state, and conversion between library
// and stored credential shapes.
package passkey

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"

	"github.com/emptyinbox/emptyinbox/core"
)

// CeremonyTimeout is forwarded to the browser in creation/request options.
const CeremonyTimeout = 60 * time.Second

// Config describes the relying party.
type Config struct {
	Domain string // service domain, may carry a scheme or port
	RPName string // human-readable relying party name
	Dev    bool   // development mode: allow localhost origins over http
}

// RPID extracts the WebAuthn relying-party ID from a domain, stripping
// any scheme and port.
func RPID(domain string) string {
	if i := strings.Index(domain, "://"); i >= 0 {
		domain = domain[i+3:]
	}
	if i := strings.Index(domain, ":"); i >= 0 {
		domain = domain[:i]
	}
	return domain
}

// Origins returns the origins ceremonies are accepted from. Development
// mode additionally permits localhost over plain http on common dev
// ports; this is a deliberate relaxation, not a wildcard.
func Origins(cfg Config) []string {
	rpID := RPID(cfg.Domain)
	origins := []string{"https://" + rpID}
	if cfg.Dev {
		origins = append(origins,
			"http://"+rpID,
			"http://localhost",
			"http://localhost:3000",
			"http://localhost:5173",
			"http://localhost:8080",
		)
	}
	return origins
}

// New builds the relying party used for all passkey ceremonies.
func New(cfg Config) (*webauthn.WebAuthn, error) {
	timeout := webauthn.TimeoutConfig{
		Enforce:    true,
		Timeout:    CeremonyTimeout,
		TimeoutUVD: CeremonyTimeout,
	}
	return webauthn.New(&webauthn.Config{
		RPDisplayName: cfg.RPName,
		RPID:          RPID(cfg.Domain),
		RPOrigins:     Origins(cfg),
		AuthenticatorSelection: protocol.AuthenticatorSelection{
			ResidentKey:      protocol.ResidentKeyRequirementPreferred,
			UserVerification: protocol.VerificationPreferred,
		},
		Timeouts: webauthn.TimeoutsConfig{
			Login:        timeout,
			Registration: timeout,
		},
	})
}

// MarshalSession serializes ceremony state for storage alongside the
// challenge row.
func MarshalSession(s *webauthn.SessionData) ([]byte, error) {
	return json.Marshal(s)
}

// UnmarshalSession restores ceremony state persisted by MarshalSession.
func UnmarshalSession(b []byte) (*webauthn.SessionData, error) {
	var s webauthn.SessionData
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ToCredential converts a verified library credential into the stored
// representation.
func ToCredential(accountID string, cred *webauthn.Credential, now time.Time) *core.PasskeyCredential {
	transports := make([]string, 0, len(cred.Transport))
	for _, t := range cred.Transport {
		transports = append(transports, string(t))
	}

	deviceType := string(cred.Authenticator.Attachment)
	if deviceType == "" {
		deviceType = "platform"
	}

	return &core.PasskeyCredential{
		CredentialID:    cred.ID,
		AccountID:       accountID,
		PublicKey:       cred.PublicKey,
		AttestationType: cred.AttestationType,
		Transports:      transports,
		SignCount:       cred.Authenticator.SignCount,
		DeviceType:      deviceType,
		CreatedAt:       now,
		LastUsedAt:      now,
	}
}
