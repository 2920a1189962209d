package passkey

import (
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"

	"github.com/emptyinbox/emptyinbox/core"
)

// User adapts an account and its stored credentials to webauthn.User.
type User struct {
	id       []byte
	username string
	creds    []*core.PasskeyCredential
}

// NewUser wraps an existing account for a ceremony.
func NewUser(account *core.Account, creds []*core.PasskeyCredential) *User {
	return &User{id: []byte(account.ID), username: account.Username, creds: creds}
}

// NewProspect represents a not-yet-created account during registration.
// The id becomes the account ID once the ceremony succeeds.
func NewProspect(id []byte, username string) *User {
	return &User{id: id, username: username}
}

func (u *User) WebAuthnID() []byte {
	return u.id
}

func (u *User) WebAuthnName() string {
	return u.username
}

func (u *User) WebAuthnDisplayName() string {
	return u.username
}

func (u *User) WebAuthnCredentials() []webauthn.Credential {
	creds := make([]webauthn.Credential, len(u.creds))
	for i, c := range u.creds {
		transports := make([]protocol.AuthenticatorTransport, 0, len(c.Transports))
		for _, t := range c.Transports {
			transports = append(transports, protocol.AuthenticatorTransport(t))
		}
		creds[i] = webauthn.Credential{
			ID:              c.CredentialID,
			PublicKey:       c.PublicKey,
			AttestationType: c.AttestationType,
			Transport:       transports,
			Authenticator: webauthn.Authenticator{
				SignCount: c.SignCount,
			},
		}
	}
	return creds
}
