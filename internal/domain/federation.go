package domain

// FederatedIdentity is an identity asserted by an external provider
type FederatedIdentity struct {
	Provider      string
	Subject       string
	Email         string
	Name          string
	EmailVerified bool
}
