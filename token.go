package storefront

// AccessToken is the client's claim of authentication, persisted under
// KeyAccessToken. A token held locally is not guaranteed to still exist
// on the server.
type AccessToken struct {
	Email string `json:"email"`
	ID    string `json:"Id"`
}

// Valid reports whether both the email and the token id are set.
func (t AccessToken) Valid() bool {
	return t.Email != "" && t.ID != ""
}
