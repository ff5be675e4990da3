package models

// Session pairs the current identity with its bearer credential. Either half
// may be absent; a session is only usable when both are present.
type Session struct {
	User  *User
	Token string
}

// Complete reports whether both the user and the token are present.
func (s Session) Complete() bool {
	return s.User != nil && s.Token != ""
}
