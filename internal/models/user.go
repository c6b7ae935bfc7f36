package models

// User represents a user account.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AuthError holds the user-facing messages of a failed auth action.
type AuthError struct {
	Messages []string `json:"messages"`
}

// Session is the client-side authentication state.
type Session struct {
	User      *User      `json:"user"`
	Token     string     `json:"token"`
	IsLoading bool       `json:"isLoading"`
	Error     *AuthError `json:"error"`
}

// Clone returns a deep copy of the session.
func (s Session) Clone() Session {
	out := s
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	if s.Error != nil {
		out.Error = &AuthError{Messages: append([]string(nil), s.Error.Messages...)}
	}
	return out
}
