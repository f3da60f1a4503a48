package models

// Scope addresses a conversation: a salon, or a channel inside a salon.
type Scope struct {
	Salon   string `validate:"required,slug"`
	Channel string `validate:"omitempty,slug"`
}

func (s Scope) IsChannel() bool {
	return s.Channel != ""
}

func (s Scope) String() string {
	if s.IsChannel() {
		return s.Salon + "/" + s.Channel
	}
	return s.Salon
}

type RosterEntry struct {
	UserID      int64   `json:"id"`
	Username    string  `json:"username"`
	IsAdmin     bool    `json:"is_admin"`
	IsModerator bool    `json:"is_moderator"`
	IsBanned    bool    `json:"is_banned"`
	Role        *string `json:"role"`
}
