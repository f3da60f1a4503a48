package models

// Capabilities is the viewer's resolved permission set for one conversation.
// It is derived on every sync and never persisted.
type Capabilities struct {
	CanEditOwn   bool
	CanDeleteOwn bool
	CanModerate  bool
	IsAdmin      bool
	IsModerator  bool
	IsBanned     bool
}

// DefaultCapabilities is used whenever resolution fails: ordinary actions stay
// available, elevated ones do not.
func DefaultCapabilities() Capabilities {
	return Capabilities{
		CanEditOwn:   true,
		CanDeleteOwn: true,
	}
}

type MessageActions struct {
	Edit   bool
	Delete bool
}

type ActionMenu struct {
	UserID   int64
	Username string
	Ban      bool
	Unban    bool
	Promote  bool
	Demote   bool
}

type EditState int

const (
	EditClosed EditState = iota
	EditOpen
	EditCommitted
	EditAborted
)

func (s EditState) String() string {
	switch s {
	case EditOpen:
		return "open"
	case EditCommitted:
		return "committed"
	case EditAborted:
		return "aborted"
	default:
		return "closed"
	}
}

type Key int

const (
	KeyOther Key = iota
	KeyAccept
	KeyCancel
)

type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeWarning NoticeLevel = "warning"
	NoticeDanger  NoticeLevel = "danger"
)

type Notice struct {
	Level NoticeLevel
	Text  string
}

type ModerationAction string

const (
	ActionBan     ModerationAction = "ban"
	ActionUnban   ModerationAction = "unban"
	ActionPromote ModerationAction = "promote"
	ActionDemote  ModerationAction = "demote"
)

type ModerationRequest struct {
	UserID int64  `json:"user_id" validate:"required,gt=0"`
	Reason string `json:"reason,omitempty" validate:"omitempty,max=1000"`
	Role   string `json:"role,omitempty" validate:"omitempty,oneof=moderator"`
}
