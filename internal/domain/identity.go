package domain

type Role int

const (
	RoleNone Role = iota
	RoleHost
	RoleParticipant
)

func (r Role) String() string {
	switch r {
	case RoleHost:
		return "host"
	case RoleParticipant:
		return "participant"
	default:
		return "none"
	}
}

// Credential is a short-lived realtime token plus the identity claims it was
// issued for. It is scoped to a single acquisition attempt.
type Credential struct {
	Token     string `json:"token"`
	UserID    string `json:"userId"`
	UserName  string `json:"userName"`
	UserImage string `json:"userImage"`
}

// ParticipantIdentity is what the realtime platform knows the caller as.
type ParticipantIdentity struct {
	UserID      string `json:"id"`
	DisplayName string `json:"name"`
	ImageURL    string `json:"image"`
}

func (c Credential) Identity() ParticipantIdentity {
	return ParticipantIdentity{
		UserID:      c.UserID,
		DisplayName: c.UserName,
		ImageURL:    c.UserImage,
	}
}
