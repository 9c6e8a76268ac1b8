package models

import "strconv"

// SubjectKind tells which history backend owns a subject's conversations.
type SubjectKind int

const (
	SubjectAnonymous SubjectKind = iota
	SubjectUser
)

// Subject is the owner of conversations: a registered user or an anonymous browser session.
type Subject struct {
	Kind      SubjectKind
	UserID    int64
	SessionID string
}

func UserSubject(userID int64) Subject {
	return Subject{Kind: SubjectUser, UserID: userID}
}

func AnonymousSubject(sessionID string) Subject {
	return Subject{Kind: SubjectAnonymous, SessionID: sessionID}
}

func (s Subject) Authenticated() bool {
	return s.Kind == SubjectUser && s.UserID > 0
}

// Key is a stable identifier, used for rate limiting and log fields.
func (s Subject) Key() string {
	if s.Kind == SubjectUser {
		return "user:" + strconv.FormatInt(s.UserID, 10)
	}
	return "session:" + s.SessionID
}
