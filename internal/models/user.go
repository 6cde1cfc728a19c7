package models

// User is the subset of a profile the chat core reads.
type User struct {
	ID        string   `db:"id" json:"id"`
	Name      string   `db:"name" json:"name"`
	Interests []string `db:"interests" json:"interests"`
	AvatarURL *string  `db:"avatar_url" json:"avatarUrl,omitempty"`
}

// MatchCandidate is a scored recommendation for one viewer. It is never persisted.
type MatchCandidate struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Score     float64  `json:"score"`
	Interests []string `json:"interests"`
	AvatarURL *string  `json:"avatarUrl,omitempty"`
}
