package models

// Interaction is the locally tracked social-counter state for one post id.
// It exists independently of the posts collection so counters can be kept for
// posts whose canonical record lives remotely.
type Interaction struct {
	Likes    int `json:"likes"`
	Dislikes int `json:"dislikes"`
	Shares   int `json:"shares"`
}

// Clamp returns the interaction with every counter forced non-negative.
func (i Interaction) Clamp() Interaction {
	if i.Likes < 0 {
		i.Likes = 0
	}
	if i.Dislikes < 0 {
		i.Dislikes = 0
	}
	if i.Shares < 0 {
		i.Shares = 0
	}
	return i
}
