package dto

// LikeResponse is the result of toggling a like
type LikeResponse struct {
	BoardID  string `json:"board_id"`
	Liked    bool   `json:"liked"`
	Matched  bool   `json:"matched"`
	Navigate string `json:"navigate,omitempty"`
}

// LikesResponse lists the boards the caller likes
type LikesResponse struct {
	BoardIDs []string `json:"board_ids"`
}

// SkipRequest moves the recommendation cursor past the current card
type SkipRequest struct {
	Index int `json:"index" binding:"min=0"`
	Total int `json:"total" binding:"min=0"`
}

type SkipResponse struct {
	NextIndex int `json:"next_index"`
}
