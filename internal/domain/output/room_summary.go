package output

// RoomSummary is the public listing view of an active room.
type RoomSummary struct {
	ID          string  `json:"id"`
	MemberCount int     `json:"member_count"`
	VideoID     string  `json:"video_id"`
	IsPlaying   bool    `json:"is_playing"`
	Time        float64 `json:"time"`
}
