package events

import "encoding/json"

// Message is the envelope for everything crossing the websocket in either
// direction.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Client-to-server message types.
const (
	TypeJoin        = "join"
	TypeAddSubhost  = "add_subhost"
	TypeLoadVideo   = "load_video"
	TypeChangeVideo = "change_video"
	TypePing        = "ping"
)

// Bidirectional message types: received as commands, broadcast back to the
// room as notices carrying the resolved state.
const (
	TypePlay  = "play"
	TypePause = "pause"
	TypeSeek  = "seek"
	TypeChat  = "chat"
)

// Server-to-client message types.
const (
	TypeSync    = "sync"
	TypeMembers = "members"
	TypeVideo   = "video"
	TypePong    = "pong"
	TypeError   = "error"
)

// JoinEvent binds a connection to a room. An unknown room identifier is
// created on the fly with the supplied password.
type JoinEvent struct {
	Room     string `json:"room"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// AddSubhostEvent grants playback control to another member by name.
type AddSubhostEvent struct {
	Name string `json:"name"`
}

// LoadVideoEvent swaps the media the room is watching.
type LoadVideoEvent struct {
	VideoID string `json:"video_id"`
}

// PlayEvent resumes playback. Time is optional: when set, the controller's
// local position overrides the server-computed one.
type PlayEvent struct {
	Time *float64 `json:"time,omitempty"`
}

// SeekEvent jumps to an absolute position in seconds.
type SeekEvent struct {
	Time float64 `json:"time"`
}

// ChatEvent is a chat line relayed to the whole room.
type ChatEvent struct {
	Text string `json:"text"`
}

// ChatBroadcast carries a chat line to every room member.
type ChatBroadcast struct {
	From string `json:"from"`
	Text string `json:"text"`
}

// MembersEvent announces the current roster and role assignments.
type MembersEvent struct {
	Host     string   `json:"host"`
	Subhosts []string `json:"subhosts"`
	Members  []string `json:"members"`
}

// VideoEvent announces a video change.
type VideoEvent struct {
	VideoID string `json:"video_id"`
}

// PlaybackEvent carries the resolved playback position for play, pause and
// seek notices so receivers can re-anchor their local clock.
type PlaybackEvent struct {
	Time float64 `json:"time"`
}

// ErrorEvent is sent to the offending connection only, never broadcast.
type ErrorEvent struct {
	Message string `json:"message"`
}
