package constant

// Common structured log attribute keys.
const (
	Error    = "error"
	UserID   = "user_id"
	UserName = "user_name"
	RoomID   = "room_id"
	ConnID   = "conn_id"
)
