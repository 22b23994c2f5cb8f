package websocket

// Типы событий геймификации, отправляемых клиенту
const (
	// XP_AWARDED сообщает о начислении XP
	XP_AWARDED = "XP_AWARDED"

	// LEVEL_UP сообщает о повышении уровня
	LEVEL_UP = "LEVEL_UP"

	// ACHIEVEMENT_UNLOCKED сообщает о новом достижении
	ACHIEVEMENT_UNLOCKED = "ACHIEVEMENT_UNLOCKED"
)

// Event - сообщение, отправляемое клиенту
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}
