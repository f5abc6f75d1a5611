package domain

type RoomID string

// RoomGlobal is the community chat room. It exists for the process lifetime;
// discussion rooms are created lazily on first subscriber.
const RoomGlobal RoomID = "global"

func DiscussionRoom(quizID string) RoomID {
	return RoomID("discussion:" + quizID)
}
