package entity

// Collection names a top-level document collection.
type Collection string

const (
	CollectionPosts         Collection = "post"
	CollectionComments      Collection = "comments"
	CollectionLikes         Collection = "likes"
	CollectionNotifications Collection = "notifications"
	CollectionUsers         Collection = "users"
)

// KeyField is the field holding a collection's document id.
func (c Collection) KeyField() string {
	if c == CollectionUsers {
		return "handle"
	}
	return "id"
}

// All returns every collection in migration order.
func All() []Collection {
	return []Collection{CollectionUsers, CollectionPosts, CollectionComments, CollectionLikes, CollectionNotifications}
}
