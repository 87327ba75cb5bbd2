package models

// Follow connects a follower to the user being followed
type Follow struct {
	UserBeingFollowedID uint `json:"user_being_followed_id" gorm:"primaryKey;autoIncrement:false"`
	UserFollowingID     uint `json:"user_following_id" gorm:"primaryKey;autoIncrement:false;index"`

	UserBeingFollowed User `json:"-" gorm:"foreignKey:UserBeingFollowedID;constraint:OnDelete:CASCADE"`
	UserFollowing     User `json:"-" gorm:"foreignKey:UserFollowingID;constraint:OnDelete:CASCADE"`
}
