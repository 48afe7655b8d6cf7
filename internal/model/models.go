// Package model defines the data models for the poker club bot.
package model

import "strconv"

// User is a registered player profile.
// Username is the Telegram handle without the leading '@'; empty means the
// player has no public handle.
type User struct {
	ID       int64  `db:"telegram_id"`
	Username string `db:"username"`
	Chips    int64  `db:"chips"`
}

// DisplayName returns the handle prefixed with '@', or a fallback built from the ID.
func (u *User) DisplayName() string {
	if u.Username == "" {
		return "id" + strconv.FormatInt(u.ID, 10)
	}
	return "@" + u.Username
}
