package database

import "context"

func CreateUser(ctx context.Context, chatID int64, phone string) error {
	if _, err := GetUserByChatID(ctx, chatID); err == nil {
		return nil
	}
	return db.WithContext(ctx).Create(&User{ChatID: chatID, Phone: phone}).Error
}

func GetAllUsers(ctx context.Context) ([]User, error) {
	var users []User
	err := db.WithContext(ctx).Find(&users).Error
	return users, err
}

func GetUserByChatID(ctx context.Context, chatID int64) (*User, error) {
	var user User
	err := db.WithContext(ctx).Where("chat_id = ?", chatID).First(&user).Error
	return &user, err
}

func UpdateUser(ctx context.Context, user *User) error {
	return db.WithContext(ctx).Save(user).Error
}

func DeleteUser(ctx context.Context, user *User) error {
	return db.WithContext(ctx).Unscoped().Delete(user).Error
}
