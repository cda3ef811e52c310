package models

import "time"

// Post - модель поста ленты
type Post struct {
	ID               int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Title            string    `gorm:"size:255;not null" json:"title"`
	Content          string    `gorm:"type:text;not null" json:"content"`
	MainImage        string    `gorm:"size:1024;not null" json:"mainImage"`
	AdditionalImages []string  `gorm:"serializer:json" json:"additionalImages"`
	InstagramURL     string    `gorm:"size:1024" json:"instagramUrl,omitempty"`
	AuthorID         int64     `gorm:"index;not null" json:"-"`
	Views            int64     `gorm:"default:0" json:"views"`
	CreatedAt        time.Time `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (Post) TableName() string {
	return "posts"
}

// PostLike - принадлежность пользователя к множеству лайкнувших пост.
// Уникальный индекс (post_id, user_id) делает toggle атомарной
// set-операцией: повторная вставка не дает дубликата даже при
// конкурентных запросах.
type PostLike struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	PostID    int64     `gorm:"index:post_like_idx,unique" json:"post_id"`
	UserID    int64     `gorm:"index:post_like_idx,unique" json:"user_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (PostLike) TableName() string {
	return "post_likes"
}

// PostView - журнал просмотров поста авторизованными пользователями.
// Счетчик posts.views при этом инкрементируется на каждый запрос
// без дедупликации, журнал его не ограничивает.
type PostView struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	PostID    int64     `gorm:"index" json:"post_id"`
	UserID    int64     `gorm:"index" json:"user_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (PostView) TableName() string {
	return "post_views"
}

// PostAuthor - данные автора, раскрываемые при выдаче поста
type PostAuthor struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Image string `json:"image,omitempty"`
}

// FeedPost - пост с раскрытым автором и количеством лайков для API
type FeedPost struct {
	Post
	Author     PostAuthor `json:"author"`
	LikesCount int64      `json:"likesCount"`
}
