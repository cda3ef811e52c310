package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"connect/db"
	"connect/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	FEED_LIMIT       = 20               // Размер первой (и единственной) страницы ленты
	FEED_CACHE_KEY   = "feed:front"     // Ключ кеша первой страницы
	FEED_CACHE_TTL   = 60 * time.Second // TTL кеша ленты
	LIKES_KEY_PREFIX = "post_likes:"    // Префикс кеша количества лайков
)

// PlaceholderImagePath записывается вместо реального пути к картинке:
// интеграции с хранилищем изображений нет, байты загрузки не сохраняются.
const PlaceholderImagePath = "/api/placeholder/800/600"

var ErrPostNotFound = errors.New("post not found")

type CreatePostInput struct {
	Title        string
	Content      string
	InstagramURL string
}

type PostService struct{}

func NewPostService() *PostService {
	return &PostService{}
}

// List возвращает до FEED_LIMIT самых свежих постов с раскрытыми авторами
func (ps *PostService) List(ctx context.Context) ([]models.FeedPost, error) {
	if cached, ok := ps.feedFromCache(ctx); ok {
		return cached, nil
	}

	var posts []models.Post
	err := db.GetReadOnlyDB(ctx).
		Order("created_at DESC, id DESC").
		Limit(FEED_LIMIT).
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	feed, err := ps.decorate(db.GetReadOnlyDB(ctx), posts)
	if err != nil {
		return nil, err
	}

	go ps.cacheFeed(context.Background(), feed)

	return feed, nil
}

// GetByID возвращает пост с раскрытым автором, инкрементируя счетчик
// просмотров ровно на 1 на каждый вызов. Инкремент безусловный: повторные
// запросы одного и того же зрителя тоже считаются, дедупликации нет.
// Для авторизованного зрителя дополнительно пишется журнальная запись.
func (ps *PostService) GetByID(ctx context.Context, postID int64, viewerID int64) (*models.FeedPost, error) {
	res := db.GetWriteDB(ctx).
		Model(&models.Post{}).
		Where("id = ?", postID).
		UpdateColumn("views", gorm.Expr("views + 1"))
	if res.Error != nil {
		return nil, fmt.Errorf("failed to increment views: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrPostNotFound
	}

	if viewerID > 0 {
		view := models.PostView{PostID: postID, UserID: viewerID}
		if err := db.GetWriteDB(ctx).Create(&view).Error; err != nil {
			log.Printf("ERROR: Failed to record view for post %d: %v", postID, err)
		}
	}

	return ps.loadOne(ctx, postID)
}

// Create сохраняет новый пост от имени автора и возвращает его с
// раскрытым автором. Байты картинок не сохраняются - пишется
// placeholder-путь.
func (ps *PostService) Create(ctx context.Context, authorID int64, in CreatePostInput) (*models.FeedPost, error) {
	post := &models.Post{
		Title:            in.Title,
		Content:          in.Content,
		MainImage:        PlaceholderImagePath,
		AdditionalImages: []string{},
		InstagramURL:     in.InstagramURL,
		AuthorID:         authorID,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}

	if err := db.GetWriteDB(ctx).Create(post).Error; err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	ps.invalidateFeedCache(ctx)
	PublishPostEvent(ctx, PostEvent{Event: "post_created", PostID: post.ID, ActorID: authorID, CreatedAt: post.CreatedAt})

	return ps.loadOne(ctx, post.ID)
}

// Delete удаляет пост по идентификатору. Проверки владения нет.
func (ps *PostService) Delete(ctx context.Context, postID int64) error {
	res := db.GetWriteDB(ctx).Where("id = ?", postID).Delete(&models.Post{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete post: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrPostNotFound
	}

	// Подчищаем связанные записи, внешних ключей в схеме нет
	if err := db.GetWriteDB(ctx).Where("post_id = ?", postID).Delete(&models.PostLike{}).Error; err != nil {
		log.Printf("ERROR: Failed to cleanup likes for post %d: %v", postID, err)
	}
	if err := db.GetWriteDB(ctx).Where("post_id = ?", postID).Delete(&models.PostView{}).Error; err != nil {
		log.Printf("ERROR: Failed to cleanup views for post %d: %v", postID, err)
	}

	ps.invalidateFeedCache(ctx)
	ps.invalidateLikesCache(ctx, postID)
	PublishPostEvent(ctx, PostEvent{Event: "post_deleted", PostID: postID, CreatedAt: time.Now()})

	return nil
}

// ToggleLike переключает принадлежность пользователя к множеству
// лайкнувших пост. Toggle выполняется атомарными set-операциями
// хранилища (DELETE по ключу, иначе INSERT c ON CONFLICT DO NOTHING),
// а не чтением-модификацией массива, поэтому конкурентные запросы не
// теряют обновления.
func (ps *PostService) ToggleLike(ctx context.Context, postID int64, userID int64) (liked bool, likesCount int64, err error) {
	// Проверяем существование на мастере: свежесозданный пост мог еще
	// не доехать до реплики
	var exists int64
	err = db.GetWriteDB(ctx).Model(&models.Post{}).Where("id = ?", postID).Count(&exists).Error
	if err != nil {
		return false, 0, fmt.Errorf("failed to check post: %w", err)
	}
	if exists == 0 {
		return false, 0, ErrPostNotFound
	}

	res := db.GetWriteDB(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Delete(&models.PostLike{})
	if res.Error != nil {
		return false, 0, fmt.Errorf("failed to remove like: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		like := models.PostLike{PostID: postID, UserID: userID}
		err = db.GetWriteDB(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&like).Error
		if err != nil {
			return false, 0, fmt.Errorf("failed to add like: %w", err)
		}
		liked = true
	}

	// Счет тоже на мастере, иначе только что записанный лайк может
	// не попасть в ответ
	err = db.GetWriteDB(ctx).Model(&models.PostLike{}).Where("post_id = ?", postID).Count(&likesCount).Error
	if err != nil {
		return false, 0, fmt.Errorf("failed to count likes: %w", err)
	}

	ps.cacheLikesCount(ctx, postID, likesCount)
	ps.invalidateFeedCache(ctx)
	PublishPostEvent(ctx, PostEvent{Event: "post_liked", PostID: postID, ActorID: userID, Liked: liked, CreatedAt: time.Now()})

	return liked, likesCount, nil
}

// LikedPosts возвращает посты, лайкнутые пользователем, свежие первыми
func (ps *PostService) LikedPosts(ctx context.Context, userID int64) ([]models.FeedPost, error) {
	var posts []models.Post
	err := db.GetReadOnlyDB(ctx).
		Joins("JOIN post_likes pl ON pl.post_id = posts.id").
		Where("pl.user_id = ?", userID).
		Order("pl.created_at DESC").
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list liked posts: %w", err)
	}
	return ps.decorate(db.GetReadOnlyDB(ctx), posts)
}

// ViewedPosts возвращает посты из журнала просмотров пользователя
func (ps *PostService) ViewedPosts(ctx context.Context, userID int64) ([]models.FeedPost, error) {
	var postIDs []int64
	err := db.GetReadOnlyDB(ctx).
		Model(&models.PostView{}).
		Where("user_id = ?", userID).
		Group("post_id").
		Order("MAX(created_at) DESC").
		Pluck("post_id", &postIDs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list viewed posts: %w", err)
	}
	if len(postIDs) == 0 {
		return []models.FeedPost{}, nil
	}

	var posts []models.Post
	if err := db.GetReadOnlyDB(ctx).Where("id IN ?", postIDs).Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("failed to load viewed posts: %w", err)
	}

	// Сохраняем порядок журнала
	byID := make(map[int64]models.Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}
	ordered := make([]models.Post, 0, len(posts))
	for _, id := range postIDs {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}

	return ps.decorate(db.GetReadOnlyDB(ctx), ordered)
}

// loadOne загружает один пост с раскрытым автором, не трогая счетчики.
// Вызывается сразу после записи, поэтому читает с мастера: реплика
// может еще не видеть свежий пост
func (ps *PostService) loadOne(ctx context.Context, postID int64) (*models.FeedPost, error) {
	tx := db.GetWriteDB(ctx)
	var post models.Post
	err := tx.Where("id = ?", postID).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load post: %w", err)
	}

	feed, err := ps.decorate(tx, []models.Post{post})
	if err != nil {
		return nil, err
	}
	return &feed[0], nil
}

// decorate раскрывает авторов и количества лайков для набора постов
func (ps *PostService) decorate(tx *gorm.DB, posts []models.Post) ([]models.FeedPost, error) {
	if len(posts) == 0 {
		return []models.FeedPost{}, nil
	}

	authorIDs := make([]int64, 0, len(posts))
	postIDs := make([]int64, 0, len(posts))
	for _, p := range posts {
		authorIDs = append(authorIDs, p.AuthorID)
		postIDs = append(postIDs, p.ID)
	}

	var authors []models.User
	err := tx.Where("id IN ?", authorIDs).Find(&authors).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load authors: %w", err)
	}
	authorByID := make(map[int64]models.PostAuthor, len(authors))
	for _, u := range authors {
		authorByID[u.ID] = models.PostAuthor{ID: u.ID, Name: u.Name, Email: u.Email, Image: u.Image}
	}

	type likeRow struct {
		PostID int64
		Count  int64
	}
	var likeRows []likeRow
	err = tx.
		Model(&models.PostLike{}).
		Select("post_id, COUNT(*) as count").
		Where("post_id IN ?", postIDs).
		Group("post_id").
		Scan(&likeRows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count likes: %w", err)
	}
	likesByPost := make(map[int64]int64, len(likeRows))
	for _, r := range likeRows {
		likesByPost[r.PostID] = r.Count
	}

	feed := make([]models.FeedPost, 0, len(posts))
	for _, p := range posts {
		feed = append(feed, models.FeedPost{
			Post:       p,
			Author:     authorByID[p.AuthorID],
			LikesCount: likesByPost[p.ID],
		})
	}
	return feed, nil
}

// feedFromCache пытается отдать первую страницу ленты из Redis
func (ps *PostService) feedFromCache(ctx context.Context) ([]models.FeedPost, bool) {
	if RedisClient == nil {
		return nil, false
	}
	data, err := RedisClient.Get(ctx, FEED_CACHE_KEY).Bytes()
	if err != nil {
		return nil, false
	}
	var feed []models.FeedPost
	if err := json.Unmarshal(data, &feed); err != nil {
		return nil, false
	}
	return feed, true
}

// cacheFeed кеширует первую страницу ленты c коротким TTL
func (ps *PostService) cacheFeed(ctx context.Context, feed []models.FeedPost) {
	if RedisClient == nil || len(feed) == 0 {
		return
	}
	data, err := json.Marshal(feed)
	if err != nil {
		log.Printf("ERROR: Failed to marshal feed for caching: %v", err)
		return
	}
	RedisClient.Set(ctx, FEED_CACHE_KEY, data, FEED_CACHE_TTL)
}

func (ps *PostService) invalidateFeedCache(ctx context.Context) {
	if RedisClient == nil {
		return
	}
	RedisClient.Del(ctx, FEED_CACHE_KEY)
}

func (ps *PostService) cacheLikesCount(ctx context.Context, postID int64, count int64) {
	if RedisClient == nil {
		return
	}
	RedisClient.Set(ctx, fmt.Sprintf("%s%d", LIKES_KEY_PREFIX, postID), count, FEED_CACHE_TTL)
}

func (ps *PostService) invalidateLikesCache(ctx context.Context, postID int64) {
	if RedisClient == nil {
		return
	}
	RedisClient.Del(ctx, fmt.Sprintf("%s%d", LIKES_KEY_PREFIX, postID))
}
