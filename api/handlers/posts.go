package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"connect/api/middleware"
	"connect/services"

	"github.com/gin-gonic/gin"
)

const serviceName = "connect"

var postService = services.NewPostService()

func parsePostID(c *gin.Context) (int64, bool) {
	postID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || postID <= 0 {
		// Кривой идентификатор неотличим от несуществующего
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return 0, false
	}
	return postID, true
}

// ListPosts возвращает первую страницу ленты: до 20 свежих постов,
// новые первыми, авторы раскрыты
func ListPosts(c *gin.Context) {
	feed, err := postService.List(c.Request.Context())
	if err != nil {
		log.Printf("ERROR: Failed to list posts: %v", err)
		middleware.RecordPostOperation("list", "error", serviceName)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch posts"})
		return
	}

	middleware.RecordPostOperation("list", "ok", serviceName)
	c.JSON(http.StatusOK, feed)
}

// GetPost возвращает пост по идентификатору, безусловно инкрементируя
// счетчик просмотров
func GetPost(c *gin.Context) {
	postID, ok := parsePostID(c)
	if !ok {
		return
	}

	// Просмотр журналируется только для авторизованного зрителя
	var viewerID int64
	if v, exists := c.Get("user_id"); exists {
		viewerID = v.(int64)
	}

	post, err := postService.GetByID(c.Request.Context(), postID, viewerID)
	if errors.Is(err, services.ErrPostNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}
	if err != nil {
		log.Printf("ERROR: Failed to fetch post %d: %v", postID, err)
		middleware.RecordPostOperation("get", "error", serviceName)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch post"})
		return
	}

	middleware.RecordPostOperation("get", "ok", serviceName)
	c.JSON(http.StatusOK, post)
}

// CreatePost создает пост из multipart-формы. Автор - аутентифицированный
// принципал, без сессии запрос сюда не доходит. Файлы картинок
// принимаются, но не сохраняются - записывается placeholder-путь.
func CreatePost(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	title := c.PostForm("title")
	content := c.PostForm("content")
	instagramURL := c.PostForm("instagramUrl")

	if title == "" || content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title and content are required"})
		return
	}

	post, err := postService.Create(c.Request.Context(), userID.(int64), services.CreatePostInput{
		Title:        title,
		Content:      content,
		InstagramURL: instagramURL,
	})
	if err != nil {
		log.Printf("ERROR: Failed to create post: %v", err)
		middleware.RecordPostOperation("create", "error", serviceName)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create post"})
		return
	}

	middleware.RecordPostOperation("create", "ok", serviceName)
	c.JSON(http.StatusCreated, post)
}

// DeletePost удаляет пост по идентификатору. Проверки владения нет:
// любой аутентифицированный пользователь может удалить любой пост.
func DeletePost(c *gin.Context) {
	postID, ok := parsePostID(c)
	if !ok {
		return
	}

	err := postService.Delete(c.Request.Context(), postID)
	if errors.Is(err, services.ErrPostNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}
	if err != nil {
		log.Printf("ERROR: Failed to delete post %d: %v", postID, err)
		middleware.RecordPostOperation("delete", "error", serviceName)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete post"})
		return
	}

	middleware.RecordPostOperation("delete", "ok", serviceName)
	c.JSON(http.StatusOK, gin.H{"message": "Post deleted successfully"})
}

// ToggleLike переключает лайк принципала на посте и возвращает новое
// состояние вместе с количеством лайков
func ToggleLike(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	postID, ok := parsePostID(c)
	if !ok {
		return
	}

	liked, likesCount, err := postService.ToggleLike(c.Request.Context(), postID, userID.(int64))
	if errors.Is(err, services.ErrPostNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}
	if err != nil {
		log.Printf("ERROR: Failed to toggle like on post %d: %v", postID, err)
		middleware.RecordPostOperation("like", "error", serviceName)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to toggle like"})
		return
	}

	middleware.RecordLikeToggle(liked, serviceName)
	c.JSON(http.StatusOK, gin.H{
		"liked":      liked,
		"likesCount": likesCount,
	})
}
