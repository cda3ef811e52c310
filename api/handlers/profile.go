package handlers

import (
	"log"
	"net/http"

	"connect/services"

	"github.com/gin-gonic/gin"
)

var profileUserService = services.NewUserService()

// Me возвращает запись аутентифицированного пользователя
func Me(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	user, err := profileUserService.GetByID(c.Request.Context(), userID.(int64))
	if err != nil {
		log.Printf("ERROR: Failed to load user %d: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// LikedPosts отдает посты, лайкнутые принципалом. Серверное состояние
// здесь первично: клиент синхронизирует свой локальный кеш с этим
// списком, а не наоборот.
func LikedPosts(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	posts, err := postService.LikedPosts(c.Request.Context(), userID.(int64))
	if err != nil {
		log.Printf("ERROR: Failed to list liked posts for user %d: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch liked posts"})
		return
	}

	c.JSON(http.StatusOK, posts)
}

// ViewedPosts отдает журнал просмотров принципала, свежие первыми
func ViewedPosts(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	posts, err := postService.ViewedPosts(c.Request.Context(), userID.(int64))
	if err != nil {
		log.Printf("ERROR: Failed to list viewed posts for user %d: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch viewed posts"})
		return
	}

	c.JSON(http.StatusOK, posts)
}
