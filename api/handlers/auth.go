package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"connect/api/middleware"
	"connect/config"
	"connect/models"
	"connect/services"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
)

const (
	googleIssuer     = "https://accounts.google.com"
	kakaoAuthURL     = "https://kauth.kakao.com/oauth/authorize"
	kakaoTokenURL    = "https://kauth.kakao.com/oauth/token"
	kakaoUserInfoURL = "https://kapi.kakao.com/v2/user/me"

	stateCookieName = "oauth_state"
	sessionTTLSecs  = 30 * 24 * 3600
)

type oauthProvider struct {
	name   models.AuthProvider
	config *oauth2.Config
	// verifier непустой только у OIDC-провайдеров (google)
	verifier *oidc.IDTokenVerifier
}

// AuthHandler делегирует проверку личности внешним OAuth-провайдерам
// и связывает сессию с локальной записью пользователя
type AuthHandler struct {
	providers    map[string]*oauthProvider
	userService  *services.UserService
	stateSecret  []byte
	postLoginURL string
}

// NewAuthHandler собирает клиентов для всех включенных в конфиге
// провайдеров. Любая ошибка здесь - ошибка старта процесса.
func NewAuthHandler(ctx context.Context, cfg *config.ConfigSchema) (*AuthHandler, error) {
	h := &AuthHandler{
		providers:    make(map[string]*oauthProvider),
		userService:  services.NewUserService(),
		stateSecret:  []byte(cfg.Secrets.SessionSecret),
		postLoginURL: cfg.Auth.PostLoginRedirect,
	}
	if h.postLoginURL == "" {
		h.postLoginURL = "/"
	}

	for _, name := range cfg.Auth.Providers {
		client, err := cfg.ProviderClient(name)
		if err != nil {
			return nil, err
		}

		switch name {
		case "google":
			provider, err := oidc.NewProvider(ctx, googleIssuer)
			if err != nil {
				return nil, fmt.Errorf("failed to create google OIDC provider: %w", err)
			}
			h.providers[name] = &oauthProvider{
				name: models.GOOGLE,
				config: &oauth2.Config{
					ClientID:     client.ClientID,
					ClientSecret: client.ClientSecret,
					RedirectURL:  client.RedirectURL,
					Endpoint:     provider.Endpoint(),
					Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
				},
				verifier: provider.Verifier(&oidc.Config{ClientID: client.ClientID}),
			}
		case "kakao":
			h.providers[name] = &oauthProvider{
				name: models.KAKAO,
				config: &oauth2.Config{
					ClientID:     client.ClientID,
					ClientSecret: client.ClientSecret,
					RedirectURL:  client.RedirectURL,
					Endpoint: oauth2.Endpoint{
						AuthURL:  kakaoAuthURL,
						TokenURL: kakaoTokenURL,
					},
					Scopes: []string{"account_email", "profile_nickname", "profile_image"},
				},
			}
		default:
			return nil, fmt.Errorf("unsupported oauth provider %q", name)
		}
	}

	return h, nil
}

// signState выдает state вида nonce.sig, где sig - HMAC от nonce.
// Подпись не дает подставить чужой state в callback.
func (a *AuthHandler) signState() (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	encoded := base64.RawURLEncoding.EncodeToString(nonce)
	mac := hmac.New(sha256.New, a.stateSecret)
	mac.Write([]byte(encoded))
	return encoded + "." + hex.EncodeToString(mac.Sum(nil)), nil
}

func (a *AuthHandler) verifyState(state string) bool {
	parts := strings.SplitN(state, ".", 2)
	if len(parts) != 2 {
		return false
	}
	mac := hmac.New(sha256.New, a.stateSecret)
	mac.Write([]byte(parts[0]))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(parts[1]))
}

// Login уводит браузер на страницу согласия провайдера
func (a *AuthHandler) Login(c *gin.Context) {
	provider, ok := a.providers[c.Param("provider")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown provider"})
		return
	}

	state, err := a.signState()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.SetCookie(stateCookieName, state, 600, "/", "", false, true)
	c.Redirect(http.StatusFound, provider.config.AuthCodeURL(state))
}

// Callback обменивает код на токены, забирает профиль у провайдера,
// создает или находит пользователя по email и выдает сессию
func (a *AuthHandler) Callback(c *gin.Context) {
	provider, ok := a.providers[c.Param("provider")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown provider"})
		return
	}

	state := c.Query("state")
	cookieState, err := c.Cookie(stateCookieName)
	if err != nil || state == "" || state != cookieState || !a.verifyState(state) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid state"})
		return
	}
	c.SetCookie(stateCookieName, "", -1, "/", "", false, true)

	token, err := provider.config.Exchange(c.Request.Context(), c.Query("code"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to exchange authorization code"})
		return
	}

	profile, err := a.fetchProfile(c.Request.Context(), provider, token)
	if err != nil {
		log.Printf("ERROR: Failed to fetch profile from %s: %v", provider.name, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch profile from provider"})
		return
	}

	user, err := a.userService.UpsertByEmail(c.Request.Context(), *profile)
	if err != nil {
		log.Printf("ERROR: Failed to upsert user %s: %v", profile.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	sessionToken, err := a.userService.CreateSession(c.Request.Context(), user.ID)
	if err != nil {
		log.Printf("ERROR: Failed to create session for user %d: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.SetCookie(middleware.SessionCookieName, sessionToken, sessionTTLSecs, "/", "", false, true)
	c.Redirect(http.StatusFound, a.postLoginURL)
}

// Logout сносит сессию и чистит cookie
func (a *AuthHandler) Logout(c *gin.Context) {
	if token, err := c.Cookie(middleware.SessionCookieName); err == nil && token != "" {
		if err := a.userService.DeleteSession(c.Request.Context(), token); err != nil {
			log.Printf("ERROR: Failed to delete session: %v", err)
		}
	}
	c.SetCookie(middleware.SessionCookieName, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logout successful"})
}

// fetchProfile достает имя/email/аватар из ответа провайдера
func (a *AuthHandler) fetchProfile(ctx context.Context, provider *oauthProvider, token *oauth2.Token) (*services.ProviderProfile, error) {
	if provider.verifier != nil {
		rawIDToken, ok := token.Extra("id_token").(string)
		if !ok {
			return nil, fmt.Errorf("no id_token in token response")
		}
		idToken, err := provider.verifier.Verify(ctx, rawIDToken)
		if err != nil {
			return nil, fmt.Errorf("failed to verify ID token: %w", err)
		}
		var claims struct {
			Name    string `json:"name"`
			Email   string `json:"email"`
			Picture string `json:"picture"`
		}
		if err := idToken.Claims(&claims); err != nil {
			return nil, fmt.Errorf("failed to parse ID token claims: %w", err)
		}
		return &services.ProviderProfile{
			Name:     claims.Name,
			Email:    claims.Email,
			Image:    claims.Picture,
			Provider: provider.name,
		}, nil
	}

	// Kakao не OIDC: профиль забираем отдельным запросом
	resp, err := provider.config.Client(ctx, token).Get(kakaoUserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch kakao userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("kakao userinfo returned status %d", resp.StatusCode)
	}

	var payload struct {
		KakaoAccount struct {
			Email   string `json:"email"`
			Profile struct {
				Nickname        string `json:"nickname"`
				ProfileImageURL string `json:"profile_image_url"`
			} `json:"profile"`
		} `json:"kakao_account"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to parse kakao userinfo: %w", err)
	}

	return &services.ProviderProfile{
		Name:     payload.KakaoAccount.Profile.Nickname,
		Email:    payload.KakaoAccount.Email,
		Image:    payload.KakaoAccount.Profile.ProfileImageURL,
		Provider: provider.name,
	}, nil
}
