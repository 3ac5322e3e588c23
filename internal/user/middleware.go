package user

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	CookieName   = "user-id"
	CookieMaxAge = 365 * 24 * 60 * 60
	UserIDKey    = "userID"
)

// EnsureUserCookieMiddleware 确保浏览器中有一个格式正确的user-id cookie。
// 如果没有或格式不正确，生成一个新的临时ID并设置cookie。
func EnsureUserCookieMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := c.Cookie(CookieName)

		if err != nil || !IsValidUUID(userID) {
			if err != http.ErrNoCookie {
				fmt.Printf("检测到无效的用户Cookie: %s, err: %v\n", userID, err)
			}
			provisionalUserID, err := CreateProvisionalUser()
			if err != nil {
				// 不能把无效的ID继续传给后续处理
				fmt.Printf("创建临时用户ID时发生错误: %v\n", err)
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			c.SetCookie(CookieName, provisionalUserID, CookieMaxAge, "/", "", false, true)
			c.Set(UserIDKey, provisionalUserID)
			c.Next()
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// LoadUserMiddleware 读取cookie并将其值放入Gin上下文中。
func LoadUserMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := c.Cookie(CookieName)
		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// CurrentUserID 从Gin上下文中取出当前用户ID，不存在时返回空串。
func CurrentUserID(c *gin.Context) string {
	userID, _ := c.Get(UserIDKey)
	s, _ := userID.(string)
	return s
}
