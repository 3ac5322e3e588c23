package user

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func runEnsureCookie(t *testing.T, cookie string) (string, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var captured string
	router := gin.New()
	router.GET("/ping", EnsureUserCookieMiddleware(), func(c *gin.Context) {
		captured = CurrentUserID(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: CookieName, Value: cookie})
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return captured, w
}

func TestEnsureCookieKeepsValidID(t *testing.T) {
	const id = "0195b2f0-0000-7000-8000-000000000001"
	captured, w := runEnsureCookie(t, id)
	if w.Code != http.StatusOK {
		t.Fatalf("状态码 = %d, 期望 %d", w.Code, http.StatusOK)
	}
	if captured != id {
		t.Fatalf("上下文中的用户ID = %q, 期望 %q", captured, id)
	}
}

func TestEnsureCookieReplacesInvalidID(t *testing.T) {
	captured, w := runEnsureCookie(t, "not-a-uuid")
	if w.Code != http.StatusOK {
		t.Fatalf("状态码 = %d, 期望 %d", w.Code, http.StatusOK)
	}
	// 无效ID绝不能进入请求上下文
	if captured == "not-a-uuid" {
		t.Fatal("无效的cookie值被传入了请求上下文")
	}
	if !IsValidUUID(captured) {
		t.Fatalf("上下文中的用户ID不是合法UUID: %q", captured)
	}
	found := false
	for _, c := range w.Result().Cookies() {
		if c.Name == CookieName && c.Value == captured {
			found = true
		}
	}
	if !found {
		t.Fatal("响应中没有携带新的用户Cookie")
	}
}

func TestEnsureCookieIssuesIDWhenMissing(t *testing.T) {
	captured, w := runEnsureCookie(t, "")
	if w.Code != http.StatusOK {
		t.Fatalf("状态码 = %d, 期望 %d", w.Code, http.StatusOK)
	}
	if !IsValidUUID(captured) {
		t.Fatalf("上下文中的用户ID不是合法UUID: %q", captured)
	}
}
