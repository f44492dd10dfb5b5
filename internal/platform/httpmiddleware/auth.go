package httpmiddleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"linkcut.local/internal/platform/auth"
)

// parseBearer 解析 Authorization header 中的 Bearer token。
// 格式不正确时返回空字符串。
func parseBearer(header string) string {
	fields := strings.Fields(header)
	if len(fields) != 2 || !strings.EqualFold(fields[0], "Bearer") {
		return ""
	}
	return fields[1]
}

// AdminAuth 要求请求携带有效的 operator JWT，用于管理路由组。
func AdminAuth(ts auth.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := parseBearer(r.Header.Get("Authorization"))
			if token == "" {
				unauthorized(w, r, "missing or malformed authorization header")
				return
			}
			claims, err := ts.Verify(token)
			if err != nil {
				unauthorized(w, r, "invalid token")
				return
			}
			if claims.Role != "operator" {
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, map[string]string{"error": "forbidden"})
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), claims)))
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, map[string]string{"error": msg})
}
