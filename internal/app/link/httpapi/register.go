package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"linkcut.local/internal/app/link"
	"linkcut.local/internal/platform/auth"
	"linkcut.local/internal/platform/httpmiddleware"
)

// RegisterAPIRoutes 挂载 JSON API 路由。
//
// 设计原因：
// - cmd/api 只负责组装和挂载，各业务模块自己提供 Register*Routes
// - 管理路由单独一组，整组套 operator JWT 校验
func RegisterAPIRoutes(r chi.Router, svc *link.Service, sweeper *link.Sweeper, ts auth.TokenService) {
	r.Post("/api/shorten", NewCreateHandler(svc))
	r.Get("/api/stats/{code}", NewStatsHandler(svc))
	r.Get("/api/system-stats", NewSystemStatsHandler(svc))
	r.Get("/api/health", func(w http.ResponseWriter, req *http.Request) {
		render.JSON(w, req, map[string]string{"status": "UP"})
	})

	r.Route("/api/admin", func(admin chi.Router) {
		admin.Use(httpmiddleware.AdminAuth(ts))
		admin.Post("/cleanup", NewCleanupHandler(sweeper))
		admin.Post("/links/{code}/disable", NewDisableHandler(svc))
	})
}

// RegisterPublicRoutes 挂载浏览器直接访问的路由。
//
// 跳转入口刻意不放在 /api 下：短链的使用方式就是直接在浏览器输入
// /{code}。路径正则限定 4~10 位字母数字，和短码的对外契约一致，
// 不符合的 path 根本不会进 handler。
func RegisterPublicRoutes(r chi.Router, svc *link.Service) {
	r.Get(`/{code:[a-zA-Z0-9]{4,10}}`, NewRedirectHandler(svc))
}
