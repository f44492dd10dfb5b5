package httpapi

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
)

//go:embed static/*
var staticFS embed.FS

// RegisterWebRoutes 挂载内嵌的静态页面。
// 目前只有跳转未命中时使用的通用错误页。
func RegisterWebRoutes(r chi.Router) {
	staticRoot, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic("failed to get static subdirectory: " + err.Error())
	}

	r.Get("/error.html", func(w http.ResponseWriter, req *http.Request) {
		data, err := fs.ReadFile(staticRoot, "error.html")
		if err != nil {
			http.Error(w, "error page not found", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	})

	// 避免 favicon 刷出一堆无意义 404
	r.Get("/favicon.ico", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}
