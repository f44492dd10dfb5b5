package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"linkcut.local/internal/app/link"
	"linkcut.local/internal/platform/metrics"
)

// 本包只做传输层工作：参数解析、错误映射、响应格式。
// 领域逻辑在 internal/app/link，SQL 在 internal/app/link/repo。

type CreateRequest struct {
	URL             string `json:"url"`
	ExpirationHours *int   `json:"expirationHours,omitempty"`
}

// NewCreateHandler 处理 POST /api/shorten。
// 校验失败返回 400 和具体规则的错误信息；其余错误一律 500 + 通用提示，
// 细节只进服务端日志。
func NewCreateHandler(svc *link.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			badRequest(w, r, "invalid request body")
			return
		}

		view, err := svc.Create(r.Context(), req.URL, req.ExpirationHours)
		if err != nil {
			if link.IsRejection(err) {
				metrics.LinkRejectedTotal.WithLabelValues(err.Error()).Inc()
				badRequest(w, r, err.Error())
				return
			}
			internalError(w, r)
			return
		}

		metrics.LinkCreatedTotal.Inc()
		render.JSON(w, r, view)
	}
}

// NewRedirectHandler 处理 GET /{code}。
// 未命中一律 302 到通用错误页：不用 404、不解释原因，避免泄露短码是否
// 存在过。
func NewRedirectHandler(svc *link.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		target, err := svc.Resolve(r.Context(), code)
		if err != nil {
			http.Redirect(w, r, "/error.html", http.StatusFound)
			return
		}
		metrics.LinkRedirectsTotal.Inc()
		http.Redirect(w, r, target, http.StatusFound)
	}
}

// NewStatsHandler 处理 GET /api/stats/{code}。查询不触发惰性过期。
func NewStatsHandler(svc *link.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		view, err := svc.Stats(r.Context(), code)
		if err != nil {
			if errors.Is(err, link.ErrNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, map[string]string{"error": "Link not found"})
				return
			}
			internalError(w, r)
			return
		}
		render.JSON(w, r, view)
	}
}

// NewSystemStatsHandler 处理 GET /api/system-stats。
func NewSystemStatsHandler(svc *link.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.SystemStats(r.Context())
		if err != nil {
			internalError(w, r)
			return
		}
		render.JSON(w, r, stats)
	}
}

// NewDisableHandler 处理 POST /api/admin/links/{code}/disable。幂等。
func NewDisableHandler(svc *link.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		if err := svc.Disable(r.Context(), code); err != nil {
			if errors.Is(err, link.ErrNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, map[string]string{"error": "Link not found"})
				return
			}
			internalError(w, r)
			return
		}
		render.JSON(w, r, map[string]string{"status": "disabled"})
	}
}

// NewCleanupHandler 处理 POST /api/admin/cleanup：立刻跑一轮清理。
func NewCleanupHandler(sweeper *link.Sweeper) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count := sweeper.Sweep(r.Context())
		render.JSON(w, r, map[string]int64{"deactivated": count})
	}
}

func badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, map[string]string{"error": msg})
}

func internalError(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusInternalServerError)
	render.JSON(w, r, map[string]string{"error": "An unexpected error occurred"})
}
