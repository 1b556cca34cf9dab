package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux      *http.ServeMux
	apiToken string
	logger   *zap.Logger
}

// NewRouter 创建路由器
// apiToken 为空时不做鉴权
func NewRouter(apiToken string, logger *zap.Logger) *Router {
	return &Router{
		mux:      http.NewServeMux(),
		apiToken: apiToken,
		logger:   logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if !r.authorize(w, req) {
		return
	}
	r.mux.ServeHTTP(w, req)
}

// authorize Bearer 令牌校验，令牌未配置时放行
func (r *Router) authorize(w http.ResponseWriter, req *http.Request) bool {
	if r.apiToken == "" {
		return true
	}

	auth := req.Header.Get("Authorization")
	token := strings.TrimPrefix(auth, "Bearer ")
	if auth == "" || token == auth || token != r.apiToken {
		r.logger.Warn("Rejected unauthorized request",
			zap.String("path", req.URL.Path),
			zap.String("remote", req.RemoteAddr),
		)
		writeJSON(w, http.StatusUnauthorized, Fail("unauthorized"))
		return false
	}
	return true
}

// RegisterAlertRoutes 注册报警服务的管理与查询路由
func (r *Router) RegisterAlertRoutes(t *ThresholdHandler, a *AlertHandler, d *ReadingHandler) {
	r.Handle("/api/v1/thresholds", func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet:
			t.GetThresholds(w, req)
		case http.MethodPut:
			t.PutThresholds(w, req)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	r.Handle("/api/v1/alerts", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		a.ListAlerts(w, req)
	})

	r.Handle("/api/v1/alerts/export", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		a.ExportAlerts(w, req)
	})

	r.Handle("/api/v1/readings/latest", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		d.GetLatestReading(w, req)
	})

	r.Handle("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}
