package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/usercenter/pkg/accounts"
	"github.com/platinummonkey/usercenter/pkg/auth"
	"github.com/platinummonkey/usercenter/pkg/httputil"
	"github.com/platinummonkey/usercenter/pkg/middleware"
	"github.com/platinummonkey/usercenter/pkg/session"
)

// AccountHandlers handles account HTTP requests
type AccountHandlers struct {
	service         *accounts.Service
	credentialLimit func(http.Handler) http.Handler
}

// NewAccountHandlers creates account handlers. limit may be nil to disable
// rate limiting of register and login.
func NewAccountHandlers(service *accounts.Service, limit *middleware.RateLimitMiddleware) *AccountHandlers {
	h := &AccountHandlers{service: service}
	if limit != nil {
		h.credentialLimit = limit.Handler
	}
	return h
}

// RegisterRoutes registers account routes under /api/user
func (h *AccountHandlers) RegisterRoutes(router *mux.Router) {
	r := router.PathPrefix("/api/user").Subrouter()
	admin := middleware.RequireRole(auth.RoleAdmin)

	// Anonymous credential routes
	r.Handle("/register", h.limited(h.register)).Methods("POST")
	r.Handle("/login", h.limited(h.login)).Methods("POST")
	r.HandleFunc("/login/wx_open", h.loginByExternalCode).Methods("GET")

	// Session routes
	r.HandleFunc("/link/wx_open", h.linkExternalIdentity).Methods("GET")
	r.HandleFunc("/logout", h.logout).Methods("POST")
	r.HandleFunc("/get/login", h.getSelf).Methods("GET")
	r.HandleFunc("/session/refresh", h.refreshSession).Methods("POST")
	r.HandleFunc("/update/my", h.updateSelf).Methods("POST")

	// Public routes
	r.HandleFunc("/get/vo", h.getPublicByID).Methods("GET")
	r.HandleFunc("/list/page/vo", h.listPublicPage).Methods("POST")

	// Admin routes
	r.Handle("/add", admin(http.HandlerFunc(h.adminCreate))).Methods("POST")
	r.Handle("/delete", admin(http.HandlerFunc(h.adminDelete))).Methods("POST")
	r.Handle("/update", admin(http.HandlerFunc(h.adminUpdate))).Methods("POST")
	r.Handle("/get", admin(http.HandlerFunc(h.adminGetByID))).Methods("GET")
	r.Handle("/list/page", admin(http.HandlerFunc(h.adminListPage))).Methods("POST")
}

func (h *AccountHandlers) limited(fn http.HandlerFunc) http.Handler {
	if h.credentialLimit == nil {
		return fn
	}
	return h.credentialLimit(fn)
}

// session returns the request session, writing a system error when the
// session middleware is not installed
func (h *AccountHandlers) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess := session.FromContext(r.Context())
	if sess == nil {
		httputil.WriteAccountError(w, auth.SystemError("session unavailable", nil))
		return nil, false
	}
	return sess, true
}

// respond writes data or the account error
func respond(w http.ResponseWriter, data interface{}, err error) {
	if err != nil {
		httputil.WriteAccountError(w, err)
		return
	}
	httputil.WriteSuccess(w, data)
}

// register handles POST /api/user/register
func (h *AccountHandlers) register(w http.ResponseWriter, r *http.Request) {
	var req accounts.RegisterRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	id, err := h.service.Register(r.Context(), req)
	respond(w, id, err)
}

// login handles POST /api/user/login
func (h *AccountHandlers) login(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req accounts.LoginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	view, err := h.service.Login(r.Context(), sess, req)
	respond(w, view, err)
}

// loginByExternalCode handles GET /api/user/login/wx_open?code=
func (h *AccountHandlers) loginByExternalCode(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	view, err := h.service.LoginByExternalCode(r.Context(), sess, httputil.ParseQueryString(r, "code", ""))
	respond(w, view, err)
}

// linkExternalIdentity handles GET /api/user/link/wx_open?code=
func (h *AccountHandlers) linkExternalIdentity(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	view, err := h.service.LinkExternalIdentity(r.Context(), sess, httputil.ParseQueryString(r, "code", ""))
	respond(w, view, err)
}

// logout handles POST /api/user/logout
func (h *AccountHandlers) logout(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	respond(w, true, h.service.Logout(r.Context(), sess))
}

// getSelf handles GET /api/user/get/login
func (h *AccountHandlers) getSelf(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	view, err := h.service.GetSelf(r.Context(), sess)
	respond(w, view, err)
}

// refreshSession handles POST /api/user/session/refresh
func (h *AccountHandlers) refreshSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	view, err := h.service.RefreshSession(r.Context(), sess)
	respond(w, view, err)
}

// updateSelf handles POST /api/user/update/my
func (h *AccountHandlers) updateSelf(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req accounts.UpdateSelfRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	respond(w, true, h.service.UpdateSelf(r.Context(), sess, req))
}

// getPublicByID handles GET /api/user/get/vo?id=
func (h *AccountHandlers) getPublicByID(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseQueryInt64OrError(w, r, "id", 0)
	if !ok {
		return
	}
	view, err := h.service.GetPublicByID(r.Context(), id)
	respond(w, view, err)
}

// listPublicPage handles POST /api/user/list/page/vo
func (h *AccountHandlers) listPublicPage(w http.ResponseWriter, r *http.Request) {
	var req accounts.QueryRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	page, err := h.service.ListPublicPage(r.Context(), req)
	respond(w, page, err)
}

// adminCreate handles POST /api/user/add
func (h *AccountHandlers) adminCreate(w http.ResponseWriter, r *http.Request) {
	var req accounts.CreateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	id, err := h.service.AdminCreate(r.Context(), req)
	respond(w, id, err)
}

// adminDelete handles POST /api/user/delete
func (h *AccountHandlers) adminDelete(w http.ResponseWriter, r *http.Request) {
	var req accounts.DeleteRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	respond(w, true, h.service.AdminDelete(r.Context(), req.ID))
}

// adminUpdate handles POST /api/user/update
func (h *AccountHandlers) adminUpdate(w http.ResponseWriter, r *http.Request) {
	var req accounts.UpdateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	respond(w, true, h.service.AdminUpdate(r.Context(), req))
}

// adminGetByID handles GET /api/user/get?id=
func (h *AccountHandlers) adminGetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseQueryInt64OrError(w, r, "id", 0)
	if !ok {
		return
	}
	account, err := h.service.AdminGetByID(r.Context(), id)
	respond(w, account, err)
}

// adminListPage handles POST /api/user/list/page
func (h *AccountHandlers) adminListPage(w http.ResponseWriter, r *http.Request) {
	var req accounts.QueryRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	page, err := h.service.AdminListPage(r.Context(), req)
	respond(w, page, err)
}
