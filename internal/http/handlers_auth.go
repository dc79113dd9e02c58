package httpx

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	domainauth "github.com/target/mmk-auth/internal/domain/auth"
	"github.com/target/mmk-auth/internal/domain/model"
	"github.com/target/mmk-auth/internal/ports"
	"github.com/target/mmk-auth/internal/service"
)

// AuthHandlers exposes the AuthService flows as JSON endpoints.
type AuthHandlers struct {
	Svc     *service.AuthService[*model.User]
	Cookies CookieOptions
	// EchoCodes includes issued codes in responses. Development only.
	EchoCodes bool
	// PostLoginRedirect is where delegated callbacks send the browser. Empty answers with JSON.
	PostLoginRedirect string
	Logger            *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *AuthHandlers) rc(w http.ResponseWriter, r *http.Request) *RequestContext {
	return NewRequestContext(w, r, h.Cookies)
}

func (h *AuthHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	WriteAppError(w, r, h.logger(), err)
}

type recipientRequest struct {
	To   string `json:"to"`
	Type string `json:"type,omitempty"`
}

type codeRequest struct {
	To   string `json:"to"`
	Type string `json:"type,omitempty"`
	Code string `json:"code"`
}

type loginResponse struct {
	User      *model.User `json:"user"`
	ExpiresAt time.Time   `json:"expires_at"`
}

type codeResponse struct {
	Type      domainauth.RecipientType `json:"type"`
	To        string                   `json:"to"`
	ExpiresAt time.Time                `json:"expires_at"`
	Code      string                   `json:"code,omitempty"`
}

func (h *AuthHandlers) writeLogin(w http.ResponseWriter, res *service.LoginResult[*model.User]) {
	WriteJSON(w, http.StatusOK, loginResponse{User: res.User, ExpiresAt: res.Session.EndTime})
}

func (h *AuthHandlers) writeCode(w http.ResponseWriter, issued *service.CodeIssued) {
	resp := codeResponse{Type: issued.Type, To: issued.To, ExpiresAt: issued.EndTime}
	if h.EchoCodes {
		resp.Code = issued.Code
	}
	WriteJSON(w, http.StatusAccepted, resp)
}

// Register handles POST /auth/password/register. Every key other than the password pair is a user field.
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	if !DecodeJSON(w, r, &body) {
		return
	}
	in := service.RegisterInput{
		Password:       body["password"],
		PasswordRepeat: body["password_repeat"],
		Fields:         make(ports.UserData, len(body)),
	}
	for k, v := range body {
		if k == "password" || k == "password_repeat" {
			continue
		}
		in.Fields[k] = v
	}

	user, err := h.Svc.RegisterByPassword(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]any{"user": user})
}

// Login handles POST /auth/password/login.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Identity string `json:"identity"`
		Password string `json:"password"`
	}
	if !DecodeJSON(w, r, &body) {
		return
	}
	res, err := h.Svc.LoginByPassword(r.Context(), h.rc(w, r), service.LoginInput{
		Identity: body.Identity,
		Password: body.Password,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeLogin(w, res)
}

// ChangePassword handles POST /auth/password/change.
func (h *AuthHandlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		OldPassword    string `json:"old_password"`
		Password       string `json:"password"`
		PasswordRepeat string `json:"password_repeat"`
	}
	if !DecodeJSON(w, r, &body) {
		return
	}
	err := h.Svc.ChangePassword(r.Context(), h.rc(w, r), service.ChangePasswordInput{
		OldPassword:    body.OldPassword,
		Password:       body.Password,
		PasswordRepeat: body.PasswordRepeat,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RequestCode handles POST /auth/code.
func (h *AuthHandlers) RequestCode(w http.ResponseWriter, r *http.Request) {
	var body recipientRequest
	if !DecodeJSON(w, r, &body) {
		return
	}
	issued, err := h.Svc.RequestLoginCode(r.Context(), service.CodeRequestInput{
		To:   body.To,
		Type: domainauth.RecipientType(body.Type),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeCode(w, issued)
}

// LoginByCode handles POST /auth/code/login.
func (h *AuthHandlers) LoginByCode(w http.ResponseWriter, r *http.Request) {
	var body codeRequest
	if !DecodeJSON(w, r, &body) {
		return
	}
	res, err := h.Svc.LoginByCode(r.Context(), h.rc(w, r), service.CodeLoginInput{
		To:   body.To,
		Type: domainauth.RecipientType(body.Type),
		Code: body.Code,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeLogin(w, res)
}

// RequestConfirmation handles POST /auth/confirm.
func (h *AuthHandlers) RequestConfirmation(w http.ResponseWriter, r *http.Request) {
	var body recipientRequest
	if !DecodeJSON(w, r, &body) {
		return
	}
	issued, err := h.Svc.RequestConfirmation(r.Context(), h.rc(w, r), service.CodeRequestInput{
		To:   body.To,
		Type: domainauth.RecipientType(body.Type),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeCode(w, issued)
}

// Confirm handles POST /auth/confirm/complete.
func (h *AuthHandlers) Confirm(w http.ResponseWriter, r *http.Request) {
	var body codeRequest
	if !DecodeJSON(w, r, &body) {
		return
	}
	c, err := h.Svc.Confirm(r.Context(), h.rc(w, r), service.ConfirmInput{
		To:   body.To,
		Type: domainauth.RecipientType(body.Type),
		Code: body.Code,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"type":         c.Type,
		"to":           c.To,
		"confirmed_at": c.CompleteTime,
	})
}

// RequestRecovery handles POST /auth/recovery.
func (h *AuthHandlers) RequestRecovery(w http.ResponseWriter, r *http.Request) {
	var body recipientRequest
	if !DecodeJSON(w, r, &body) {
		return
	}
	issued, err := h.Svc.RequestRecovery(r.Context(), service.RecoveryRequestInput{
		To:   body.To,
		Type: domainauth.RecipientType(body.Type),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeCode(w, issued)
}

// Recover handles POST /auth/recovery/complete.
func (h *AuthHandlers) Recover(w http.ResponseWriter, r *http.Request) {
	var body struct {
		To             string `json:"to"`
		Type           string `json:"type,omitempty"`
		Code           string `json:"code"`
		Password       string `json:"password"`
		PasswordRepeat string `json:"password_repeat"`
	}
	if !DecodeJSON(w, r, &body) {
		return
	}
	err := h.Svc.Recover(r.Context(), service.RecoverInput{
		To:             body.To,
		Type:           domainauth.RecipientType(body.Type),
		Code:           body.Code,
		Password:       body.Password,
		PasswordRepeat: body.PasswordRepeat,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// OAuthStart handles GET /auth/oauth/{provider} by redirecting to the provider.
func (h *AuthHandlers) OAuthStart(w http.ResponseWriter, r *http.Request) {
	link, err := h.Svc.DelegatedAuthLink(r.Context(), r.PathValue("provider"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	http.Redirect(w, r, link, http.StatusFound)
}

// OAuthCallback handles GET /auth/oauth/{provider}/callback. The query string is the payload.
func (h *AuthHandlers) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	payload := make(map[string]string)
	for k, vs := range r.URL.Query() {
		if len(vs) > 0 {
			payload[k] = vs[0]
		}
	}
	res, err := h.Svc.LoginByDelegated(r.Context(), h.rc(w, r), r.PathValue("provider"), payload)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if h.PostLoginRedirect != "" {
		http.Redirect(w, r, safeRedirectPath(h.PostLoginRedirect), http.StatusFound)
		return
	}
	h.writeLogin(w, res)
}

// Logout handles POST /auth/logout. The cookie is cleared even without an active session.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Logout(r.Context(), h.rc(w, r)); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// KeepAlive handles POST /auth/keepalive.
func (h *AuthHandlers) KeepAlive(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Svc.KeepAlive(r.Context(), h.rc(w, r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"expires_at": sess.EndTime})
}

// Status handles GET /auth/status.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	user, ok, err := h.Svc.CurrentUser(r.Context(), h.rc(w, r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resp := map[string]any{
		"authenticated": ok,
		"methods":       h.Svc.SupportedMethods(),
	}
	if ok {
		resp["user"] = user
	}
	WriteJSON(w, http.StatusOK, resp)
}

// safeRedirectPath ensures the provided redirect is a same-origin relative path
// starting with "/" and not an absolute URL. Returns "/" when invalid.
func safeRedirectPath(candidate string) string {
	if candidate == "" {
		return "/"
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(candidate, "//") {
		return "/"
	}
	return candidate
}
