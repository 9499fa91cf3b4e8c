package handlers

import (
	"net/http"
	"time"

	"interiorly/internal/models"
	"interiorly/internal/services"
	"interiorly/internal/utils"
)

type AdminHandler struct {
	adminAuth  services.AdminAuthService
	stats      services.StatsService
	production bool
	trustProxy bool
}

func NewAdminHandler(adminAuth services.AdminAuthService, stats services.StatsService, production, trustProxy bool) *AdminHandler {
	return &AdminHandler{adminAuth: adminAuth, stats: stats, production: production, trustProxy: trustProxy}
}

func (h *AdminHandler) meta(r *http.Request) models.RequestMeta {
	return models.RequestMeta{IP: utils.ClientIP(r, h.trustProxy), UserAgent: r.UserAgent()}
}

// sessionCookie builds the admin cookie; production needs SameSite=None for the
// cross-site admin console, which in turn requires Secure.
func (h *AdminHandler) sessionCookie(value string, maxAge int) *http.Cookie {
	cookie := &http.Cookie{
		Name:     utils.AdminCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if h.production {
		cookie.Secure = true
		cookie.SameSite = http.SameSiteNoneMode
	}
	return cookie
}

func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.AdminLoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.adminAuth.Login(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *AdminHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req models.AdminVerifyOTPRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.adminAuth.VerifyOTP(r.Context(), &req, h.meta(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	http.SetCookie(w, h.sessionCookie(resp.Token, resp.MaxAge))
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	adminID, err := utils.GetUserIDFromContext(w, r)
	if err != nil {
		return
	}

	if err := h.adminAuth.Logout(r.Context(), adminID, h.meta(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}

	http.SetCookie(w, h.sessionCookie("", -1))
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (h *AdminHandler) Me(w http.ResponseWriter, r *http.Request) {
	adminID, err := utils.GetUserIDFromContext(w, r)
	if err != nil {
		return
	}

	profile, err := h.adminAuth.GetProfile(r.Context(), adminID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, profile)
}

func parseOptionalTime(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	from, err := parseOptionalTime(r.URL.Query().Get("from"))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid from format. Use RFC3339.")
		return
	}
	to, err := parseOptionalTime(r.URL.Query().Get("to"))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid to format. Use RFC3339.")
		return
	}

	stats, err := h.stats.GetStats(r.Context(), from, to)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, stats)
}

