// Package web is the seller cabinet: OTT login bridge, dashboard and
// settings pages, session endpoints. Pages are server-rendered from
// embedded templates; all texts are seller-facing Russian.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/kuzkabot/sellerbot/internal/common"
	"github.com/kuzkabot/sellerbot/internal/logging"
	"github.com/kuzkabot/sellerbot/internal/server/auth"
	"github.com/kuzkabot/sellerbot/internal/server/models"
	"github.com/kuzkabot/sellerbot/internal/wb"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Offered tokens are checked for shape before the store sees them.
var ottRe = regexp.MustCompile(`^[A-Za-z0-9\-\._~=+/]{16,256}$`)

// LoginService is the OTT/session surface the handlers need.
type LoginService interface {
	RedeemLoginToken(ctx context.Context, token string) (string, *models.User, error)
	VerifySession(value string) (int64, error)
}

// CredentialService stores and loads the seller's WB API key.
type CredentialService interface {
	Store(ctx context.Context, telegramID int64, rawKey string) error
	Load(ctx context.Context, telegramID int64) (string, error)
	Has(ctx context.Context, telegramID int64) (bool, error)
}

// UserDirectory resolves the principal row for page rendering.
type UserDirectory interface {
	GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
}

// SellerGateway is the WB data surface the dashboard renders.
type SellerGateway interface {
	SellerInfo(ctx context.Context, token string) (*wb.SellerInfo, error)
	AccountBalance(ctx context.Context, token string) (*wb.Balance, error)
}

// Handlers carries the dependencies of every cabinet endpoint.
type Handlers struct {
	logins        LoginService
	creds         CredentialService
	users         UserDirectory
	wb            SellerGateway
	logger        logging.Logger
	sessionTTL    time.Duration
	secureCookies bool
}

func NewHandlers(
	logins LoginService,
	creds CredentialService,
	users UserDirectory,
	gateway SellerGateway,
	sessionTTL time.Duration,
	secureCookies bool,
	logger logging.Logger,
) *Handlers {
	return &Handlers{
		logins:        logins,
		creds:         creds,
		users:         users,
		wb:            gateway,
		logger:        logger.With("module", "web"),
		sessionTTL:    sessionTTL,
		secureCookies: secureCookies,
	}
}

// Index sends guests to whoami and authenticated sellers to the dashboard.
func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	if _, err := h.sessionID(r); err == nil {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/auth/whoami", http.StatusFound)
}

// Healthz answers liveness probes.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// LoginTG redeems a one-time login token from the bot and establishes the
// web session. Bad, expired and replayed tokens all get the same answer so
// the URL leaks nothing about token state.
func (h *Handlers) LoginTG(w http.ResponseWriter, r *http.Request) {

	token := r.URL.Query().Get("token")
	if token == "" || !ottRe.MatchString(token) {
		http.Error(w, "invalid_or_expired_token", http.StatusBadRequest)
		return
	}

	session, user, err := h.logins.RedeemLoginToken(r.Context(), token)
	if err != nil {
		if !errors.Is(err, common.ErrTokenExpiredOrInvalid) {
			h.logger.Error(r.Context(), "redeeming login token", "error", err)
		}
		http.Error(w, "invalid_or_expired_token", http.StatusBadRequest)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    session,
		Path:     "/",
		MaxAge:   int(h.sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	h.logger.Info(r.Context(), "web login", "telegram_id", user.TelegramID)
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

// WhoAmI reports session state as JSON.
func (h *Handlers) WhoAmI(w http.ResponseWriter, r *http.Request) {
	tgID, err := h.sessionID(r)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"authorized": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"authorized": true, "tg_id": tgID})
}

// Logout drops the session cookie. The JWT itself stays valid until expiry;
// forgetting it is all a stateless session can do.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusFound)
}

type dashboardData struct {
	Title      string
	TelegramID int64
	Role       string
	Seller     *wb.SellerInfo
	Balance    *wb.Balance
	NeedsKey   bool
	Error      string
}

// Dashboard renders seller profile and balance, or the save-your-key
// prompt when no usable credential exists. WB failures degrade to an
// error banner, never to a dead page.
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {

	tgID := sessionFrom(r.Context())
	data := dashboardData{Title: "Кабинет", TelegramID: tgID, Role: h.roleOf(r.Context(), tgID)}

	var errParts []string

	token, err := h.creds.Load(r.Context(), tgID)
	switch {
	case err == nil:
	case errors.Is(err, common.ErrorNotFound):
		data.NeedsKey = true
	case errors.Is(err, common.ErrDecryptionAuthFailure):
		data.NeedsKey = true
		errParts = append(errParts, "Не удалось расшифровать API-ключ. Сохраните его заново в настройках.")
	default:
		h.logger.Error(r.Context(), "loading credential", "telegram_id", tgID, "error", err)
		errParts = append(errParts, "Временная ошибка при чтении ключа.")
	}

	if token != "" {
		if seller, err := h.wb.SellerInfo(r.Context(), token); err != nil {
			errParts = append(errParts, "WB seller-info: "+wbErrText(err))
		} else {
			data.Seller = seller
		}
		if balance, err := h.wb.AccountBalance(r.Context(), token); err != nil {
			errParts = append(errParts, "WB balance: "+wbErrText(err))
		} else {
			data.Balance = balance
		}
	}

	data.Error = strings.Join(errParts, " | ")
	h.render(r.Context(), w, "dashboard.html", data)
}

type settingsData struct {
	Title      string
	TelegramID int64
	Role       string
	HasKey     bool
	Saved      bool
	Error      string
}

// SettingsGet renders the API key form.
func (h *Handlers) SettingsGet(w http.ResponseWriter, r *http.Request) {
	tgID := sessionFrom(r.Context())

	hasKey, err := h.creds.Has(r.Context(), tgID)
	if err != nil {
		h.logger.Error(r.Context(), "checking credential", "telegram_id", tgID, "error", err)
	}

	h.render(r.Context(), w, "settings.html", settingsData{
		Title:      "Настройки",
		TelegramID: tgID,
		Role:       h.roleOf(r.Context(), tgID),
		HasKey:     hasKey,
	})
}

// SettingsPost sanitizes and stores the submitted WB API key.
func (h *Handlers) SettingsPost(w http.ResponseWriter, r *http.Request) {

	tgID := sessionFrom(r.Context())
	data := settingsData{Title: "Настройки", TelegramID: tgID, Role: h.roleOf(r.Context(), tgID)}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	rawKey := r.PostFormValue("wb_api_key")

	if rawKey == "" {
		data.Error = "Укажите API ключ."
		h.render(r.Context(), w, "settings.html", data)
		return
	}

	err := h.creds.Store(r.Context(), tgID, rawKey)
	switch {
	case err == nil:
		data.HasKey = true
		data.Saved = true
	case errors.Is(err, common.ErrCredentialMalformed):
		data.Error = "Значение не похоже на WB API-ключ. Скопируйте ключ из кабинета WB целиком."
	default:
		h.logger.Error(r.Context(), "storing credential", "telegram_id", tgID, "error", err)
		data.Error = "Не удалось сохранить ключ. Попробуйте ещё раз."
	}

	h.render(r.Context(), w, "settings.html", data)
}

func (h *Handlers) roleOf(ctx context.Context, tgID int64) string {
	user, err := h.users.GetByTelegramID(ctx, tgID)
	if err != nil || user == nil {
		return "user"
	}
	return user.Role
}

func (h *Handlers) sessionID(r *http.Request) (int64, error) {
	c, err := r.Cookie(auth.SessionCookieName)
	if err != nil {
		return 0, common.ErrSessionInvalidOrExpired
	}
	return h.logins.VerifySession(c.Value)
}

func (h *Handlers) render(ctx context.Context, w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplates.ExecuteTemplate(w, name, data); err != nil {
		h.logger.Error(ctx, "rendering page", "template", name, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func wbErrText(err error) string {
	if errors.Is(err, wb.ErrUnauthorized) {
		return "ключ отклонён, проверьте его в настройках"
	}
	return err.Error()
}
