// Package console serves a rehearsal imitation of the POS back office: the
// login form, the two sales views with their date picker, the CSV exports and
// the account menu logout.
package console

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/de-tools/airregi-sync/pkg/models/domain"
)

const (
	SessionCookie = "airregi_session"

	LoginPath        = "/login"
	LogoutPath       = "/logout"
	TopPath          = "/CLP/view/top"
	ProductSalesPath = "/CLP/view/salesListByMenu/"
	SalesListPath    = "/CLP/view/salesList/"
	productCSVPath   = "/CLP/api/csv/product"
	dailyCSVPath     = "/CLP/api/csv/daily"
)

type Config struct {
	Identity string
	Secret   string
	// Now decides the day the views open on. Defaults to time.Now.
	Now func() time.Time
}

type Handler struct {
	cfg   Config
	pages *template.Template

	mu       sync.Mutex
	sessions map[string]string
}

func NewHandler(cfg Config) *Handler {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Handler{
		cfg:      cfg,
		pages:    template.Must(template.New("console").Parse(pageTemplates)),
		sessions: make(map[string]string),
	}
}

// Routes mounts the console on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", http.RedirectHandler(LoginPath, http.StatusFound).ServeHTTP)
	r.Get(LoginPath, h.LoginForm)
	r.Post(LoginPath, h.Login)
	r.Get(LogoutPath, h.Logout)

	r.Group(func(r chi.Router) {
		r.Use(h.requireSession)
		r.Get(TopPath, h.Top)
		r.Get(ProductSalesPath, h.ProductSales)
		r.Get(SalesListPath, h.SalesList)
		r.Get(productCSVPath, h.ProductCSV)
		r.Get(dailyCSVPath, h.DailyCSV)
	})
}

// ActiveSessions is the number of signed in sessions.
func (h *Handler) ActiveSessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

func (h *Handler) identity(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return "", false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	identity, ok := h.sessions[cookie.Value]
	return identity, ok
}

func (h *Handler) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := h.identity(r); !ok {
			http.Redirect(w, r, LoginPath, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type pageData struct {
	Identity string
	Error    string
	Year     int
	Month    int
	Today    string
	Links    map[string]string
}

func (h *Handler) data(r *http.Request) pageData {
	identity, _ := h.identity(r)
	today := domain.NewTargetDate(h.cfg.Now(), domain.JST)
	return pageData{
		Identity: identity,
		Year:     today.Year,
		Month:    int(today.Month),
		Today:    today.String(),
		Links: map[string]string{
			"logout":     LogoutPath,
			"salesList":  SalesListPath + "#/",
			"productCSV": productCSVPath,
			"dailyCSV":   dailyCSVPath,
		},
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, page string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.pages.ExecuteTemplate(w, page, data); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("page", page).Msg("failed to render page")
	}
}

func (h *Handler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "login", h.data(r))
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	account := r.PostForm.Get("account")
	if account != h.cfg.Identity || r.PostForm.Get("password") != h.cfg.Secret {
		logger.Info().Str("account", account).Msg("rejected sign in")
		data := h.data(r)
		data.Error = "アカウントまたはパスワードが正しくありません"
		h.render(w, r, "login", data)
		return
	}

	id := uuid.NewString()
	h.mu.Lock()
	h.sessions[id] = account
	h.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: id, Path: "/", HttpOnly: true})
	logger.Info().Str("account", account).Msg("signed in")
	http.Redirect(w, r, TopPath, http.StatusSeeOther)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		h.mu.Lock()
		delete(h.sessions, cookie.Value)
		h.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1})
	zerolog.Ctx(r.Context()).Info().Msg("signed out")
	http.Redirect(w, r, LoginPath, http.StatusFound)
}

func (h *Handler) Top(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "top", h.data(r))
}

func (h *Handler) ProductSales(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "productSales", h.data(r))
}

func (h *Handler) SalesList(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "salesList", h.data(r))
}

func (h *Handler) ProductCSV(w http.ResponseWriter, r *http.Request) {
	from, err := h.dateParam(r, "from")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	to, err := h.dateParam(r, "to")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if from.After(to) {
		http.Error(w, "from is after to", http.StatusBadRequest)
		return
	}

	h.writeCSV(w, r, fmt.Sprintf("salesListByMenu_%s-%s.csv", from.Format(), to.Format()), [][]string{
		{"集計期間", "商品名", "数量", "売上"},
		{from.String() + "~" + to.String(), "ブレンドコーヒー", "12", "5400"},
		{from.String() + "~" + to.String(), "チーズケーキ", "5", "2750"},
	})
}

func (h *Handler) DailyCSV(w http.ResponseWriter, r *http.Request) {
	date, err := h.dateParam(r, "date")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.writeCSV(w, r, fmt.Sprintf("salesList_%s.csv", date.Format()), [][]string{
		{"日付", "客数", "売上"},
		{date.String(), "17", "8150"},
	})
}

// dateParam reads a YYYY-MM-DD query parameter, defaulting to today.
func (h *Handler) dateParam(r *http.Request, name string) (domain.TargetDate, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return domain.NewTargetDate(h.cfg.Now(), domain.JST), nil
	}
	return domain.ParseTargetDate(value)
}

func (h *Handler) writeCSV(w http.ResponseWriter, r *http.Request, filename string, rows [][]string) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.WriteAll(rows); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to encode csv")
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, filename, url.PathEscape(filename)))
	_, _ = w.Write(buf.Bytes())
	zerolog.Ctx(r.Context()).Info().Str("file", filename).Msg("csv exported")
}
