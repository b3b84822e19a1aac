// Package apitest provides an in-process fake of the reminder REST API for
// tests. It counts calls per route and can be told to fail any route.
package apitest

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"

	"github.com/me/rtodash/pkg/model"
)

// Route names used by Calls and Fail.
const (
	RouteLogin        = "POST /auth/login"
	RouteRegister     = "POST /auth/register"
	RouteMe           = "GET /auth/me"
	RouteBalance      = "GET /pay/balance"
	RouteVerify       = "POST /pay/verify"
	RouteNotifs       = "GET /notifications"
	RouteMarkAllRead  = "PUT /notifications/mark-all-read"
	RouteClearAll     = "DELETE /notifications/clear-all"
	RouteChat         = "POST /chatbot/message"
	defaultTokenLife  = time.Hour
	defaultAgentEmail = "ravi@example.com"
)

var secret = []byte("apitest-secret")

// Backend is a fake reminder API served by httptest.
type Backend struct {
	srv *httptest.Server

	mu            sync.Mutex
	calls         map[string]int
	failures      map[string]failure
	agents        map[string]*model.Agent
	passwords     map[string]string
	balance       decimal.Decimal
	topup         model.TopupSettings
	orders        map[string]decimal.Decimal
	notifications []model.ServerNotification
	meDelay       time.Duration
	chatReply     string
}

type failure struct {
	status  int
	message string
}

// NewBackend starts a fake API with one agent (ravi@example.com / secret123).
// It is closed when the test ends.
func NewBackend(t testing.TB) *Backend {
	t.Helper()
	b := &Backend{
		calls:     make(map[string]int),
		failures:  make(map[string]failure),
		agents:    make(map[string]*model.Agent),
		passwords: make(map[string]string),
		orders:    make(map[string]decimal.Decimal),
		balance:   decimal.RequireFromString("250"),
		topup: model.TopupSettings{
			TopupAmounts:   []decimal.Decimal{decimal.NewFromInt(100), decimal.NewFromInt(500), decimal.NewFromInt(1000)},
			MinTopupAmount: decimal.NewFromInt(100),
		},
		chatReply: "Your next reminder batch runs at 9 AM.",
	}
	b.AddAgent(&model.Agent{
		ID:          "a_1",
		Name:        "Ravi Kumar",
		Email:       defaultAgentEmail,
		Mobile:      "9876543210",
		Role:        model.RoleAgent,
		CompanyName: "Ravi Motors",
	}, "secret123")

	b.srv = httptest.NewServer(b.routes())
	t.Cleanup(b.srv.Close)
	return b
}

// URL returns the API base URL including the /api/v1 prefix.
func (b *Backend) URL() string {
	return b.srv.URL + "/api/v1"
}

// AddAgent registers an account the backend will accept.
func (b *Backend) AddAgent(a *model.Agent, password string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.agents[a.Email] = a
	b.passwords[a.Email] = password
}

// SetRole changes the role of an existing agent.
func (b *Backend) SetRole(email string, role model.Role) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if a, ok := b.agents[email]; ok {
		a.Role = role
	}
}

// SetBalance sets the wallet balance returned by /pay/balance.
func (b *Backend) SetBalance(s string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balance = decimal.RequireFromString(s)
}

// AddOrder registers a payment order that /pay/verify will confirm.
func (b *Backend) AddOrder(orderID, amount string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orders[orderID] = decimal.RequireFromString(amount)
}

// SetNotifications replaces the server-side notification list.
func (b *Backend) SetNotifications(n []model.ServerNotification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notifications = n
}

// SetMeDelay slows down /auth/me, to widen race windows in tests.
func (b *Backend) SetMeDelay(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.meDelay = d
}

// Fail makes route answer with status until Recover is called.
func (b *Backend) Fail(route string, status int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[route] = failure{status: status, message: message}
}

// Recover clears a failure set by Fail.
func (b *Backend) Recover(route string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.failures, route)
}

// Calls returns how many times route was hit.
func (b *Backend) Calls(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[route]
}

// TotalCalls returns the number of requests served on any route.
func (b *Backend) TotalCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		n += c
	}
	return n
}

// Token mints a valid token for email expiring at exp.
func Token(email string, exp time.Time) string {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   email,
		"email": email,
		"exp":   exp.Unix(),
	})
	s, err := tok.SignedString(secret)
	if err != nil {
		panic(err)
	}
	return s
}

// ValidToken mints a token for the default agent valid for an hour.
func ValidToken() string {
	return Token(defaultAgentEmail, time.Now().Add(defaultTokenLife))
}

func (b *Backend) routes() http.Handler {
	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", b.track(RouteLogin, b.handleLogin))
		r.Post("/auth/register", b.track(RouteRegister, b.handleRegister))
		r.Get("/auth/me", b.track(RouteMe, b.authed(b.handleMe)))
		r.Get("/pay/balance", b.track(RouteBalance, b.authed(b.handleBalance)))
		r.Post("/pay/verify", b.track(RouteVerify, b.authed(b.handleVerify)))
		r.Get("/notifications", b.track(RouteNotifs, b.authed(b.handleNotifications)))
		r.Put("/notifications/mark-all-read", b.track(RouteMarkAllRead, b.authed(b.handleMarkAllRead)))
		r.Delete("/notifications/clear-all", b.track(RouteClearAll, b.authed(b.handleClearAll)))
		r.Post("/chatbot/message", b.track(RouteChat, b.authed(b.handleChat)))
	})
	return r
}

type agentHandler func(w http.ResponseWriter, r *http.Request, agent *model.Agent)

func (b *Backend) track(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.calls[route]++
		f, failing := b.failures[route]
		b.mu.Unlock()

		if failing {
			writeJSON(w, f.status, map[string]any{"success": false, "message": f.message})
			return
		}
		next(w, r)
	}
}

func (b *Backend) authed(next agentHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "No token provided"})
			return
		}
		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) { return secret, nil })
		if err != nil {
			msg := "Invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "Token expired"
			}
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": msg})
			return
		}
		email, _ := claims["email"].(string)

		b.mu.Lock()
		agent, found := b.agents[email]
		var snapshot *model.Agent
		if found {
			snapshot = agent.Clone()
			snapshot.WalletBalance = b.balance
		}
		b.mu.Unlock()

		if !found {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Agent not found"})
			return
		}
		next(w, r, snapshot)
	}
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "Invalid request body"})
		return
	}

	b.mu.Lock()
	agent, ok := b.agents[req.Email]
	valid := ok && b.passwords[req.Email] == req.Password
	var snapshot *model.Agent
	if valid {
		snapshot = agent.Clone()
		snapshot.WalletBalance = b.balance
	}
	b.mu.Unlock()

	if !valid {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "Invalid email or password"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Login successful",
		"token":   Token(req.Email, time.Now().Add(defaultTokenLife)),
		"data":    map[string]any{"agent": snapshot},
	})
}

func (b *Backend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "Invalid request body"})
		return
	}

	b.mu.Lock()
	if _, exists := b.agents[req.Email]; exists {
		b.mu.Unlock()
		writeJSON(w, http.StatusConflict, map[string]any{"success": false, "message": "Email already registered"})
		return
	}
	agent := &model.Agent{
		ID:          model.FlexibleID("a_" + req.Mobile),
		Name:        req.Name,
		Email:       req.Email,
		Mobile:      req.Mobile,
		Role:        model.RoleAgent,
		CompanyName: req.CompanyName,
	}
	b.agents[req.Email] = agent
	b.passwords[req.Email] = req.Password
	snapshot := agent.Clone()
	b.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Registration successful",
		"token":   Token(req.Email, time.Now().Add(defaultTokenLife)),
		"data":    map[string]any{"agent": snapshot},
	})
}

func (b *Backend) handleMe(w http.ResponseWriter, r *http.Request, agent *model.Agent) {
	b.mu.Lock()
	delay := b.meDelay
	b.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{"agent": agent}})
}

func (b *Backend) handleBalance(w http.ResponseWriter, r *http.Request, _ *model.Agent) {
	b.mu.Lock()
	info := model.BalanceInfo{Balance: b.balance, Settings: b.topup}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": info})
}

func (b *Backend) handleVerify(w http.ResponseWriter, r *http.Request, _ *model.Agent) {
	var req struct {
		OrderID string `json:"order_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "Invalid request body"})
		return
	}

	b.mu.Lock()
	amount, ok := b.orders[req.OrderID]
	if ok {
		delete(b.orders, req.OrderID)
		b.balance = b.balance.Add(amount)
	}
	balance := b.balance
	b.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": "Order not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": model.PaymentVerification{
		OrderID: req.OrderID,
		Status:  "PAID",
		Amount:  amount,
		Balance: balance,
	}})
}

func (b *Backend) handleNotifications(w http.ResponseWriter, r *http.Request, _ *model.Agent) {
	b.mu.Lock()
	list := append([]model.ServerNotification(nil), b.notifications...)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{"notifications": list}})
}

func (b *Backend) handleMarkAllRead(w http.ResponseWriter, r *http.Request, _ *model.Agent) {
	b.mu.Lock()
	for i := range b.notifications {
		b.notifications[i].IsRead = true
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "All notifications marked as read"})
}

func (b *Backend) handleClearAll(w http.ResponseWriter, r *http.Request, _ *model.Agent) {
	b.mu.Lock()
	b.notifications = nil
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "All notifications cleared"})
}

func (b *Backend) handleChat(w http.ResponseWriter, r *http.Request, _ *model.Agent) {
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "Message is required"})
		return
	}
	b.mu.Lock()
	reply := b.chatReply
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{"reply": reply}})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
