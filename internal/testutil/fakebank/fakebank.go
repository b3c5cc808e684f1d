// Package fakebank runs an in-process stand-in for the AnyBank stack:
// Keycloak token endpoint, backend resource API, BFF auth, and the
// frontend debug control plane, all on one httptest server. Suite and
// client tests point every base URL at it.
package fakebank

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/anybank/anybank-e2e/internal/config"
)

const (
	UserEmail  = "jdoe@example.com"
	Password   = "demo123"
	ConsumerID = "tenant-001"
	BusinessID = "tenant-003"
)

// Server is the fake AnyBank deployment.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	riskScore *int
	timeSet   bool
	sessions  []sessionRec
	tenant    string
}

type sessionRec struct {
	ID        string
	UserEmail string
	Events    []timelineEvent
}

type timelineEvent struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Action    string `json:"action"`
}

// New starts the fake server. Callers own the shutdown via Close.
func New() *Server {
	s := &Server{tenant: ConsumerID}
	r := chi.NewRouter()
	s.routes(r)
	s.Server = httptest.NewServer(r)
	return s
}

// Config returns a harness configuration with every service URL pointed
// at this server.
func (s *Server) Config() *config.Config {
	cfg := config.Default()
	cfg.KeycloakURL = s.URL
	cfg.BackendURL = s.URL
	cfg.FrontendURL = s.URL
	cfg.HTTPTimeout = 2 * time.Second
	cfg.TokenTimeout = 2 * time.Second
	return &cfg
}

func (s *Server) token() string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"RS256","typ":"JWT"}`))
	payload := base64.RawURLEncoding.EncodeToString([]byte(
		fmt.Sprintf(`{"sub":"user-001","email":%q,"iat":%d}`, UserEmail, time.Now().Unix())))
	return header + "." + payload + ".fakesig"
}

func (s *Server) recordSession() sessionRec {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := sessionRec{
		ID:        uuid.NewString(),
		UserEmail: UserEmail,
		Events: []timelineEvent{
			{ID: uuid.NewString(), Timestamp: time.Now().Format(time.RFC3339), Type: "AUTH", Action: "login_success"},
		},
	}
	s.sessions = append(s.sessions, rec)
	return rec
}

func (s *Server) addSwitchEvent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sessions) == 0 {
		return
	}
	last := &s.sessions[len(s.sessions)-1]
	last.Events = append(last.Events, timelineEvent{
		ID: uuid.NewString(), Timestamp: time.Now().Format(time.RFC3339),
		Type: "CONTEXT_SWITCH", Action: "tenant_switch",
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func tenants() []map[string]any {
	return []map[string]any{
		{"id": ConsumerID, "name": "John Doe Personal", "type": "CONSUMER", "role": "OWNER"},
		{"id": BusinessID, "name": "AnyBusiness Inc.", "type": "COMMERCIAL", "role": "ADMIN"},
	}
}

func accountsFor(tenant string) []map[string]any {
	if tenant == BusinessID {
		return []map[string]any{
			{"id": "acct-301", "tenantId": BusinessID, "tenantName": "AnyBusiness Inc.", "accountNumber": "3000001",
				"accountType": "CHECKING", "name": "Operating", "balance": 250000.00, "currency": "USD", "status": "ACTIVE"},
			{"id": "acct-302", "tenantId": BusinessID, "tenantName": "AnyBusiness Inc.", "accountNumber": "3000002",
				"accountType": "SAVINGS", "name": "Reserve", "balance": 900000.00, "currency": "USD", "status": "ACTIVE"},
		}
	}
	return []map[string]any{
		{"id": "acct-101", "tenantId": ConsumerID, "tenantName": "John Doe Personal", "accountNumber": "1000001",
			"accountType": "CHECKING", "name": "Everyday Checking", "balance": 4200.55, "currency": "USD", "status": "ACTIVE"},
		{"id": "acct-102", "tenantId": ConsumerID, "tenantName": "John Doe Personal", "accountNumber": "1000002",
			"accountType": "SAVINGS", "name": "Rainy Day", "balance": 15000.00, "currency": "USD", "status": "ACTIVE"},
	}
}

func (s *Server) routes(r chi.Router) {
	// Keycloak
	r.Get("/realms/anybank", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, 200, map[string]any{"realm": "anybank", "public_key": "fake"})
	})
	r.Post("/realms/anybank/protocol/openid-connect/token", func(w http.ResponseWriter, req *http.Request) {
		req.ParseForm()
		if req.PostFormValue("grant_type") != "password" ||
			req.PostFormValue("username") != UserEmail ||
			req.PostFormValue("password") != Password {
			writeJSON(w, 401, map[string]any{"error": "invalid_grant"})
			return
		}
		s.recordSession()
		writeJSON(w, 200, map[string]any{
			"access_token": s.token(),
			"token_type":   "Bearer",
			"expires_in":   300,
			"scope":        "openid profile email",
		})
	})

	// Backend auth
	r.Get("/auth/me", func(w http.ResponseWriter, req *http.Request) {
		if !strings.HasPrefix(req.Header.Get("Authorization"), "Bearer ") {
			writeJSON(w, 401, map[string]any{"error": "unauthorized"})
			return
		}
		writeJSON(w, 200, map[string]any{
			"id": "user-001", "email": UserEmail, "display_name": "John Doe",
			"tenants": tenants(),
		})
	})
	r.Post("/auth/token/exchange", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			TargetTenantID string `json:"targetTenantId"`
		}
		json.NewDecoder(req.Body).Decode(&body)
		s.addSwitchEvent()
		writeJSON(w, 200, map[string]any{"tenant_id": body.TargetTenantID, "access_token": s.token()})
	})

	// BFF auth
	r.Get("/bff/auth/login", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<html><body><form id="kc-form-login" action="%s/login-actions/authenticate?execution=abc123&amp;tab_id=x1" method="post">`+
			`<input name="username"/><input name="password"/></form></body></html>`, s.URL)
	})
	r.Post("/login-actions/authenticate", func(w http.ResponseWriter, req *http.Request) {
		req.ParseForm()
		if req.PostFormValue("username") != UserEmail || req.PostFormValue("password") != Password {
			http.Redirect(w, req, "/bff/auth/login?error=invalid_credentials", http.StatusFound)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "BFF_SESSION", Value: "sess-" + uuid.NewString(), Path: "/"})
		s.recordSession()
		http.Redirect(w, req, "/app", http.StatusFound)
	})
	r.Get("/app", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body>AnyBank</body></html>")
	})
	r.Get("/bff/auth/me", func(w http.ResponseWriter, req *http.Request) {
		if _, err := req.Cookie("BFF_SESSION"); err != nil {
			writeJSON(w, 401, map[string]any{"authenticated": false})
			return
		}
		s.mu.Lock()
		tenant := s.tenant
		s.mu.Unlock()
		writeJSON(w, 200, map[string]any{
			"authenticated": true, "email": UserEmail, "tenant_id": tenant,
			"tenants": tenants(),
		})
	})
	r.Post("/bff/auth/token/exchange", func(w http.ResponseWriter, req *http.Request) {
		if _, err := req.Cookie("BFF_SESSION"); err != nil {
			writeJSON(w, 401, map[string]any{"error": "no session"})
			return
		}
		var body struct {
			TargetTenantID string `json:"target_tenant_id"`
		}
		json.NewDecoder(req.Body).Decode(&body)
		if body.TargetTenantID == "" {
			writeJSON(w, 400, map[string]any{"error": "target_tenant_id required"})
			return
		}
		s.mu.Lock()
		s.tenant = body.TargetTenantID
		s.mu.Unlock()
		s.addSwitchEvent()
		writeJSON(w, 200, map[string]any{"success": true, "tenant_id": body.TargetTenantID})
	})
	r.Get("/bff/auth/logout", func(w http.ResponseWriter, req *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "BFF_SESSION", Value: "", Path: "/", MaxAge: -1})
		http.Redirect(w, req, "/app", http.StatusFound)
	})

	// Resource API
	r.Get("/api/accounts", func(w http.ResponseWriter, req *http.Request) {
		tenant := req.Header.Get("X-Tenant-ID")
		if tenant == "" {
			if _, err := req.Cookie("BFF_SESSION"); err != nil {
				writeJSON(w, 401, map[string]any{"error": "unauthorized"})
				return
			}
			s.mu.Lock()
			tenant = s.tenant
			s.mu.Unlock()
		}
		writeJSON(w, 200, map[string]any{"accounts": accountsFor(tenant)})
	})
	r.Get("/api/accounts/{id}", func(w http.ResponseWriter, req *http.Request) {
		id := chi.URLParam(req, "id")
		for _, tenant := range []string{ConsumerID, BusinessID} {
			for _, acct := range accountsFor(tenant) {
				if acct["id"] == id {
					writeJSON(w, 200, acct)
					return
				}
			}
		}
		writeJSON(w, 404, map[string]any{"error": "account not found"})
	})
	r.Get("/api/accounts/{id}/transactions", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, 200, map[string]any{"transactions": []map[string]any{
			{"id": "tx-1", "amount": -42.00, "memo": "Coffee"},
		}})
	})
	r.Post("/api/accounts/{id}/transfer", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			ToAccountID string  `json:"toAccountId"`
			Amount      float64 `json:"amount"`
		}
		json.NewDecoder(req.Body).Decode(&body)
		if body.ToAccountID == "" || body.Amount <= 0 {
			writeJSON(w, 400, map[string]any{"error": "invalid transfer"})
			return
		}
		w.WriteHeader(200)
	})
	r.Get("/api/admin/users", func(w http.ResponseWriter, req *http.Request) {
		tenant := req.Header.Get("X-Tenant-ID")
		if tenant == "" {
			s.mu.Lock()
			tenant = s.tenant
			s.mu.Unlock()
		}
		if tenant == BusinessID {
			writeJSON(w, 200, []map[string]any{
				{"id": "user-001", "email": UserEmail, "role": "ADMIN"},
				{"id": "user-002", "email": "asmith@example.com", "role": "VIEWER"},
				{"id": "user-003", "email": "bjones@example.com", "role": "APPROVER"},
			})
			return
		}
		writeJSON(w, 200, []map[string]any{
			{"id": "user-001", "email": UserEmail, "role": "OWNER"},
		})
	})

	// Health
	r.Get("/actuator/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, 200, map[string]any{"status": "UP"})
	})
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(200)
	})

	// SSE, both the backend path and the nginx-proxied frontend path
	sse := func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(200)
		fmt.Fprint(w, "event: ping\ndata: {}\n\n")
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
	r.Get("/debug/events/stream", sse)

	s.debugRoutes(r)
	s.debugUIRoutes(r)
}

func (s *Server) debugRoutes(r chi.Router) {
	r.Route("/debug/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, 200, map[string]any{"status": "UP", "events_buffered": 12})
		})
		r.Get("/events", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, 200, map[string]any{"events": []any{}, "count": 0})
		})

		r.Get("/data/users", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, 200, []map[string]any{{"id": "user-001", "email": UserEmail}})
		})
		r.Get("/data/tenants", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, 200, tenants())
		})
		r.Get("/data/sessions", func(w http.ResponseWriter, req *http.Request) {
			s.mu.Lock()
			defer s.mu.Unlock()
			out := make([]map[string]any, 0, len(s.sessions))
			for _, rec := range s.sessions {
				out = append(out, map[string]any{
					"id": rec.ID, "user_email": rec.UserEmail, "userEmail": rec.UserEmail,
				})
			}
			writeJSON(w, 200, map[string]any{"sessions": out, "count": len(out)})
		})
		r.Get("/data/accounts", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, 200, append(accountsFor(ConsumerID), accountsFor(BusinessID)...))
		})
		r.Get("/data/memberships", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, 200, []map[string]any{
				{"id": "m-1", "userId": "user-001", "userEmail": UserEmail, "tenantId": ConsumerID,
					"tenantName": "John Doe Personal", "role": "OWNER", "status": "ACTIVE"},
				{"id": "m-2", "userId": "user-001", "userEmail": UserEmail, "tenantId": BusinessID,
					"tenantName": "AnyBusiness Inc.", "role": "ADMIN", "status": "ACTIVE"},
			})
		})

		r.Get("/auth/tokens", func(w http.ResponseWriter, req *http.Request) {
			s.mu.Lock()
			defer s.mu.Unlock()
			toks := make([]map[string]any, 0, len(s.sessions))
			for _, rec := range s.sessions {
				toks = append(toks, map[string]any{"userEmail": rec.UserEmail, "sessionId": rec.ID})
			}
			writeJSON(w, 200, map[string]any{"tokens": toks, "count": len(toks)})
		})
		r.Get("/auth/keycloak/events", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, 200, map[string]any{"events": []map[string]any{
				{"type": "LOGIN", "userId": "user-001"},
			}, "count": 1})
		})
		r.Post("/auth/decode", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				Token string `json:"token"`
			}
			json.NewDecoder(req.Body).Decode(&body)
			parts := strings.Split(body.Token, ".")
			if len(parts) < 2 {
				writeJSON(w, 400, map[string]any{"valid": false, "error": "malformed token"})
				return
			}
			payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
			if err != nil {
				writeJSON(w, 400, map[string]any{"valid": false, "error": "bad payload encoding"})
				return
			}
			var claims map[string]any
			if err := json.Unmarshal(payload, &claims); err != nil {
				writeJSON(w, 400, map[string]any{"valid": false, "error": "bad claims"})
				return
			}
			writeJSON(w, 200, map[string]any{"valid": true, "claims": claims})
		})

		timeline := func(w http.ResponseWriter, req *http.Request) {
			id := chi.URLParam(req, "id")
			s.mu.Lock()
			defer s.mu.Unlock()
			for _, rec := range s.sessions {
				if rec.ID == id {
					writeJSON(w, 200, map[string]any{
						"session":    map[string]any{"id": rec.ID, "userEmail": rec.UserEmail},
						"events":     rec.Events,
						"eventCount": len(rec.Events),
					})
					return
				}
			}
			writeJSON(w, 404, map[string]any{"error": "session not found"})
		}
		r.Get("/sessions/{id}/timeline", timeline)
		r.Get("/workflows/sessions/{id}/timeline", timeline)

		r.Get("/opa/decisions", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, 200, map[string]any{"decisions": []map[string]any{
				{"id": "d-1", "allow": true, "action": "view_balance"},
			}, "count": 1})
		})

		r.Get("/controls", func(w http.ResponseWriter, req *http.Request) {
			s.mu.Lock()
			defer s.mu.Unlock()
			writeJSON(w, 200, map[string]any{
				"risk_override_active": s.riskScore != nil,
				"time_override_active": s.timeSet,
			})
		})
		r.Get("/controls/risk", func(w http.ResponseWriter, req *http.Request) {
			s.mu.Lock()
			defer s.mu.Unlock()
			out := map[string]any{"active": s.riskScore != nil}
			if s.riskScore != nil {
				out["score"] = *s.riskScore
			}
			writeJSON(w, 200, out)
		})
		r.Post("/controls/risk", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				Score *int `json:"score"`
			}
			json.NewDecoder(req.Body).Decode(&body)
			s.mu.Lock()
			s.riskScore = body.Score
			s.mu.Unlock()
			writeJSON(w, 200, map[string]any{"active": body.Score != nil})
		})
		r.Get("/controls/time", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, 200, map[string]any{
				"active": false, "effective": time.Now().Format(time.RFC3339),
			})
		})

		r.Get("/policy/policies", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, 200, map[string]any{"policies": []map[string]any{
				{"id": "authz", "name": "authz.rego", "raw": "package authz\n\ndefault allow := false\n"},
			}})
		})
		r.Post("/policy/evaluate", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				Action string `json:"action"`
			}
			json.NewDecoder(req.Body).Decode(&body)
			writeJSON(w, 200, map[string]any{"result": map[string]any{
				"allow": body.Action == "view_balance",
			}})
		})
	})
}

func (s *Server) debugUIRoutes(r chi.Router) {
	r.Get("/debug/", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<!DOCTYPE html>
<html><head><title>AnyBank Debug Control Plane</title>
<link rel="stylesheet" href="css/debug-styles.css">
</head><body>
<span id="connection-status">Connected</span>
<span id="event-count">0</span>
<div id="events-container"></div>
<div id="slide-over"><button id="close-slide-over"></button>
<h2 id="slide-over-title"></h2><div id="slide-over-content"></div></div>
<script type="module" src="js/main.js"></script>
</body></html>`)
	})
	r.Get("/debug/css/debug-styles.css", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/css")
		fmt.Fprint(w, ".debug-card { border: 1px solid #333; }\n.event-badge-api { color: green; }\n")
	})
	r.Get("/debug/js/main.js", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/javascript")
		fmt.Fprint(w, "import { debugState } from './state.js';\nexport const boot = () => debugState;\n")
	})
}
