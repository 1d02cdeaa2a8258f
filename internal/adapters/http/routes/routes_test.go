package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"sacco-backend/internal/adapters/http/middleware"
	"sacco-backend/internal/adapters/persistence/memory"
	"sacco-backend/internal/config"
	"sacco-backend/internal/core/services"
	"sacco-backend/internal/pkg/password"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	adminPhone    = "0700000001"
	adminPassword = "admin1234"
)

func TestMain(m *testing.M) {
	password.Cost = bcrypt.MinCost
	os.Exit(m.Run())
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	t.Setenv("ADMIN_PHONE", adminPhone)
	t.Setenv("ADMIN_PASSWORD", adminPassword)

	cfg := &config.Config{
		AppMode: "dev",
		JWT: config.JWTConfig{
			Secret:           "access-secret",
			RefreshSecret:    "refresh-secret",
			AccessTokenMins:  15,
			RefreshTokenDays: 7,
		},
		Cookie: config.CookieConfig{SameSite: "Lax"},
		OTP:    config.OTPConfig{TTL: 10 * time.Minute, ResendWindow: time.Minute, MaxAttempts: 5},
		Loan:   config.LoanConfig{DefaultInterestRate: decimal.NewFromInt(2)},
	}
	log := zap.NewNop()
	store := memory.New()
	require.NoError(t, config.NewSeeder(store, log).Run(context.Background()))

	ledger := services.NewLedgerService(store, log)
	notifier := services.NewNotificationService(cfg.Notify, cfg.OTP.TTL, nil, log)

	app := fiber.New(fiber.Config{ErrorHandler: middleware.CustomErrorHandler})
	middleware.Setup(app, cfg, log)
	Setup(app, &Deps{
		Config:        cfg,
		Store:         store,
		Log:           log,
		Auth:          services.NewAuthService(store, cfg, log),
		Members:       services.NewMemberService(store, ledger, nil, log),
		Ledger:        ledger,
		Transactions:  services.NewTransactionService(store, ledger, nil, log),
		Loans:         services.NewLoanService(store, nil, cfg.Loan.DefaultInterestRate, log),
		PasswordReset: services.NewPasswordResetService(store, notifier, cfg.OTP.TTL, cfg.OTP.ResendWindow, cfg.OTP.MaxAttempts, log),
		Dashboard:     services.NewDashboardService(store),
	})
	return app
}

func call(t *testing.T, app *fiber.App, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func login(t *testing.T, app *fiber.App, phone, pass string) string {
	t.Helper()
	status, env := call(t, app, http.MethodPost, "/api/v1/auth/login", "", fiber.Map{"phone": phone, "password": pass})
	require.Equal(t, http.StatusOK, status, env.Error)

	var data struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.AccessToken)
	return data.AccessToken
}

func TestMemberSavingsFlow(t *testing.T) {
	app := newTestApp(t)

	status, env := call(t, app, http.MethodPost, "/api/v1/auth/register", "", fiber.Map{
		"first_name": "Amina",
		"last_name":  "Wanjiru",
		"phone":      "0712345678",
		"dob":        "1991-05-17",
		"password":   "member123",
	})
	require.Equal(t, http.StatusCreated, status, env.Error)

	var reg struct {
		Member struct {
			ID       uint `json:"id"`
			Approved bool `json:"approved"`
		} `json:"member"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &reg))
	assert.False(t, reg.Member.Approved)

	status, _ = call(t, app, http.MethodPost, "/api/v1/auth/login", "", fiber.Map{"phone": "0712345678", "password": "member123"})
	assert.Equal(t, http.StatusForbidden, status)

	admin := login(t, app, adminPhone, adminPassword)
	status, env = call(t, app, http.MethodPut, "/api/v1/members/"+itoa(reg.Member.ID)+"/approve", admin, nil)
	require.Equal(t, http.StatusOK, status, env.Error)

	member := login(t, app, "0712345678", "member123")

	status, env = call(t, app, http.MethodPost, "/api/v1/transactions", member, fiber.Map{"type": "deposit", "amount": "250.5"})
	require.Equal(t, http.StatusCreated, status, env.Error)
	var tx struct {
		ID     string `json:"id"`
		Amount string `json:"amount"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &tx))
	assert.Equal(t, "250.50", tx.Amount)
	assert.Equal(t, "pending", tx.Status)

	status, _ = call(t, app, http.MethodPut, "/api/v1/transactions/"+tx.ID+"/approve", member, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, env = call(t, app, http.MethodPut, "/api/v1/transactions/"+tx.ID+"/approve", admin, nil)
	require.Equal(t, http.StatusOK, status, env.Error)

	status, _ = call(t, app, http.MethodPut, "/api/v1/transactions/"+tx.ID+"/approve", admin, nil)
	assert.Equal(t, http.StatusConflict, status)

	status, env = call(t, app, http.MethodGet, "/api/v1/balance", member, nil)
	require.Equal(t, http.StatusOK, status, env.Error)
	var bal struct {
		Balance       string `json:"balance"`
		EmergencyFund string `json:"emergency_fund"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &bal))
	assert.Equal(t, "250.50", bal.Balance)
	assert.Equal(t, "0.00", bal.EmergencyFund)

	// overdraw is recorded but cannot be approved
	status, env = call(t, app, http.MethodPost, "/api/v1/transactions", member, fiber.Map{"type": "withdrawal", "amount": 300})
	require.Equal(t, http.StatusCreated, status, env.Error)
	require.NoError(t, json.Unmarshal(env.Data, &tx))
	status, _ = call(t, app, http.MethodPut, "/api/v1/transactions/"+tx.ID+"/approve", admin, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = call(t, app, http.MethodGet, "/api/v1/members", member, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, env = call(t, app, http.MethodGet, "/api/v1/members", admin, nil)
	require.Equal(t, http.StatusOK, status, env.Error)
	var page struct {
		Meta struct {
			Total int64 `json:"total"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.EqualValues(t, 2, page.Meta.Total)
}

func TestMemberLifecycleRoutes(t *testing.T) {
	app := newTestApp(t)
	admin := login(t, app, adminPhone, adminPassword)

	status, env := call(t, app, http.MethodPost, "/api/v1/auth/register", "", fiber.Map{
		"first_name": "Otieno",
		"last_name":  "Kamau",
		"phone":      "0722000111",
		"dob":        "1988-11-02",
		"password":   "member123",
	})
	require.Equal(t, http.StatusCreated, status, env.Error)
	var reg struct {
		Member struct {
			ID uint `json:"id"`
		} `json:"member"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &reg))
	base := "/api/v1/members/" + itoa(reg.Member.ID)

	status, env = call(t, app, http.MethodPut, base+"/approve", admin, nil)
	require.Equal(t, http.StatusOK, status, env.Error)
	member := login(t, app, "0722000111", "member123")

	status, _ = call(t, app, http.MethodGet, "/api/v1/dashboard/summary", member, nil)
	assert.Equal(t, http.StatusForbidden, status)

	// a role change applies to the token already issued
	status, env = call(t, app, http.MethodPut, base+"/role", admin, fiber.Map{"role": "TREASURER"})
	require.Equal(t, http.StatusOK, status, env.Error)
	status, env = call(t, app, http.MethodGet, "/api/v1/dashboard/summary", member, nil)
	assert.Equal(t, http.StatusOK, status, env.Error)

	status, env = call(t, app, http.MethodPut, base+"/role", admin, fiber.Map{"role": "MEMBER"})
	require.Equal(t, http.StatusOK, status, env.Error)

	// so does deactivation
	status, env = call(t, app, http.MethodPut, base+"/deactivate", admin, nil)
	require.Equal(t, http.StatusOK, status, env.Error)
	status, _ = call(t, app, http.MethodGet, "/api/v1/balance", member, nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = call(t, app, http.MethodGet, "/api/v1/auth/me", member, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = call(t, app, http.MethodPut, base+"/approve", admin, nil)
	assert.Equal(t, http.StatusConflict, status)

	status, env = call(t, app, http.MethodPut, base+"/activate", admin, nil)
	require.Equal(t, http.StatusOK, status, env.Error)
	var activated struct {
		IsActive bool `json:"is_active"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &activated))
	assert.True(t, activated.IsActive)

	status, _ = call(t, app, http.MethodPut, base+"/activate", admin, nil)
	assert.Equal(t, http.StatusConflict, status)

	member = login(t, app, "0722000111", "member123")
	status, env = call(t, app, http.MethodGet, "/api/v1/balance", member, nil)
	assert.Equal(t, http.StatusOK, status, env.Error)

	status, _ = call(t, app, http.MethodPut, "/api/v1/members/1/activate", member, nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestLoanRoutes(t *testing.T) {
	app := newTestApp(t)
	admin := login(t, app, adminPhone, adminPassword)

	status, env := call(t, app, http.MethodPost, "/api/v1/loans/calculate", admin, fiber.Map{"amount": 1200, "period_months": 3})
	require.Equal(t, http.StatusOK, status, env.Error)
	var quote struct {
		DueAmount    string `json:"due_amount"`
		Installments []struct {
			Payment string `json:"payment"`
		} `json:"installments"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &quote))
	assert.Equal(t, "1248.00", quote.DueAmount)
	assert.Len(t, quote.Installments, 3)

	status, _ = call(t, app, http.MethodPost, "/api/v1/loans", admin, fiber.Map{"amount": "500", "period_months": 5})
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = call(t, app, http.MethodPost, "/api/v1/loans", admin, fiber.Map{"amount": "500", "period_months": 6})
	require.Equal(t, http.StatusCreated, status, env.Error)
	var loan struct {
		ID     uint   `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &loan))
	assert.Equal(t, "waiting", loan.Status)

	path := "/api/v1/loans/" + itoa(loan.ID)
	status, env = call(t, app, http.MethodPut, path+"/approve", admin, nil)
	require.Equal(t, http.StatusOK, status, env.Error)
	require.NoError(t, json.Unmarshal(env.Data, &loan))
	assert.Equal(t, "performing", loan.Status)

	status, _ = call(t, app, http.MethodPut, path+"/reject", admin, nil)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = call(t, app, http.MethodGet, "/api/v1/loans/9999", admin, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, env = call(t, app, http.MethodGet, "/api/v1/dashboard/summary", admin, nil)
	require.Equal(t, http.StatusOK, status, env.Error)
}

func TestAuthAndPublicRoutes(t *testing.T) {
	app := newTestApp(t)

	status, _ := call(t, app, http.MethodGet, "/api/v1/balance", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = call(t, app, http.MethodGet, "/api/v1/balance", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = call(t, app, http.MethodPost, "/api/v1/auth/login", "", fiber.Map{"phone": adminPhone, "password": "wrong-pass1"})
	assert.Equal(t, http.StatusUnauthorized, status)

	// unknown phones get the same answer as known ones
	status, env := call(t, app, http.MethodPost, "/api/v1/auth/password-reset/request", "", fiber.Map{"phone": "0799999999"})
	assert.Equal(t, http.StatusOK, status, env.Error)

	status, _ = call(t, app, http.MethodPost, "/api/v1/auth/password-reset/verify", "", fiber.Map{"phone": adminPhone, "code": "123456"})
	assert.Equal(t, http.StatusNotFound, status)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/", nil)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "no-store, no-cache, must-revalidate", resp.Header.Get(fiber.HeaderCacheControl))
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
