package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/bookstorage/internal/auth"
	"github.com/hitoshi/bookstorage/internal/book"
	"github.com/hitoshi/bookstorage/internal/middleware"
	"github.com/hitoshi/bookstorage/internal/model"
	"github.com/hitoshi/bookstorage/internal/user"
	"github.com/hitoshi/bookstorage/internal/validation"
)

// --- モック定義 ---

type mockAuthService struct {
	loginFn    func(ctx context.Context, username, password string) (*model.TokenPair, error)
	refreshFn  func(ctx context.Context, token string) (*model.TokenPair, error)
	registerFn func(ctx context.Context, username, password string) (*model.User, error)
}

func (m *mockAuthService) Login(ctx context.Context, username, password string) (*model.TokenPair, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, username, password)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) Refresh(ctx context.Context, token string) (*model.TokenPair, error) {
	if m.refreshFn != nil {
		return m.refreshFn(ctx, token)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) Register(ctx context.Context, username, password string) (*model.User, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, username, password)
	}
	return nil, errors.New("not implemented")
}

type mockUserService struct {
	getByIDFn    func(ctx context.Context, id int64) (*model.User, error)
	getAllFn     func(ctx context.Context) ([]*model.User, error)
	createFn     func(ctx context.Context, in user.CreateInput) (*model.User, error)
	updateFn     func(ctx context.Context, id int64, in user.UpdateInput) (*model.User, error)
	softDeleteFn func(ctx context.Context, id int64) error
}

func (m *mockUserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, model.NewUserNotFoundError(id)
}

func (m *mockUserService) GetAll(ctx context.Context) ([]*model.User, error) {
	if m.getAllFn != nil {
		return m.getAllFn(ctx)
	}
	return []*model.User{}, nil
}

func (m *mockUserService) Create(ctx context.Context, in user.CreateInput) (*model.User, error) {
	if m.createFn != nil {
		return m.createFn(ctx, in)
	}
	return nil, errors.New("not implemented")
}

func (m *mockUserService) Update(ctx context.Context, id int64, in user.UpdateInput) (*model.User, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, in)
	}
	return nil, errors.New("not implemented")
}

func (m *mockUserService) SoftDelete(ctx context.Context, id int64) error {
	if m.softDeleteFn != nil {
		return m.softDeleteFn(ctx, id)
	}
	return nil
}

type mockBookService struct {
	getByIDFn   func(ctx context.Context, id int64) (*model.Book, error)
	getByISBNFn func(ctx context.Context, isbn string) (*model.Book, error)
	getAllFn    func(ctx context.Context) ([]*model.Book, error)
	createFn    func(ctx context.Context, in book.Input) (*model.Book, error)
	updateFn    func(ctx context.Context, id int64, in book.Input) (*model.Book, error)
	deleteFn    func(ctx context.Context, id int64) error
}

func (m *mockBookService) GetByID(ctx context.Context, id int64) (*model.Book, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, model.NewBookNotFoundError(id)
}

func (m *mockBookService) GetByISBN(ctx context.Context, isbn string) (*model.Book, error) {
	if m.getByISBNFn != nil {
		return m.getByISBNFn(ctx, isbn)
	}
	return nil, model.NewBookISBNNotFoundError(isbn)
}

func (m *mockBookService) GetAll(ctx context.Context) ([]*model.Book, error) {
	if m.getAllFn != nil {
		return m.getAllFn(ctx)
	}
	return []*model.Book{}, nil
}

func (m *mockBookService) Create(ctx context.Context, in book.Input) (*model.Book, error) {
	if m.createFn != nil {
		return m.createFn(ctx, in)
	}
	return nil, errors.New("not implemented")
}

func (m *mockBookService) Update(ctx context.Context, id int64, in book.Input) (*model.Book, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, in)
	}
	return nil, errors.New("not implemented")
}

func (m *mockBookService) Delete(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// mockTokenParser はトークン文字列をそのまま主体に対応付ける。
// "admin" はID 1のADMIN、"user5" はID 5のUSER、それ以外は検証失敗とする。
type mockTokenParser struct{}

func (mockTokenParser) ParseAccessToken(token string) (*auth.Claims, error) {
	switch token {
	case "admin":
		return &auth.Claims{
			Username:         "admin",
			Roles:            []model.Role{model.RoleAdmin},
			Type:             auth.TokenTypeAccess,
			RegisteredClaims: jwt.RegisteredClaims{Subject: "1"},
		}, nil
	case "user5":
		return &auth.Claims{
			Username:         "bob",
			Roles:            []model.Role{model.RoleUser},
			Type:             auth.TokenTypeAccess,
			RegisteredClaims: jwt.RegisteredClaims{Subject: "5"},
		}, nil
	default:
		return nil, model.NewAuthFailedError("invalid token", nil)
	}
}

type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) PingContext(context.Context) error {
	return m.err
}

// --- テストハーネス ---

type testServer struct {
	handler http.Handler
	auth    *mockAuthService
	users   *mockUserService
	books   *mockBookService
	health  *mockHealthChecker
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWith(t, nil)
}

// newTestServerWith はRouterDepsを変更してからルーターを構築する。
func newTestServerWith(t *testing.T, configure func(*RouterDeps)) *testServer {
	t.Helper()

	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	t.Cleanup(rl.Stop)

	ts := &testServer{
		auth:   &mockAuthService{},
		users:  &mockUserService{},
		books:  &mockBookService{},
		health: &mockHealthChecker{},
	}
	deps := &RouterDeps{
		TokenParser:       mockTokenParser{},
		RateLimiter:       rl,
		CORSAllowedOrigin: "http://localhost:3000",
		HealthChecker:     ts.health,
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("# metrics"))
		}),
		Validator:   validation.New(),
		AuthService: ts.auth,
		UserService: ts.users,
		BookService: ts.books,
	}
	if configure != nil {
		configure(deps)
	}
	ts.handler = NewRouter(deps)
	return ts
}

// do はtokenが空でなければBearerヘッダーを付与してリクエストを送る。
func (ts *testServer) do(method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}
