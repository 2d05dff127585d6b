package routes

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"usermanager/internal/controllers"
	"usermanager/internal/middleware"
	"usermanager/internal/repository"
	"usermanager/internal/service"
	"usermanager/internal/session"
	"usermanager/internal/storage"
	"usermanager/internal/testutil"
	"usermanager/internal/views"
)

type app struct {
	handler http.Handler
	svc     service.UserService
	root    string
}

func newApp(t *testing.T, burst int) *app {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.OpenInMemoryDB(t)
	root := t.TempDir()
	store, err := storage.NewLocalStorage(root, "/storage")
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	svc := service.NewUserService(repository.NewUserRepository(db), store, nil)
	flash, err := session.NewCookieStore("test-secret")
	if err != nil {
		t.Fatalf("flash store: %v", err)
	}
	tmpl, err := views.Templates(svc.ImageURL)
	if err != nil {
		t.Fatalf("templates: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := Handler(Deps{
		Users:     controllers.NewUserController(svc, flash, nil),
		Health:    controllers.NewHealthController(db),
		Limiter:   middleware.NewRateLimiter(ctx, 0.001, burst),
		Templates: tmpl,
		Storage:   store,
	})
	return &app{handler: h, svc: svc, root: root}
}

func (a *app) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	return w
}

func multipartRequest(t *testing.T, target string, fields map[string]string, image []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if image != nil {
		fw, err := mw.CreateFormFile("profile_image", "avatar.png")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		fw.Write(image)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func formRequest(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func aliceFields() map[string]string {
	return map[string]string{"name": "Alice", "email": "a@x.io", "mobile": "0123456789", "address": "1 Main St"}
}

func flashCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == "flash" && c.Value != "" {
			return c
		}
	}
	t.Fatal("no flash cookie set")
	return nil
}

func TestRootRedirectsAndHealth(t *testing.T) {
	a := newApp(t, 100)

	w := a.do(httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/users" {
		t.Fatalf("GET / = %d %q", w.Code, w.Header().Get("Location"))
	}

	w = a.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("GET /health = %d %q", w.Code, w.Body.String())
	}

	w = a.do(httptest.NewRequest(http.MethodGet, "/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("GET /nope = %d", w.Code)
	}
}

func TestCreateFlow_FlashShownOnce(t *testing.T) {
	a := newApp(t, 100)

	w := a.do(httptest.NewRequest(http.MethodGet, "/users/create", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `enctype="multipart/form-data"`) {
		t.Fatalf("GET /users/create = %d", w.Code)
	}

	w = a.do(multipartRequest(t, "/users", aliceFields(), testutil.PNG(t)))
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/users" {
		t.Fatalf("POST /users = %d %q\n%s", w.Code, w.Header().Get("Location"), w.Body.String())
	}
	cookie := flashCookie(t, w)

	w = a.do(httptest.NewRequest(http.MethodGet, "/users", nil), cookie)
	body := w.Body.String()
	if w.Code != http.StatusOK {
		t.Fatalf("GET /users = %d", w.Code)
	}
	for _, want := range []string{"User created successfully.", "Alice", "a@x.io", `src="/storage/profile_images/`} {
		if !strings.Contains(body, want) {
			t.Errorf("list missing %q", want)
		}
	}

	// The browser drops the cleared cookie, so the next page has no banner.
	w = a.do(httptest.NewRequest(http.MethodGet, "/users", nil))
	if strings.Contains(w.Body.String(), "User created successfully.") {
		t.Fatal("flash shown twice")
	}

	users, _ := a.svc.List(context.Background())
	if len(users) != 1 || users[0].ProfileImage == nil {
		t.Fatalf("unexpected users %+v", users)
	}
	w = a.do(httptest.NewRequest(http.MethodGet, "/storage/"+*users[0].ProfileImage, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("stored image not served: %d", w.Code)
	}
}

func TestStore_ValidationFailure(t *testing.T) {
	a := newApp(t, 100)

	fields := aliceFields()
	fields["email"] = "not-an-email"
	fields["mobile"] = "123"
	w := a.do(multipartRequest(t, "/users", fields, []byte("not an image")))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		"The email field must be a valid email address.",
		"The mobile field must be 10 digits.",
		"The profile image field must be an image.",
		`value="not-an-email"`,
		`value="Alice"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}

	users, _ := a.svc.List(context.Background())
	if len(users) != 0 {
		t.Fatalf("expected no users, got %d", len(users))
	}
	entries, _ := os.ReadDir(filepath.Join(a.root, "profile_images"))
	if len(entries) != 0 {
		t.Fatalf("rejected upload stored %d files", len(entries))
	}
}

func TestEdit(t *testing.T) {
	a := newApp(t, 100)
	if w := a.do(multipartRequest(t, "/users", aliceFields(), nil)); w.Code != http.StatusSeeOther {
		t.Fatalf("create = %d", w.Code)
	}

	w := a.do(httptest.NewRequest(http.MethodGet, "/users/1/edit", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("edit = %d", w.Code)
	}
	for _, want := range []string{`value="Alice"`, `name="_method" value="PUT"`, `action="/users/1"`} {
		if !strings.Contains(w.Body.String(), want) {
			t.Errorf("edit form missing %q", want)
		}
	}

	for _, path := range []string{"/users/99/edit", "/users/abc/edit", "/users/0/edit"} {
		if w := a.do(httptest.NewRequest(http.MethodGet, path, nil)); w.Code != http.StatusNotFound {
			t.Errorf("GET %s = %d, want 404", path, w.Code)
		}
	}
}

func TestUpdateViaMethodOverride(t *testing.T) {
	a := newApp(t, 100)
	if w := a.do(multipartRequest(t, "/users", aliceFields(), nil)); w.Code != http.StatusSeeOther {
		t.Fatalf("create = %d", w.Code)
	}

	fields := aliceFields()
	fields["_method"] = "PUT"
	fields["address"] = "2 Side St"
	w := a.do(multipartRequest(t, "/users/1", fields, testutil.GIF(t)))
	if w.Code != http.StatusSeeOther {
		t.Fatalf("update = %d\n%s", w.Code, w.Body.String())
	}

	w = a.do(httptest.NewRequest(http.MethodGet, "/users", nil), flashCookie(t, w))
	if !strings.Contains(w.Body.String(), "User updated successfully.") {
		t.Fatal("missing update flash")
	}

	user, err := a.svc.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if user.Address != "2 Side St" || user.ProfileImage == nil || !strings.HasSuffix(*user.ProfileImage, ".gif") {
		t.Fatalf("update not applied: %+v", user)
	}

	// Rejected update re-renders the edit form with the submitted values.
	w = a.do(formRequest("/users/1", url.Values{
		"_method": {"PATCH"}, "name": {"Alice"}, "email": {"a@x.io"}, "mobile": {"12"}, "address": {"3 Elm St"},
	}))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid update = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `3 Elm St`) || !strings.Contains(w.Body.String(), "The mobile field must be 10 digits.") {
		t.Fatal("edit form should show rejected input and errors")
	}

	w = a.do(formRequest("/users/42", url.Values{"_method": {"PUT"}, "name": {"Bob"}}))
	if w.Code != http.StatusNotFound {
		t.Fatalf("update missing user = %d", w.Code)
	}
}

func TestDeleteViaMethodOverride(t *testing.T) {
	a := newApp(t, 100)
	if w := a.do(multipartRequest(t, "/users", aliceFields(), testutil.PNG(t))); w.Code != http.StatusSeeOther {
		t.Fatalf("create = %d", w.Code)
	}

	w := a.do(formRequest("/users/1", url.Values{"_method": {"DELETE"}}))
	if w.Code != http.StatusSeeOther {
		t.Fatalf("delete = %d", w.Code)
	}
	w = a.do(httptest.NewRequest(http.MethodGet, "/users", nil), flashCookie(t, w))
	if !strings.Contains(w.Body.String(), "User deleted successfully.") || !strings.Contains(w.Body.String(), "No users found.") {
		t.Fatal("list should be empty with delete flash")
	}

	entries, _ := os.ReadDir(filepath.Join(a.root, "profile_images"))
	if len(entries) != 0 {
		t.Fatalf("blob left after delete: %d", len(entries))
	}

	if w := a.do(formRequest("/users/1", url.Values{"_method": {"DELETE"}})); w.Code != http.StatusNotFound {
		t.Fatalf("second delete = %d", w.Code)
	}
}

func TestMethodOverride_IgnoresUnknownMethods(t *testing.T) {
	var seen string
	h := MethodOverride(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) { seen = r.Method }))

	tests := []struct {
		method   string
		override string
		want     string
	}{
		{http.MethodPost, "delete", http.MethodDelete},
		{http.MethodPost, "PATCH", http.MethodPatch},
		{http.MethodPost, "GET", http.MethodPost},
		{http.MethodPost, "", http.MethodPost},
		{http.MethodGet, "DELETE", http.MethodGet},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, "/users/1", strings.NewReader(url.Values{"_method": {tt.override}}.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		h.ServeHTTP(httptest.NewRecorder(), req)
		if seen != tt.want {
			t.Errorf("%s with _method=%q routed as %s, want %s", tt.method, tt.override, seen, tt.want)
		}
	}
}

func TestMutationsAreRateLimited(t *testing.T) {
	a := newApp(t, 1)

	if w := a.do(multipartRequest(t, "/users", aliceFields(), nil)); w.Code != http.StatusSeeOther {
		t.Fatalf("first create = %d", w.Code)
	}
	fields := aliceFields()
	fields["email"] = "b@x.io"
	if w := a.do(multipartRequest(t, "/users", fields, nil)); w.Code != http.StatusTooManyRequests {
		t.Fatalf("second create = %d, want 429", w.Code)
	}
	// Reads are not limited.
	if w := a.do(httptest.NewRequest(http.MethodGet, "/users", nil)); w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
}
