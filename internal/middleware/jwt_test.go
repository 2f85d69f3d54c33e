package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newTestRouter(validate Validator, roles ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := []gin.HandlerFunc{JWT(validate)}
	if len(roles) > 0 {
		handlers = append(handlers, RequireRole(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		c.String(http.StatusOK, "%s:%s", c.GetString(ContextUserID), c.GetString(ContextUserRole))
	})
	r.GET("/probe", handlers...)
	return r
}

func doRequest(r *gin.Engine, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func okValidator(t *testing.T, wantToken, userID, role string) Validator {
	return func(token string) (string, string, error) {
		if token != wantToken {
			t.Fatalf("validator got token %q, want %q", token, wantToken)
		}
		return userID, role, nil
	}
}

func TestJWTSetsPrincipal(t *testing.T) {
	r := newTestRouter(okValidator(t, "tok", "S001", "student"))
	w := doRequest(r, "Bearer tok")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := w.Body.String(); got != "S001:student" {
		t.Fatalf("principal = %q, want S001:student", got)
	}
}

func TestJWTRejectsMissingHeader(t *testing.T) {
	r := newTestRouter(func(string) (string, string, error) {
		t.Fatal("validator must not run")
		return "", "", nil
	})
	if w := doRequest(r, ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestJWTRejectsMalformedHeader(t *testing.T) {
	r := newTestRouter(func(string) (string, string, error) { return "", "", nil })
	if w := doRequest(r, "Token abc"); w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestJWTRejectsInvalidToken(t *testing.T) {
	r := newTestRouter(func(string) (string, string, error) {
		return "", "", errors.New("bad token")
	})
	if w := doRequest(r, "Bearer bad"); w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestRequireRoleAllowsListedRole(t *testing.T) {
	r := newTestRouter(okValidator(t, "tok", "T001", "teacher"), "teacher", "admin")
	if w := doRequest(r, "Bearer tok"); w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestRequireRoleBlocksOtherRole(t *testing.T) {
	r := newTestRouter(okValidator(t, "tok", "S001", "student"), "teacher")
	if w := doRequest(r, "Bearer tok"); w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}
