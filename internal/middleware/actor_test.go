package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestRequireActor_ValidHeader(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/loans", nil)
	req.Header.Set(ActorHeader, "42")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var captured int32
	handler := func(c echo.Context) error {
		captured = GetActorID(c)
		return c.String(http.StatusOK, "OK")
	}

	if err := RequireActor()(handler)(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
	if captured != 42 {
		t.Errorf("Expected actor ID 42, got %d", captured)
	}
}

func TestRequireActor_MissingHeader(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/loans", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handlerCalled := false
	handler := func(c echo.Context) error {
		handlerCalled = true
		return c.String(http.StatusOK, "OK")
	}

	if err := RequireActor()(handler)(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
	if handlerCalled {
		t.Error("Handler should not be called without an actor header")
	}
}

func TestRequireActor_InvalidHeader(t *testing.T) {
	e := echo.New()

	for _, value := range []string{"abc", "0", "-5", "1.5"} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/loans", nil)
		req.Header.Set(ActorHeader, value)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		handler := func(c echo.Context) error {
			return c.String(http.StatusOK, "OK")
		}

		if err := RequireActor()(handler)(c); err != nil {
			t.Fatalf("%q: expected no error, got %v", value, err)
		}
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%q: expected status 401, got %d", value, rec.Code)
		}
	}
}

func TestGetActorID_Absent(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/loans", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	if got := GetActorID(c); got != 0 {
		t.Errorf("Expected 0 for absent actor, got %d", got)
	}
}
