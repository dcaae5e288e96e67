package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{URL: srv.URL, APIKey: "test-key"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c, srv
}

func TestNewRequiresURLAndKey(t *testing.T) {
	if _, err := New(Config{APIKey: "k"}); err == nil {
		t.Fatalf("missing URL must be rejected")
	}
	if _, err := New(Config{URL: "https://example.supabase.co"}); err == nil {
		t.Fatalf("missing APIKey must be rejected")
	}
}

func TestExecuteBuildsQueryAndHeaders(t *testing.T) {
	var got *http.Request
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		w.Write([]byte(`[]`))
	})

	_, err := c.From("products").
		Select("*,categories(name)").
		Eq("category_id", "c1").
		Order("created_at", false).
		Range(20, 39).
		Execute(context.Background())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if got.URL.Path != "/rest/v1/products" {
		t.Fatalf("unexpected path %s", got.URL.Path)
	}
	q := got.URL.Query()
	if q.Get("select") != "*,categories(name)" {
		t.Fatalf("unexpected select %q", q.Get("select"))
	}
	if q.Get("category_id") != "eq.c1" {
		t.Fatalf("unexpected filter %q", q.Get("category_id"))
	}
	if q.Get("order") != "created_at.desc" {
		t.Fatalf("unexpected order %q", q.Get("order"))
	}
	if got.Header.Get("Range") != "20-39" {
		t.Fatalf("unexpected Range header %q", got.Header.Get("Range"))
	}
	if got.Header.Get("apikey") != "test-key" {
		t.Fatalf("apikey header missing")
	}
	if got.Header.Get("Authorization") != "Bearer test-key" {
		t.Fatalf("authorization header missing")
	}
}

func TestExecuteSingleAcceptHeader(t *testing.T) {
	var accept string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		accept = r.Header.Get("Accept")
		w.Write([]byte(`{}`))
	})

	if _, err := c.From("products").Eq("id", "p1").Single().Execute(context.Background()); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if accept != "application/vnd.pgrst.object+json" {
		t.Fatalf("unexpected Accept %q", accept)
	}
}

func TestILikeAndLimit(t *testing.T) {
	var got *http.Request
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		w.Write([]byte(`[]`))
	})

	if _, err := c.From("products").ILike("name", "*espresso*").Limit(20).Execute(context.Background()); err != nil {
		t.Fatalf("execute: %v", err)
	}
	q := got.URL.Query()
	if q.Get("name") != "ilike.*espresso*" {
		t.Fatalf("unexpected ilike filter %q", q.Get("name"))
	}
	if q.Get("limit") != "20" {
		t.Fatalf("unexpected limit %q", q.Get("limit"))
	}
}

func TestExecuteInsertSendsRepresentationPrefer(t *testing.T) {
	var method, prefer string
	var body map[string]any
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		prefer = r.Header.Get("Prefer")
		json.NewDecoder(r.Body).Decode(&body)
		w.Write([]byte(`[{"id":"p1"}]`))
	})

	resp, err := c.From("products").ExecuteInsert(context.Background(), map[string]string{"name": "Espresso"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if method != http.MethodPost {
		t.Fatalf("expected POST, got %s", method)
	}
	if prefer != "return=representation" {
		t.Fatalf("unexpected Prefer %q", prefer)
	}
	if body["name"] != "Espresso" {
		t.Fatalf("unexpected body %+v", body)
	}

	var rows []struct {
		ID string `json:"id"`
	}
	if err := resp.JSON(&rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != "p1" {
		t.Fatalf("unexpected rows %+v", rows)
	}
}

func TestExecuteUpdateFiltersRows(t *testing.T) {
	var got *http.Request
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		w.Write([]byte(`[]`))
	})

	_, err := c.From("orders").
		Eq("id", "o1").
		Is("approved_by", "null").
		ExecuteUpdate(context.Background(), map[string]string{"approved_by": "alice"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Method != http.MethodPatch {
		t.Fatalf("expected PATCH, got %s", got.Method)
	}
	q := got.URL.Query()
	if q.Get("id") != "eq.o1" || q.Get("approved_by") != "is.null" {
		t.Fatalf("unexpected filters %v", q)
	}
}

func TestExecuteDelete(t *testing.T) {
	var got *http.Request
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		w.Write([]byte(`[]`))
	})

	if _, err := c.From("order_items").Eq("order_id", "o1").ExecuteDelete(context.Background()); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got.Method != http.MethodDelete {
		t.Fatalf("expected DELETE, got %s", got.Method)
	}
	if got.URL.Query().Get("order_id") != "eq.o1" {
		t.Fatalf("unexpected filter %v", got.URL.Query())
	}
}

func TestResponseError(t *testing.T) {
	ok := &Response{StatusCode: 200, Body: []byte(`[]`)}
	if err := ok.Error(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	withMessage := &Response{StatusCode: 400, Body: []byte(`{"message":"bad filter"}`)}
	if err := withMessage.Error(); err == nil || err.Error() != "supabase error: bad filter" {
		t.Fatalf("unexpected error: %v", err)
	}

	bare := &Response{StatusCode: 503, Body: []byte(`not json`)}
	if err := bare.Error(); err == nil {
		t.Fatalf("expected an error for status 503")
	}
}

func TestAuthSignIn(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/token" || r.URL.Query().Get("grant_type") != "password" {
			t.Errorf("unexpected auth request: %s %s", r.URL.Path, r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode(AuthResponse{
			AccessToken: "tok",
			User:        &User{ID: "u1", Email: "ali@example.com"},
		})
	})

	resp, err := c.Auth().SignIn(context.Background(), "ali@example.com", "secret")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if resp.AccessToken != "tok" || resp.User == nil || resp.User.ID != "u1" {
		t.Fatalf("unexpected auth response %+v", resp)
	}
}

func TestStorageUploadAndPublicURL(t *testing.T) {
	var got *http.Request
	var gotBody []byte
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"Key":"product-images/p1.png"}`))
	})

	bucket := c.Storage().From("product-images")
	resp, err := bucket.Upload(context.Background(), "p1.png", []byte("png bytes"), "image/png")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if err := resp.Error(); err != nil {
		t.Fatalf("upload response: %v", err)
	}

	if got.Method != http.MethodPost || got.URL.Path != "/storage/v1/object/product-images/p1.png" {
		t.Fatalf("unexpected request %s %s", got.Method, got.URL.Path)
	}
	if got.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("unexpected content type %q", got.Header.Get("Content-Type"))
	}
	if string(gotBody) != "png bytes" {
		t.Fatalf("body not sent verbatim, got %q", gotBody)
	}

	want := srv.URL + "/storage/v1/object/public/product-images/p1.png"
	if u := bucket.GetPublicURL("p1.png"); u != want {
		t.Fatalf("expected public URL %q, got %q", want, u)
	}
}

func TestStorageDownload(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/storage/v1/object/product-images/p1.png" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte("raw image bytes"))
	})

	data, err := c.Storage().From("product-images").Download(context.Background(), "p1.png")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if string(data) != "raw image bytes" {
		t.Fatalf("unexpected bytes %q", data)
	}
}

func TestAuthGetUser(t *testing.T) {
	var got *http.Request
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		w.Write([]byte(`{"id":"u1","email":"ali@example.com","role":"authenticated"}`))
	})

	u, err := c.Auth().GetUser(context.Background(), "session-token")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.URL.Path != "/auth/v1/user" {
		t.Fatalf("unexpected path %s", got.URL.Path)
	}
	if got.Header.Get("Authorization") != "Bearer session-token" {
		t.Fatalf("expected the session token, got %q", got.Header.Get("Authorization"))
	}
	if u.ID != "u1" || u.Role != "authenticated" {
		t.Fatalf("unexpected user %+v", u)
	}
}
