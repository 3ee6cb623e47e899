package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"safr-server/db"
	"safr-server/testutil"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) (*Server, db.Database) {
	t.Helper()
	d := testutil.NewDB(t)
	s, err := NewServer(testutil.Config(), d)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return s, d
}

func do(t *testing.T, h http.Handler, method, path, token, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func doJSON(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	return do(t, h, method, path, token, "application/json", body)
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func register(t *testing.T, h http.Handler, username, password string) {
	t.Helper()
	body := `{"username":"` + username + `","password":"` + password + `"}`
	if w := doJSON(t, h, http.MethodPost, "/users/", "", body); w.Code != http.StatusCreated {
		t.Fatalf("register: status %d body %s", w.Code, w.Body.String())
	}
}

func login(t *testing.T, h http.Handler, username, password string) string {
	t.Helper()
	form := url.Values{"username": {username}, "password": {password}}
	w := do(t, h, http.MethodPost, "/token", "", "application/x-www-form-urlencoded", form.Encode())
	if w.Code != http.StatusOK {
		t.Fatalf("token: status %d body %s", w.Code, w.Body.String())
	}
	var resp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	decode(t, w, &resp)
	if resp.TokenType != "bearer" || resp.AccessToken == "" {
		t.Fatalf("unexpected token response: %s", w.Body.String())
	}
	return resp.AccessToken
}

type rankingList struct {
	Data []struct {
		CityID        uint    `json:"city_id"`
		PersonalScore float64 `json:"personal_score"`
	} `json:"data"`
	Count int `json:"count"`
}

func TestRankingLifecycle(t *testing.T) {
	s, d := newTestServer(t)
	testutil.SeedCity(t, d, 1006, "Lisbon", "Portugal")
	h := s.Router()

	register(t, h, "johndoe", "a_very_secure_password")
	token := login(t, h, "johndoe", "a_very_secure_password")

	w := doJSON(t, h, http.MethodPut, "/rankings/cities/1006", token, `{"personal_score":85.5}`)
	if w.Code != http.StatusOK {
		t.Fatalf("put: status %d body %s", w.Code, w.Body.String())
	}
	var put struct {
		Data struct {
			CityID        uint    `json:"city_id"`
			PersonalScore float64 `json:"personal_score"`
			City          struct {
				Name string `json:"name"`
			} `json:"city"`
		} `json:"data"`
	}
	decode(t, w, &put)
	if put.Data.CityID != 1006 || put.Data.PersonalScore != 85.5 || put.Data.City.Name != "Lisbon" {
		t.Fatalf("unexpected put response: %s", w.Body.String())
	}

	w = do(t, h, http.MethodGet, "/rankings/me", token, "", "")
	var list rankingList
	decode(t, w, &list)
	if w.Code != http.StatusOK || list.Count != 1 || list.Data[0].CityID != 1006 || list.Data[0].PersonalScore != 85.5 {
		t.Fatalf("list after put: status %d body %s", w.Code, w.Body.String())
	}

	w = do(t, h, http.MethodDelete, "/rankings/cities/1006", token, "", "")
	if w.Code != http.StatusNoContent || w.Body.Len() != 0 {
		t.Fatalf("delete: status %d body %q", w.Code, w.Body.String())
	}

	w = do(t, h, http.MethodGet, "/rankings/me", token, "", "")
	list = rankingList{}
	decode(t, w, &list)
	if w.Code != http.StatusOK || list.Count != 0 || list.Data == nil || len(list.Data) != 0 {
		t.Fatalf("list after delete: status %d body %s", w.Code, w.Body.String())
	}

	w = do(t, h, http.MethodDelete, "/rankings/cities/1006", token, "", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("second delete: status %d, want 404", w.Code)
	}
}

func TestRankingErrors(t *testing.T) {
	s, d := newTestServer(t)
	testutil.SeedCity(t, d, 1, "Lisbon", "Portugal")
	h := s.Router()
	register(t, h, "johndoe", "pw")
	token := login(t, h, "johndoe", "pw")

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown city", http.MethodPut, "/rankings/cities/999", `{"personal_score":50}`, http.StatusNotFound},
		{"score too high", http.MethodPut, "/rankings/cities/1", `{"personal_score":101}`, http.StatusUnprocessableEntity},
		{"score negative", http.MethodPut, "/rankings/cities/1", `{"personal_score":-1}`, http.StatusUnprocessableEntity},
		{"score missing", http.MethodPut, "/rankings/cities/1", `{}`, http.StatusUnprocessableEntity},
		{"score not a number", http.MethodPut, "/rankings/cities/1", `{"personal_score":"high"}`, http.StatusUnprocessableEntity},
		{"bad city id", http.MethodPut, "/rankings/cities/abc", `{"personal_score":50}`, http.StatusUnprocessableEntity},
		{"no ranking yet", http.MethodGet, "/rankings/cities/1", "", http.StatusNotFound},
		{"limit too large", http.MethodGet, "/rankings/me?limit=1001", "", http.StatusUnprocessableEntity},
		{"negative skip", http.MethodGet, "/rankings/me?skip=-1", "", http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, h, tc.method, tc.path, token, tc.body)
			if w.Code != tc.want {
				t.Fatalf("status %d, want %d, body %s", w.Code, tc.want, w.Body.String())
			}
		})
	}

	w := doJSON(t, h, http.MethodPut, "/rankings/cities/1", token, `{"personal_score":101}`)
	var body struct {
		Details map[string]string `json:"details"`
	}
	decode(t, w, &body)
	if _, ok := body.Details["personal_score"]; !ok {
		t.Fatalf("validation details should name personal_score: %s", w.Body.String())
	}
}

func TestListSortOrder(t *testing.T) {
	s, d := newTestServer(t)
	h := s.Router()
	register(t, h, "johndoe", "pw")
	token := login(t, h, "johndoe", "pw")

	for i, score := range []string{"10", "80", "50"} {
		id := uint(i + 1)
		testutil.SeedCity(t, d, id, "City", "Country")
		path := "/rankings/cities/" + []string{"1", "2", "3"}[i]
		if w := doJSON(t, h, http.MethodPut, path, token, `{"personal_score":`+score+`}`); w.Code != http.StatusOK {
			t.Fatalf("put %d: %d %s", id, w.Code, w.Body.String())
		}
	}

	var desc, asc rankingList
	decode(t, do(t, h, http.MethodGet, "/rankings/me", token, "", ""), &desc)
	decode(t, do(t, h, http.MethodGet, "/rankings/me?sort_desc=false", token, "", ""), &asc)
	if desc.Count != 3 || desc.Data[0].PersonalScore != 80 || desc.Data[2].PersonalScore != 10 {
		t.Fatalf("default order should be descending: %+v", desc.Data)
	}
	if asc.Count != 3 || asc.Data[0].PersonalScore != 10 || asc.Data[2].PersonalScore != 80 {
		t.Fatalf("sort_desc=false should be ascending: %+v", asc.Data)
	}

	var page rankingList
	decode(t, do(t, h, http.MethodGet, "/rankings/me?skip=1&limit=1", token, "", ""), &page)
	if page.Count != 1 || page.Data[0].PersonalScore != 50 {
		t.Fatalf("paged result wrong: %+v", page.Data)
	}
}

func TestAuthRequired(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Router()

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/rankings/me"},
		{http.MethodPut, "/rankings/cities/1"},
		{http.MethodDelete, "/rankings/cities/1"},
		{http.MethodGet, "/users/me"},
	} {
		for _, token := range []string{"", "garbage"} {
			w := doJSON(t, h, tc.method, tc.path, token, `{"personal_score":1}`)
			if w.Code != http.StatusUnauthorized {
				t.Fatalf("%s %s with token %q: status %d, want 401", tc.method, tc.path, token, w.Code)
			}
			if w.Header().Get("WWW-Authenticate") != "Bearer" {
				t.Fatalf("missing WWW-Authenticate header")
			}
		}
	}
}

func TestTokenFailures(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Router()
	register(t, h, "johndoe", "right")

	for _, tc := range []struct{ user, pass string }{{"johndoe", "wrong"}, {"nobody", "right"}} {
		form := url.Values{"username": {tc.user}, "password": {tc.pass}}
		w := do(t, h, http.MethodPost, "/token", "", "application/x-www-form-urlencoded", form.Encode())
		if w.Code != http.StatusUnauthorized || w.Header().Get("WWW-Authenticate") != "Bearer" {
			t.Fatalf("token(%s): status %d headers %v", tc.user, w.Code, w.Header())
		}
	}

	w := do(t, h, http.MethodPost, "/token", "", "application/x-www-form-urlencoded", "username=johndoe")
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("missing password: status %d, want 422", w.Code)
	}
}

func TestUsers(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Router()
	register(t, h, "johndoe", "pw")

	w := doJSON(t, h, http.MethodPost, "/users/", "", `{"username":"JOHNDOE","password":"pw"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate register: status %d, want 409", w.Code)
	}
	w = doJSON(t, h, http.MethodPost, "/users/", "", `{"username":"x","email":"not-an-email","password":"pw"}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad email: status %d, want 422", w.Code)
	}

	token := login(t, h, "JohnDoe", "pw")
	w = do(t, h, http.MethodGet, "/users/me", token, "", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"username":"johndoe"`) {
		t.Fatalf("me: status %d body %s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "hashed_password") || strings.Contains(w.Body.String(), "$2") {
		t.Fatalf("password hash leaked: %s", w.Body.String())
	}
}

func TestCities(t *testing.T) {
	s, d := newTestServer(t)
	testutil.SeedCity(t, d, 1, "Lisbon", "Portugal")
	testutil.SeedCity(t, d, 2, "Porto", "Portugal")
	h := s.Router()

	w := do(t, h, http.MethodGet, "/cities/", "", "", "")
	var list struct {
		Data []struct {
			ID         uint `json:"id"`
			Attributes []struct {
				AttributeName string `json:"attribute_name"`
			} `json:"attributes"`
		} `json:"data"`
		Count int `json:"count"`
	}
	decode(t, w, &list)
	if w.Code != http.StatusOK || list.Count != 2 || len(list.Data[0].Attributes) != 2 {
		t.Fatalf("list cities: status %d body %s", w.Code, w.Body.String())
	}

	if w := do(t, h, http.MethodGet, "/cities/2", "", "", ""); w.Code != http.StatusOK {
		t.Fatalf("get city: status %d", w.Code)
	}
	if w := do(t, h, http.MethodGet, "/cities/99", "", "", ""); w.Code != http.StatusNotFound {
		t.Fatalf("missing city: status %d, want 404", w.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s, d := newTestServer(t)
	h := s.Router()

	w := do(t, h, http.MethodGet, "/health", "", "", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Fatalf("health: status %d body %s", w.Code, w.Body.String())
	}

	w = do(t, h, http.MethodGet, "/metrics", "", "", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "http_requests_total") {
		t.Fatalf("metrics: status %d", w.Code)
	}

	_ = d.Close()
	w = do(t, h, http.MethodGet, "/health", "", "", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("health with closed db: status %d, want 503", w.Code)
	}
}

func TestRankingFeed(t *testing.T) {
	s, d := newTestServer(t)
	testutil.SeedCity(t, d, 1006, "Lisbon", "Portugal")
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)

	register(t, s.Router(), "johndoe", "pw")
	token := login(t, s.Router(), "johndoe", "pw")

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/rankings"
	if _, resp, err := websocket.DefaultDialer.Dial(wsURL, nil); err == nil || resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated dial should get 401, err=%v", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+url.QueryEscape(token), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for s.manager.Count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if w := doJSON(t, s.Router(), http.MethodPut, "/rankings/cities/1006", token, `{"personal_score":85.5}`); w.Code != http.StatusOK {
		t.Fatalf("put: %d %s", w.Code, w.Body.String())
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event struct {
		Type   string `json:"type"`
		CityID uint   `json:"city_id"`
	}
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if event.Type != "ranking_upserted" || event.CityID != 1006 {
		t.Fatalf("unexpected event: %+v", event)
	}
}
