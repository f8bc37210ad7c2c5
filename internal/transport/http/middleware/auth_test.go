package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/application/identity"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/metrics"
)

// ---- fakes ----

type fakeVerifier struct {
	claims identity.TokenClaims
	err    error
	calls  int
	gotTok string
}

func (f *fakeVerifier) VerifyAccessToken(token string) (identity.TokenClaims, error) {
	f.calls++
	f.gotTok = token
	return f.claims, f.err
}

type fakeUsers struct {
	user  domain.User
	err   error
	calls int
	gotID int64
}

func (u *fakeUsers) GetByID(_ context.Context, id int64) (domain.User, error) {
	u.calls++
	u.gotID = id
	return u.user, u.err
}

type writeErrRecorder struct {
	calls int
	last  error
}

func (w *writeErrRecorder) fn(_ http.ResponseWriter, _ *http.Request, err error) {
	w.calls++
	w.last = err
}

type nextRecorder struct {
	calls  int
	gotUsr domain.User
	gotOK  bool
}

func (n *nextRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n.calls++
	n.gotUsr, n.gotOK = PrincipalFromContext(r.Context())
	w.WriteHeader(http.StatusOK)
}

func runAuthMW(t *testing.T, verifier TokenVerifier, users UserReader, req *http.Request) (*writeErrRecorder, *nextRecorder) {
	t.Helper()

	rr := httptest.NewRecorder()
	we := &writeErrRecorder{}
	nx := &nextRecorder{}

	Auth(verifier, users, we.fn)(nx).ServeHTTP(rr, req)
	return we, nx
}

func bearer(tok string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	return req
}

var alice = domain.User{ID: 3, UUID: "uuid-alice", Email: "alice@example.com"}

// ---- tests ----

func TestAuth_MissingAuthorizationHeader_ReturnsTokenMissing(t *testing.T) {
	v := &fakeVerifier{}
	u := &fakeUsers{}
	before := testutil.ToFloat64(metrics.AuthResultsTotal.WithLabelValues("token_missing"))

	we, nx := runAuthMW(t, v, u, httptest.NewRequest(http.MethodGet, "/x", nil))

	if nx.calls != 0 {
		t.Fatalf("expected next not called")
	}
	if we.calls != 1 || !domain.Is(we.last, "token_missing") {
		t.Fatalf("expected token_missing once, got calls=%d err=%v", we.calls, we.last)
	}
	if v.calls != 0 {
		t.Fatalf("verifier should not be called when header missing")
	}
	if got := testutil.ToFloat64(metrics.AuthResultsTotal.WithLabelValues("token_missing")); got != before+1 {
		t.Fatalf("expected token_missing counter +1, got %v -> %v", before, got)
	}
}

func TestAuth_BadAuthorizationScheme_ReturnsTokenInvalid(t *testing.T) {
	v := &fakeVerifier{}
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Basic abc")

	we, nx := runAuthMW(t, v, &fakeUsers{}, req)

	if nx.calls != 0 || !domain.Is(we.last, "token_invalid") {
		t.Fatalf("expected token_invalid, got %v", we.last)
	}
	if v.calls != 0 {
		t.Fatalf("verifier should not be called on bad scheme")
	}
}

func TestAuth_BearerButEmptyToken_ReturnsTokenInvalid(t *testing.T) {
	v := &fakeVerifier{}
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer   ")

	we, nx := runAuthMW(t, v, &fakeUsers{}, req)

	if nx.calls != 0 || !domain.Is(we.last, "token_invalid") {
		t.Fatalf("expected token_invalid, got %v", we.last)
	}
	if v.calls != 0 {
		t.Fatalf("verifier should not be called when raw token empty")
	}
}

func TestAuth_LowercaseScheme_Accepted(t *testing.T) {
	v := &fakeVerifier{claims: identity.TokenClaims{UserID: alice.ID, UserUUID: alice.UUID}}
	u := &fakeUsers{user: alice}
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "bearer abc")

	we, nx := runAuthMW(t, v, u, req)

	if we.calls != 0 || nx.calls != 1 {
		t.Fatalf("expected pass-through, writeErr=%v", we.last)
	}
}

func TestAuth_VerifierReturnsError_PropagatesToWriteErr(t *testing.T) {
	v := &fakeVerifier{err: domain.ErrTokenExpired()}
	u := &fakeUsers{}

	we, nx := runAuthMW(t, v, u, bearer("abc"))

	if nx.calls != 0 {
		t.Fatalf("expected next not called")
	}
	if !domain.Is(we.last, "token_expired") {
		t.Fatalf("expected token_expired, got %v", we.last)
	}
	if v.calls != 1 || v.gotTok != "abc" {
		t.Fatalf("expected verifier called with token=abc, calls=%d gotTok=%q", v.calls, v.gotTok)
	}
	if u.calls != 0 {
		t.Fatalf("users should not be loaded for a rejected token")
	}
}

func TestAuth_ClaimsMissingSubject_ReturnsTokenInvalid(t *testing.T) {
	cases := map[string]identity.TokenClaims{
		"zero id":    {UserID: 0, UserUUID: "x"},
		"empty uuid": {UserID: 1, UserUUID: ""},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			u := &fakeUsers{}
			we, nx := runAuthMW(t, &fakeVerifier{claims: c}, u, bearer("abc"))

			if nx.calls != 0 || !domain.Is(we.last, "token_invalid") {
				t.Fatalf("expected token_invalid, got %v", we.last)
			}
			if u.calls != 0 {
				t.Fatalf("users should not be loaded")
			}
		})
	}
}

func TestAuth_UnknownUser_ReturnsTokenInvalid(t *testing.T) {
	v := &fakeVerifier{claims: identity.TokenClaims{UserID: 99, UserUUID: "gone"}}
	u := &fakeUsers{err: domain.ErrUserNotFound()}

	we, nx := runAuthMW(t, v, u, bearer("abc"))

	if nx.calls != 0 || !domain.Is(we.last, "token_invalid") {
		t.Fatalf("expected token_invalid, got %v", we.last)
	}
	if u.gotID != 99 {
		t.Fatalf("expected lookup of id 99, got %d", u.gotID)
	}
}

func TestAuth_UUIDMismatch_ReturnsTokenInvalid(t *testing.T) {
	v := &fakeVerifier{claims: identity.TokenClaims{UserID: alice.ID, UserUUID: "someone-else"}}
	u := &fakeUsers{user: alice}

	we, nx := runAuthMW(t, v, u, bearer("abc"))

	if nx.calls != 0 || !domain.Is(we.last, "token_invalid") {
		t.Fatalf("expected token_invalid, got %v", we.last)
	}
}

func TestAuth_StorageOutage_Propagates(t *testing.T) {
	v := &fakeVerifier{claims: identity.TokenClaims{UserID: alice.ID, UserUUID: alice.UUID}}
	u := &fakeUsers{err: domain.ErrDBUnavailable(errors.New("down"))}
	before := testutil.ToFloat64(metrics.AuthResultsTotal.WithLabelValues("error"))

	we, nx := runAuthMW(t, v, u, bearer("abc"))

	if nx.calls != 0 || !domain.Is(we.last, "db_unavailable") {
		t.Fatalf("expected db_unavailable, got %v", we.last)
	}
	if got := testutil.ToFloat64(metrics.AuthResultsTotal.WithLabelValues("error")); got != before+1 {
		t.Fatalf("expected error counter +1, got %v -> %v", before, got)
	}
}

func TestAuth_OK_InjectsPrincipal(t *testing.T) {
	v := &fakeVerifier{claims: identity.TokenClaims{UserID: alice.ID, UserUUID: alice.UUID}}
	u := &fakeUsers{user: alice}
	before := testutil.ToFloat64(metrics.AuthResultsTotal.WithLabelValues("ok"))

	we, nx := runAuthMW(t, v, u, bearer("good"))

	if we.calls != 0 {
		t.Fatalf("expected no error, got %v", we.last)
	}
	if nx.calls != 1 || !nx.gotOK {
		t.Fatalf("expected next called with principal")
	}
	if nx.gotUsr != alice {
		t.Fatalf("principal = %+v, want %+v", nx.gotUsr, alice)
	}
	if got := testutil.ToFloat64(metrics.AuthResultsTotal.WithLabelValues("ok")); got != before+1 {
		t.Fatalf("expected ok counter +1, got %v -> %v", before, got)
	}
}

func TestPrincipalFromContext_Absent(t *testing.T) {
	if _, ok := PrincipalFromContext(context.Background()); ok {
		t.Fatalf("expected no principal")
	}
	if _, ok := PrincipalFromContext(WithPrincipal(context.Background(), domain.User{})); ok {
		t.Fatalf("zero user should not count as a principal")
	}
}
