package http

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zkpersona/zkpersona/adapters/events"
	"github.com/zkpersona/zkpersona/adapters/prover"
	"github.com/zkpersona/zkpersona/adapters/store"
	"github.com/zkpersona/zkpersona/adapters/tokenizer"
	"github.com/zkpersona/zkpersona/adapters/wallet"
	"github.com/zkpersona/zkpersona/core"
	"github.com/zkpersona/zkpersona/ports"
	"github.com/zkpersona/zkpersona/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *ErrorBody      `json:"error"`
}

type testWallet struct {
	key       *ecdsa.PrivateKey
	address   string
	publicKey string
}

func newTestWallet(t *testing.T) *testWallet {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return &testWallet{
		key:       key,
		address:   crypto.PubkeyToAddress(key.PublicKey).Hex(),
		publicKey: hexutil.Encode(crypto.FromECDSAPub(&key.PublicKey)),
	}
}

func (w *testWallet) sign(t *testing.T, message string) string {
	t.Helper()
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), w.key)
	require.NoError(t, err)
	return hexutil.Encode(sig)
}

func newTestRouter(t *testing.T) (*gin.Engine, ports.Tokenizer) {
	t.Helper()
	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tok := tokenizer.NewJWTTokenizer(signKey)
	authService := service.NewAuthService(
		store.NewMemoryNonceStore(),
		store.NewMemorySessionStore(ports.SystemClock{}),
		store.NewMemoryUserStore(),
		wallet.NewEthereumScheme(),
		tok,
		events.NewNoopPublisher(),
	)
	proofService := service.NewProofService(
		store.NewMemoryProofStore(ports.SystemClock{}),
		prover.NewZKML(ports.SystemClock{}),
		events.NewNoopPublisher(),
	)
	return SetupRouter(authService, proofService), tok
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any, modify func(*http.Request)) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if modify != nil {
		modify(req)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), "body: %s", rec.Body.String())
	return rec, env
}

// authenticate walks the nonce and login endpoints and returns the access
// token for the wallet.
func authenticate(t *testing.T, router *gin.Engine, w *testWallet) (access, refresh string) {
	t.Helper()

	rec, env := doJSON(t, router, http.MethodPost, "/auth/nonce", gin.H{"wallet_address": w.address}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var nonceResp struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &nonceResp))

	rec, env = doJSON(t, router, http.MethodPost, "/auth/login", gin.H{
		"wallet_address": w.address,
		"signature":      w.sign(t, nonceResp.Message),
		"public_key":     w.publicKey,
		"message":        nonceResp.Message,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var loginResp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &loginResp))
	return loginResp.AccessToken, loginResp.RefreshToken
}

func withBearer(token string) func(*http.Request) {
	return func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func TestNonceEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	w := newTestWallet(t)

	rec, env := doJSON(t, router, http.MethodPost, "/auth/nonce", gin.H{"wallet_address": w.address}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", env.Status)

	var resp struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.True(t, strings.HasPrefix(resp.Message, core.ChallengePrefix))
}

func TestNonceEndpointRejectsMalformedAddress(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, env := doJSON(t, router, http.MethodPost, "/auth/nonce", gin.H{"wallet_address": "0x123"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "error", env.Status)
	require.NotNil(t, env.Error)
	assert.Equal(t, CodeInvalidAddress, env.Error.Code)
}

func TestNonceEndpointRequiresBody(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, env := doJSON(t, router, http.MethodPost, "/auth/nonce", gin.H{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, CodeInvalidInput, env.Error.Code)
}

func TestLoginSetsSessionCookie(t *testing.T) {
	router, _ := newTestRouter(t)
	w := newTestWallet(t)

	rec, env := doJSON(t, router, http.MethodPost, "/auth/nonce", gin.H{"wallet_address": w.address}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var nonceResp struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &nonceResp))

	rec, _ = doJSON(t, router, http.MethodPost, "/auth/login", gin.H{
		"wallet_address": w.address,
		"signature":      w.sign(t, nonceResp.Message),
		"public_key":     w.publicKey,
		"message":        nonceResp.Message,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	var found bool
	for _, cookie := range cookies {
		if cookie.Name == SessionCookie {
			found = true
			assert.NotEmpty(t, cookie.Value)
			assert.True(t, cookie.HttpOnly)
		}
	}
	assert.True(t, found, "session cookie not set")
}

func TestLoginRejectsBadSignature(t *testing.T) {
	router, _ := newTestRouter(t)
	w := newTestWallet(t)
	intruder := newTestWallet(t)

	rec, env := doJSON(t, router, http.MethodPost, "/auth/nonce", gin.H{"wallet_address": w.address}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var nonceResp struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &nonceResp))

	rec, env = doJSON(t, router, http.MethodPost, "/auth/login", gin.H{
		"wallet_address": w.address,
		"signature":      intruder.sign(t, nonceResp.Message),
		"public_key":     w.publicKey,
		"message":        nonceResp.Message,
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, CodeAuthenticationFailed, env.Error.Code)
}

func TestMeEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	w := newTestWallet(t)
	access, _ := authenticate(t, router, w)

	rec, env := doJSON(t, router, http.MethodGet, "/auth/me", nil, withBearer(access))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Address string `json:"address"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, w.address, resp.Address)
}

func TestMeAcceptsSessionCookie(t *testing.T) {
	router, _ := newTestRouter(t)
	w := newTestWallet(t)
	access, _ := authenticate(t, router, w)

	rec, env := doJSON(t, router, http.MethodGet, "/auth/me", nil, func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: access})
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", env.Status)
}

func TestRefreshEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	w := newTestWallet(t)
	_, refresh := authenticate(t, router, w)

	rec, env := doJSON(t, router, http.MethodPost, "/auth/refresh", gin.H{"refresh_token": refresh}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEqual(t, refresh, resp.RefreshToken)

	// The rotated-out token no longer refreshes.
	rec, env = doJSON(t, router, http.MethodPost, "/auth/refresh", gin.H{"refresh_token": refresh}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, CodeUnauthorized, env.Error.Code)
}

func TestLogoutRevokesSession(t *testing.T) {
	router, _ := newTestRouter(t)
	w := newTestWallet(t)
	access, refresh := authenticate(t, router, w)

	rec, _ := doJSON(t, router, http.MethodPost, "/auth/logout", gin.H{"refresh_token": refresh}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env := doJSON(t, router, http.MethodGet, "/auth/me", nil, withBearer(access))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, CodeUnauthorized, env.Error.Code)
}

func TestLogoutExpiredTokenReturnsOK(t *testing.T) {
	router, tok := newTestRouter(t)

	// An expired refresh token names a session that is already dead, so
	// logout reports success rather than rejecting the caller.
	now := time.Now()
	refresh, err := tok.SessionToRefreshToken(&core.Session{
		ID:            "session-1",
		Address:       "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		IssuedAt:      now.Add(-8 * 24 * time.Hour),
		RefreshExpiry: now.Add(-time.Hour),
		RefreshID:     "refresh-1",
	})
	require.NoError(t, err)

	rec, env := doJSON(t, router, http.MethodPost, "/auth/logout", gin.H{"refresh_token": refresh}, nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "success", env.Status)
}

func TestGenerateProofRequiresSession(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, env := doJSON(t, router, http.MethodPost, "/generate-proof", gin.H{
		"session_id":     "sess-1",
		"behavior_input": gin.H{"clicks": 3},
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, CodeUnauthorized, env.Error.Code)
}

func TestGenerateProofAndVerifyFlow(t *testing.T) {
	router, _ := newTestRouter(t)
	w := newTestWallet(t)
	access, _ := authenticate(t, router, w)

	rec, env := doJSON(t, router, http.MethodPost, "/generate-proof", gin.H{
		"session_id":     "sess-1",
		"behavior_input": gin.H{"clicks": 3, "pages": []string{"a", "b"}, "device": gin.H{"os": "linux"}},
	}, withBearer(access))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var artifact core.ProofArtifact
	require.NoError(t, json.Unmarshal(env.Data, &artifact))
	assert.NotEmpty(t, artifact.ProofData)
	assert.NotEmpty(t, artifact.VerificationKey)
	assert.True(t, artifact.PublicSignals.InRange())

	// Verification is open to unauthenticated third parties.
	rec, env = doJSON(t, router, http.MethodPost, "/verify", gin.H{
		"proof_data":       artifact.ProofData,
		"verification_key": artifact.VerificationKey,
		"public_signals":   artifact.PublicSignals,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result core.VerificationResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.True(t, result.Valid, result.Reason)
}

func TestGenerateProofRejectsEmptyBehaviorInput(t *testing.T) {
	router, _ := newTestRouter(t)
	w := newTestWallet(t)
	access, _ := authenticate(t, router, w)

	rec, env := doJSON(t, router, http.MethodPost, "/generate-proof", gin.H{
		"session_id":     "sess-1",
		"behavior_input": gin.H{},
	}, withBearer(access))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, CodeInvalidInput, env.Error.Code)
}

func TestGenerateProofIdempotentForSameSessionID(t *testing.T) {
	router, _ := newTestRouter(t)
	w := newTestWallet(t)
	access, _ := authenticate(t, router, w)

	body := gin.H{
		"session_id":     "sess-1",
		"behavior_input": gin.H{"clicks": 3},
	}

	rec, first := doJSON(t, router, http.MethodPost, "/generate-proof", body, withBearer(access))
	require.Equal(t, http.StatusOK, rec.Code)

	rec, second := doJSON(t, router, http.MethodPost, "/generate-proof", body, withBearer(access))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, string(first.Data), string(second.Data))
}

func TestVerifyRejectsMalformedEncoding(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, env := doJSON(t, router, http.MethodPost, "/verify", gin.H{
		"proof_data":       "!!not-base64!!",
		"verification_key": "!!also-not!!",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, CodeInvalidEncoding, env.Error.Code)
}

func TestVerifyTamperedProofIsInvalidNotError(t *testing.T) {
	router, _ := newTestRouter(t)
	w := newTestWallet(t)
	access, _ := authenticate(t, router, w)

	rec, env := doJSON(t, router, http.MethodPost, "/generate-proof", gin.H{
		"session_id":     "sess-1",
		"behavior_input": gin.H{"clicks": 3},
	}, withBearer(access))
	require.Equal(t, http.StatusOK, rec.Code)

	var artifact core.ProofArtifact
	require.NoError(t, json.Unmarshal(env.Data, &artifact))

	signals := artifact.PublicSignals
	signals.BehaviorHash = "deadbeef"

	rec, env = doJSON(t, router, http.MethodPost, "/verify", gin.H{
		"proof_data":       artifact.ProofData,
		"verification_key": artifact.VerificationKey,
		"public_signals":   signals,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result core.VerificationResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.False(t, result.Valid)
	assert.NotEmpty(t, result.Reason)
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, env := doJSON(t, router, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", env.Status)
}
