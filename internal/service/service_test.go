package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/taskguard/taskguard/internal/auth"
	"github.com/taskguard/taskguard/internal/metrics"
	"github.com/taskguard/taskguard/internal/testutil"
)

var testSecret = []byte("service-test-secret-0123456789abcdef")

const testIssuer = "taskguard-test"

type testEnv struct {
	store    *testutil.MemStore
	recorder *metrics.InMemoryRecorder
	tokens   *auth.TokenService
	auth     *AuthService
	tasks    *TaskService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	hasher, err := auth.NewHasher(auth.HasherConfig{Algorithm: auth.AlgorithmBcrypt, BcryptCost: 4})
	require.NoError(t, err)

	tokens, err := auth.NewTokenService(auth.TokenConfig{Secret: testSecret, Issuer: testIssuer})
	require.NoError(t, err)

	store := testutil.NewMemStore()
	recorder := metrics.NewInMemory()

	return &testEnv{
		store:    store,
		recorder: recorder,
		tokens:   tokens,
		auth:     NewAuthService(store, hasher, tokens, recorder),
		tasks:    NewTaskService(store, recorder),
	}
}
