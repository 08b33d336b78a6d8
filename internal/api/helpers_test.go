package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"launchpadResume/internal/admin"
	"launchpadResume/internal/auth"
	"launchpadResume/internal/auth/authtest"
	"launchpadResume/internal/config"
	"launchpadResume/internal/database/dbtest"
	"launchpadResume/internal/payment"
	"launchpadResume/internal/resume"
	"launchpadResume/internal/submission"
	"launchpadResume/internal/tasks"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memoryRedis implements authStore in memory.
type memoryRedis struct {
	mu     sync.Mutex
	values map[string]string
	expiry map[string]time.Time
}

func newMemoryRedis() *memoryRedis {
	return &memoryRedis{values: map[string]string{}, expiry: map[string]time.Time{}}
}

func (m *memoryRedis) Incr(_ context.Context, key string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(0)
	if v, ok := m.values[key]; ok {
		_ = json.Unmarshal([]byte(v), &n)
	}
	n++
	b, _ := json.Marshal(n)
	m.values[key] = string(b)
	return redis.NewIntResult(n, nil)
}

func (m *memoryRedis) Expire(_ context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; !ok {
		return redis.NewBoolResult(false, nil)
	}
	m.expiry[key] = time.Now().Add(ttl)
	return redis.NewBoolResult(true, nil)
}

func (m *memoryRedis) TTL(_ context.Context, key string) *redis.DurationCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	at, ok := m.expiry[key]
	if _, exists := m.values[key]; !exists || !ok {
		return redis.NewDurationResult(-2, nil)
	}
	return redis.NewDurationResult(time.Until(at), nil)
}

func (m *memoryRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := m.values[k]; ok {
			n++
		}
		delete(m.values, k)
		delete(m.expiry, k)
	}
	return redis.NewIntResult(n, nil)
}

func (m *memoryRedis) Get(_ context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memoryRedis) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = toString(value)
	if ttl > 0 {
		m.expiry[key] = time.Now().Add(ttl)
	}
	return redis.NewStatusResult("OK", nil)
}

func (m *memoryRedis) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.values[key]
	return ok
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, _ := json.Marshal(v)
	return string(b)
}

// fakeObjects implements storage.ObjectStore in memory.
type fakeObjects struct {
	mu            sync.Mutex
	objects       map[string][]byte
	contentTypes  map[string]string
	deleted       []string
	deletedPrefix []string
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string][]byte{}, contentTypes: map[string]string{}}
}

func (f *fakeObjects) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = b
	f.contentTypes[key] = contentType
	return nil
}

func (f *fakeObjects) PutJSON(ctx context.Context, key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return f.Put(ctx, key, bytes.NewReader(b), int64(len(b)), "application/json")
}

func (f *fakeObjects) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://objects.example.invalid/" + key, nil
}

func (f *fakeObjects) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	delete(f.objects, key)
	return nil
}

func (f *fakeObjects) DeletePrefix(_ context.Context, prefix string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedPrefix = append(f.deletedPrefix, prefix)
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			delete(f.objects, k)
		}
	}
	return nil
}

type recordingEnqueuer struct {
	mu    sync.Mutex
	tasks []*asynq.Task
}

func (r *recordingEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, task)
	return &asynq.TaskInfo{ID: task.Type()}, nil
}

func (r *recordingEnqueuer) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, t.Type())
	}
	return out
}

type testServer struct {
	router   *gin.Engine
	db       *gorm.DB
	tokens   *auth.TokenService
	redis    *memoryRedis
	objects  *fakeObjects
	enqueuer *recordingEnqueuer
	cfg      *config.Config
}

func testConfig() *config.Config {
	return &config.Config{
		API: config.APIConfig{
			AllowedOrigins: []string{"https://app.example.com"},
			MaxResumes:     3,
			InternalSecret: "scrape-secret",
		},
		Auth: config.AuthConfig{
			LoginRateLimitPerHour: 10,
			LoginLockThreshold:    3,
			LoginLockTTL:          time.Minute,
		},
	}
}

func newTestServer(t *testing.T, opts ...func(*config.Config, *Dependencies)) *testServer {
	t.Helper()

	cfg := testConfig()
	db := dbtest.Open(t)
	logger := discardLogger()
	srv := &testServer{
		db:       db,
		tokens:   authtest.NewTokenService(t),
		redis:    newMemoryRedis(),
		objects:  newFakeObjects(),
		enqueuer: &recordingEnqueuer{},
		cfg:      cfg,
	}

	deps := Dependencies{
		DB:          db,
		Tokens:      srv.tokens,
		Redis:       srv.redis,
		Resumes:     resume.NewStore(db),
		Submissions: submission.NewService(db, payment.NewTrustVerifier(logger), 249),
		Admin:       admin.NewService(db, nil, logger),
		Dispatcher:  tasks.NewDispatcher(srv.enqueuer, logger),
		Objects:     srv.objects,
		Logger:      logger,
	}
	for _, opt := range opts {
		opt(cfg, &deps)
	}

	srv.router = NewRouter(cfg, logger)
	RegisterRoutes(srv.router, cfg, deps)
	return srv
}

func (s *testServer) bearer(t *testing.T, userID uint) string {
	return authtest.Bearer(t, s.tokens, userID, false)
}

func (s *testServer) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = strings.NewReader(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", bearer)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}
