package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Raed-Bourouis/VoiceUP/internal/auth"
	"github.com/Raed-Bourouis/VoiceUP/internal/config"
	"github.com/Raed-Bourouis/VoiceUP/internal/database"
	"github.com/Raed-Bourouis/VoiceUP/internal/handlers"
	"github.com/Raed-Bourouis/VoiceUP/internal/middleware"
	"github.com/Raed-Bourouis/VoiceUP/internal/models"
	"github.com/Raed-Bourouis/VoiceUP/internal/realtime"
	"github.com/Raed-Bourouis/VoiceUP/internal/routes"
	"github.com/Raed-Bourouis/VoiceUP/internal/services"
	"github.com/Raed-Bourouis/VoiceUP/internal/store"
	"github.com/Raed-Bourouis/VoiceUP/pkg/errors"
	"github.com/Raed-Bourouis/VoiceUP/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Init("production")
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// daemon is a fully assembled gateway over an in-memory backend:
// sqlite stands in for the hosted tables, miniredis for the change
// feed, memoryStorage for the buckets.
type daemon struct {
	db       *gorm.DB
	rdb      *redis.Client
	cfg      *config.Config
	router   *gin.Engine
	sessions *auth.Manager
	feed     *realtime.Feed
	views    *services.ViewManager
	push     *services.PushRouter
	storage  *memoryStorage

	chatStore    *store.ChatStore
	messageStore *store.MessageStore
}

var dbSeq int64

func startDaemon(t *testing.T) *daemon {
	t.Helper()

	seq := atomic.AddInt64(&dbSeq, 1)
	dsn := fmt.Sprintf("file:integration_test_%d?mode=memory&cache=shared", seq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	cfg := &config.Config{
		Environment:  "development",
		AvatarBucket: "avatars",
		MediaBucket:  "chat-media",
	}

	profileStore := store.NewProfileStore(db)
	chatStore := store.NewChatStore(db)
	messageStore := store.NewMessageStore(db)
	friendshipStore := store.NewFriendshipStore(db)
	deviceStore := store.NewDeviceStore(db)

	source := &fakeTokenSource{
		accounts: map[string]account{
			"ava@example.com":  {password: "hunter2", userID: "ava"},
			"maya@example.com": {password: "hunter2", userID: "maya"},
		},
	}
	sessions := auth.NewManager(source, profileStore)

	feed := realtime.NewFeed(rdb)
	mediaStorage := newMemoryStorage()

	chats := services.NewChatService(sessions, chatStore)
	messages := services.NewMessageService(sessions, messageStore, chatStore, feed, mediaStorage)
	friendships := services.NewFriendshipService(sessions, friendshipStore, profileStore)
	profiles := services.NewProfileService(sessions, profileStore, mediaStorage)
	push := services.NewPushRouter(sessions, deviceStore)

	resolverFactory := func() *services.MediaResolver {
		return services.NewMediaResolver(mediaStorage, cfg.MediaBucket, cfg.AvatarBucket)
	}
	views := services.NewViewManager(messages, feed, resolverFactory, push)
	t.Cleanup(views.CloseAll)

	limiter := middleware.RateLimit(middleware.NewIPRateLimiter(rate.Limit(1000), 1000))

	r := gin.New()
	r.Use(middleware.ErrorHandler())
	api := r.Group("/api/v1")
	api.Use(middleware.GatewayAuth(cfg))
	routes.RegisterSessionRoutes(api, handlers.NewSessionHandler(sessions), limiter)
	routes.RegisterChatRoutes(api, handlers.NewChatHandler(chats, messages), handlers.NewMessageHandler(messages))
	routes.RegisterSocialRoutes(api, handlers.NewFriendshipHandler(friendships), limiter)
	routes.RegisterProfileRoutes(api, handlers.NewProfileHandler(profiles))
	routes.RegisterDeviceRoutes(api, handlers.NewDeviceHandler(push))

	return &daemon{
		db:           db,
		rdb:          rdb,
		cfg:          cfg,
		router:       r,
		sessions:     sessions,
		feed:         feed,
		views:        views,
		push:         push,
		storage:      mediaStorage,
		chatStore:    chatStore,
		messageStore: messageStore,
	}
}

// signIn authenticates over HTTP and fails the test on any problem.
func (d *daemon) signIn(t *testing.T, email, password string) {
	t.Helper()
	w := d.request(t, http.MethodPost, "/api/v1/session/sign-in",
		map[string]string{"email": email, "password": password})
	if w.Code != http.StatusOK {
		t.Fatalf("sign in: status %d body %s", w.Code, w.Body.String())
	}
}

func (d *daemon) createProfile(t *testing.T, id, username string) models.Profile {
	t.Helper()
	profile := models.Profile{ID: id, Username: username, Name: username}
	if err := d.db.Create(&profile).Error; err != nil {
		t.Fatalf("create profile %s: %v", id, err)
	}
	return profile
}

// otherPhone builds a message service signed in as another user, to
// simulate traffic arriving from a second device.
func (d *daemon) otherPhone(userID string) *services.MessageService {
	return services.NewMessageService(pinnedUser(userID), d.messageStore, d.chatStore, d.feed, d.storage)
}

func (d *daemon) request(t *testing.T, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, path, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	d.router.ServeHTTP(w, req)
	return w
}

// upload performs a multipart file upload to the given path.
func (d *daemon) upload(t *testing.T, path, filename, contentType string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("create multipart part: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write multipart part: %v", err)
	}
	writer.Close()

	req, err := http.NewRequest(http.MethodPost, path, &buf)
	if err != nil {
		t.Fatalf("build upload request: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	d.router.ServeHTTP(w, req)
	return w
}

// waitForSubscriber blocks until the chat's feed channel has a
// listener. The probe payload is not valid JSON so subscribers drop
// it without side effects.
func (d *daemon) waitForSubscriber(t *testing.T, chatID string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		n, err := d.rdb.Publish(context.Background(), "chat:feed:"+chatID, "not json").Result()
		if err == nil && n > 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("no subscriber appeared on the chat feed")
}

// waitUpdate reads updates until one of the wanted kind arrives.
func waitUpdate(t *testing.T, view *services.ChatView, kind services.UpdateKind) services.ViewUpdate {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case update, ok := <-view.Updates():
			if !ok {
				t.Fatalf("updates channel closed while waiting for %s", kind)
			}
			if update.Kind == kind {
				return update
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s update", kind)
		}
	}
}

type account struct {
	password string
	userID   string
}

// fakeTokenSource stands in for the hosted identity service.
type fakeTokenSource struct {
	accounts map[string]account
}

func (s *fakeTokenSource) SignIn(ctx context.Context, email, password string) (*auth.Session, error) {
	acct, ok := s.accounts[email]
	if !ok || acct.password != password {
		return nil, errors.Forbidden("fake.SignIn", "credentials rejected")
	}
	return &auth.Session{
		UserID:       acct.userID,
		Email:        email,
		AccessToken:  "access-" + acct.userID,
		RefreshToken: "refresh-" + acct.userID,
		ExpiresAt:    time.Now().Add(time.Hour),
	}, nil
}

func (s *fakeTokenSource) Refresh(ctx context.Context, refreshToken string) (*auth.Session, error) {
	return nil, errors.Forbidden("fake.Refresh", "credentials rejected")
}

// pinnedUser satisfies services.CurrentUser with a fixed id.
type pinnedUser string

func (u pinnedUser) CurrentUserID() (string, error) {
	return string(u), nil
}

// memoryStorage is the bucket service without the buckets.
type memoryStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	signs   int
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{objects: make(map[string][]byte)}
}

func (m *memoryStorage) Upload(ctx context.Context, bucket, key string, body io.Reader, contentType string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[bucket+"/"+key] = data
	return "https://storage.test/" + bucket + "/" + key, nil
}

func (m *memoryStorage) Remove(ctx context.Context, bucket, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, bucket+"/"+key)
	return nil
}

func (m *memoryStorage) PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signs++
	return fmt.Sprintf("https://storage.test/%s/%s?sig=%d", bucket, key, m.signs), nil
}

func (m *memoryStorage) AvatarBucket() string { return "avatars" }
func (m *memoryStorage) MediaBucket() string  { return "chat-media" }

func (m *memoryStorage) object(bucket, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[bucket+"/"+key]
	return data, ok
}
