package httpserver

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pscheid92/liveshop/internal/domain"
	"github.com/pscheid92/liveshop/internal/platform/config"
)

// --- Mock implementations ---

type mockShowService struct {
	snapshotFn     func() domain.ShowSnapshot
	overlayFn      func() domain.OverlayState
	dismissFn      func() bool
	joinContestFn  func() (domain.ContestView, error)
	chatFn         func() ([]domain.ChatMessage, int)
	submitChatFn   func(text string) (domain.ChatMessage, bool)
	reactionsFn    func() []domain.ReactionToken
	reactFn        func() (domain.ReactionToken, bool)
	startCastingFn func(device domain.DeviceRef) domain.CastingSession
	stopCastingFn  func() domain.CastingSession
	setPlayingFn   func(playing bool) domain.CastingSession
	retryLookupFn  func() error
}

func (m *mockShowService) Snapshot() domain.ShowSnapshot {
	if m.snapshotFn != nil {
		return m.snapshotFn()
	}
	return domain.ShowSnapshot{ShowID: "main"}
}

func (m *mockShowService) Overlay() domain.OverlayState {
	if m.overlayFn != nil {
		return m.overlayFn()
	}
	return domain.OverlayState{Status: domain.OverlayEmpty, Variant: domain.VariantFull}
}

func (m *mockShowService) Dismiss() bool {
	if m.dismissFn != nil {
		return m.dismissFn()
	}
	return false
}

func (m *mockShowService) JoinContest() (domain.ContestView, error) {
	if m.joinContestFn != nil {
		return m.joinContestFn()
	}
	return domain.ContestView{}, domain.ErrNoContest
}

func (m *mockShowService) Chat() ([]domain.ChatMessage, int) {
	if m.chatFn != nil {
		return m.chatFn()
	}
	return nil, 0
}

func (m *mockShowService) SubmitChat(text string) (domain.ChatMessage, bool) {
	if m.submitChatFn != nil {
		return m.submitChatFn(text)
	}
	return domain.ChatMessage{}, false
}

func (m *mockShowService) Reactions() []domain.ReactionToken {
	if m.reactionsFn != nil {
		return m.reactionsFn()
	}
	return nil
}

func (m *mockShowService) React() (domain.ReactionToken, bool) {
	if m.reactFn != nil {
		return m.reactFn()
	}
	return domain.ReactionToken{}, false
}

func (m *mockShowService) StartCasting(device domain.DeviceRef) domain.CastingSession {
	if m.startCastingFn != nil {
		return m.startCastingFn(device)
	}
	return domain.CastingSession{Active: true, TargetDevice: &device}
}

func (m *mockShowService) StopCasting() domain.CastingSession {
	if m.stopCastingFn != nil {
		return m.stopCastingFn()
	}
	return domain.CastingSession{}
}

func (m *mockShowService) SetPlaying(playing bool) domain.CastingSession {
	if m.setPlayingFn != nil {
		return m.setPlayingFn(playing)
	}
	return domain.CastingSession{Playing: playing}
}

func (m *mockShowService) RetryLookup() error {
	if m.retryLookupFn != nil {
		return m.retryLookupFn()
	}
	return domain.ErrNoSpotlight
}

// --- Test helpers ---

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:             "development",
		Port:               "0",
		InputRatePerSecond: 100,
		InputBurst:         100,
	}
}

func newTestServer(t *testing.T, show showService, opts ...func(*Deps)) *Server {
	t.Helper()
	return newTestServerWithConfig(t, testConfig(), show, opts...)
}

func newTestServerWithConfig(t *testing.T, cfg *config.Config, show showService, opts ...func(*Deps)) *Server {
	t.Helper()
	deps := Deps{Show: show}
	for _, opt := range opts {
		opt(&deps)
	}
	return NewServer(cfg, deps)
}

func withHealthChecks(checks ...HealthCheck) func(*Deps) {
	return func(d *Deps) {
		d.HealthChecks = checks
	}
}

// do runs a request through the full router, middleware included.
func do(srv *Server, method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}
