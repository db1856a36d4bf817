package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"windshield-quiz-service/internal/app"
	"windshield-quiz-service/internal/domain"
	"windshield-quiz-service/internal/events"
	"windshield-quiz-service/internal/infra/files"
	"windshield-quiz-service/internal/infra/memory"
	"windshield-quiz-service/internal/widget"
	"windshield-quiz-service/quizzes"
)

type fakeTracker struct {
	mu     sync.Mutex
	tracks []events.TrackEvent
	leads  []events.LeadEvent
	widget []widget.Message
}

func (f *fakeTracker) Track(_ context.Context, e events.TrackEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tracks = append(f.tracks, e)
	return nil
}

func (f *fakeTracker) Lead(_ context.Context, e events.LeadEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leads = append(f.leads, e)
	return nil
}

func (f *fakeTracker) Deliver(_ context.Context, m widget.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.widget = append(f.widget, m)
	return nil
}

func (f *fakeTracker) widgetTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.widget))
	for _, m := range f.widget {
		out = append(out, m.Type)
	}
	return out
}

func newTestServer(t *testing.T, opts ...app.ServiceOption) (*httptest.Server, *fakeTracker) {
	t.Helper()
	defs, err := files.Load(quizzes.FS)
	require.NoError(t, err)

	log, _ := logtest.NewNullLogger()
	repo := memory.NewQuizRepository(memory.NewStaticQuizLoader(defs...), time.Minute)
	service := app.NewQuizService(repo, memory.NewSessionStore(), log, opts...)
	tracker := &fakeTracker{}

	srv := httptest.NewServer(NewRouter(RouterConfig{
		Service:   service,
		Tracker:   tracker,
		Analytics: tracker,
		BaseURL:   "https://windshieldadvisor.info",
		Log:       log,
	}))
	t.Cleanup(srv.Close)
	return srv, tracker
}

func call(t *testing.T, srv *httptest.Server, method, path string, body any, out any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(visitorHeader, "visitor-1")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

type answerResp struct {
	Session struct {
		State                string `json:"state"`
		CurrentQuestionIndex int    `json:"currentQuestionIndex"`
		Question             *struct {
			ID      string           `json:"id"`
			Options []map[string]any `json:"options"`
		} `json:"question"`
	} `json:"session"`
	Completed bool `json:"completed"`
	Result    *struct {
		Outcome        string `json:"outcome"`
		Severity       string `json:"severity"`
		Recommendation string `json:"recommendation"`
	} `json:"result"`
}

func answer(questionID, value string) map[string]any {
	return map[string]any{"questionId": questionID, "answer": value}
}

func TestQuizFlowOverREST(t *testing.T) {
	srv, _ := newTestServer(t)
	base := "/api/quizzes/repair-or-replace"

	var begun struct {
		State    string `json:"state"`
		Question struct {
			ID      string           `json:"id"`
			Options []map[string]any `json:"options"`
		} `json:"question"`
	}
	resp := call(t, srv, http.MethodPost, base+"/session", nil, &begun)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "not_started", begun.State)
	assert.Equal(t, "size", begun.Question.ID)
	assert.NotContains(t, begun.Question.Options[0], "recommendation")

	var step answerResp
	call(t, srv, http.MethodPost, base+"/answers", answer("size", "large"), &step)
	assert.Equal(t, 1, step.Session.CurrentQuestionIndex)
	assert.False(t, step.Completed)

	var back struct {
		CurrentQuestionIndex int `json:"currentQuestionIndex"`
	}
	call(t, srv, http.MethodPost, base+"/back", nil, &back)
	assert.Equal(t, 0, back.CurrentQuestionIndex)

	for _, a := range [][2]string{{"size", "coin"}, {"location", "edge"}, {"count", "one"}, {"depth", "outer"}} {
		step = answerResp{}
		resp = call(t, srv, http.MethodPost, base+"/answers", answer(a[0], a[1]), &step)
		require.Equal(t, http.StatusOK, resp.StatusCode, a[0])
	}
	require.True(t, step.Completed)
	assert.Equal(t, "replace", step.Result.Recommendation)
	assert.Equal(t, "critical", step.Result.Severity)

	var completed struct {
		QuizID  string `json:"quizId"`
		Answers []any  `json:"answers"`
	}
	resp = call(t, srv, http.MethodGet, base+"/result", nil, &completed)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "repair-replace", completed.QuizID)
	assert.Len(t, completed.Answers, 4)

	var retake struct {
		State string `json:"state"`
	}
	call(t, srv, http.MethodDelete, base+"/result", nil, &retake)
	assert.Equal(t, "not_started", retake.State)

	resp = call(t, srv, http.MethodGet, base+"/result", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestErrorStatusMapping(t *testing.T) {
	srv, _ := newTestServer(t)
	base := "/api/quizzes/repair-or-replace"

	var errBody errorResponse
	resp := call(t, srv, http.MethodPost, base+"/answers", answer("size", ""), &errBody)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "size", errBody.Field)

	resp = call(t, srv, http.MethodPost, base+"/answers", answer("depth", "outer"), nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = call(t, srv, http.MethodGet, "/api/quizzes/no-such-quiz", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = call(t, srv, http.MethodPost, base+"/answers", map[string]any{"answer": "coin"}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestConditionalQuizEndsEarly(t *testing.T) {
	srv, _ := newTestServer(t)

	var step answerResp
	call(t, srv, http.MethodPost, "/api/quizzes/is-it-safe-to-drive/answers", answer("obstruct", "yes"), &step)
	require.True(t, step.Completed)
	assert.Equal(t, "unsafe_vision", step.Result.Outcome)
	assert.Equal(t, "complete", step.Session.State)
	assert.Nil(t, step.Session.Question)
}

func TestCompletedQuizRejectsFurtherChanges(t *testing.T) {
	srv, _ := newTestServer(t)
	base := "/api/quizzes/is-it-safe-to-drive"

	var step answerResp
	call(t, srv, http.MethodPost, base+"/answers", answer("obstruct", "yes"), &step)
	require.True(t, step.Completed)

	var errBody errorResponse
	resp := call(t, srv, http.MethodPost, base+"/complete", nil, &errBody)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "DELETE /api/quizzes/is-it-safe-to-drive/result", errBody.Retake)

	resp = call(t, srv, http.MethodPost, base+"/answers", answer("obstruct", "no"), nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var session struct {
		State  string `json:"state"`
		Result *struct {
			Outcome string `json:"outcome"`
		} `json:"result"`
	}
	call(t, srv, http.MethodPost, base+"/session", nil, &session)
	assert.Equal(t, "complete", session.State)
	require.NotNil(t, session.Result)
	assert.Equal(t, "unsafe_vision", session.Result.Outcome)

	var completed struct {
		Result struct {
			Outcome string `json:"outcome"`
		} `json:"result"`
	}
	call(t, srv, http.MethodGet, base+"/result", nil, &completed)
	assert.Equal(t, "unsafe_vision", completed.Result.Outcome)
}

func TestEmailResults(t *testing.T) {
	srv, _ := newTestServer(t)

	var errBody errorResponse
	resp := call(t, srv, http.MethodPost, "/api/quiz/email-results", map[string]string{"email": "nope", "quizId": "repair-replace"}, &errBody)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "email", errBody.Field)

	resp = call(t, srv, http.MethodPost, "/api/quiz/email-results", map[string]string{"email": "driver@example.com"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = call(t, srv, http.MethodPost, "/api/quiz/email-results", map[string]string{"email": "driver@example.com", "quizId": "repair-replace"}, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "no result yet")

	call(t, srv, http.MethodPost, "/api/quizzes/is-it-safe-to-drive/answers", answer("obstruct", "yes"), nil)
	resp = call(t, srv, http.MethodPost, "/api/quiz/email-results", map[string]string{"email": "driver@example.com", "quizId": "windshield-safety"}, nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode, "mailer not configured")
}

type recordingMailer struct{ to *string }

func (m recordingMailer) SendResult(_ context.Context, to string, _ domain.Quiz, _ domain.CompletedQuiz) error {
	*m.to = to
	return nil
}

func TestEmailResultsSends(t *testing.T) {
	var sentTo string
	srv, _ := newTestServer(t, app.WithMailer(recordingMailer{to: &sentTo}))

	call(t, srv, http.MethodPost, "/api/quizzes/is-it-safe-to-drive/answers", answer("obstruct", "yes"), nil)
	var body map[string]bool
	resp := call(t, srv, http.MethodPost, "/api/quiz/email-results", map[string]string{"email": "driver@example.com", "quizId": "is-it-safe-to-drive"}, &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, body["success"])
	assert.Equal(t, "driver@example.com", sentTo)
}

func TestWidgetCatalogAndEmbedCode(t *testing.T) {
	srv, _ := newTestServer(t)

	var list struct {
		Success   bool        `json:"success"`
		Quizzes   []embedQuiz `json:"quizzes"`
		PartnerID *string     `json:"partnerId"`
	}
	call(t, srv, http.MethodGet, "/api/widget/quizzes?partnerId=acme", nil, &list)
	require.True(t, list.Success)
	require.Len(t, list.Quizzes, 5)
	assert.Equal(t, "windshield-safety", list.Quizzes[0].ID)
	assert.Equal(t, "https://windshieldadvisor.info/widget/quiz/is-it-safe-to-drive", list.Quizzes[0].EmbedURL)
	assert.Equal(t, "installer-qualified", list.Quizzes[4].ID)
	require.NotNil(t, list.PartnerID)
	assert.Equal(t, "acme", *list.PartnerID)

	var one struct {
		Success bool      `json:"success"`
		Quiz    embedQuiz `json:"quiz"`
	}
	call(t, srv, http.MethodGet, "/api/widget/quizzes/adas-calibration?partnerId=acme", nil, &one)
	assert.Equal(t, 6, one.Quiz.QuestionCount)
	assert.Contains(t, one.Quiz.EmbedCode, `data-quiz="adas-calibration"`)
	assert.Contains(t, one.Quiz.EmbedCode, `data-partner-id="acme"`)
	assert.Contains(t, one.Quiz.EmbedCode, `data-primary-color="1a73e8"`)
	assert.Contains(t, one.Quiz.EmbedCode, "https://windshieldadvisor.info/quiz-embed.js")

	var missing errorResponse
	resp := call(t, srv, http.MethodGet, "/api/widget/quizzes/unknown", nil, &missing)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Quiz not found", missing.Error)
	assert.False(t, missing.Success)
}

func TestTrackingEndpoints(t *testing.T) {
	srv, tracker := newTestServer(t)

	resp := call(t, srv, http.MethodPost, "/api/widget/track", map[string]string{"quizId": "adas-calibration"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var tracked map[string]bool
	resp = call(t, srv, http.MethodPost, "/api/widget/track", map[string]any{
		"partnerId": "acme", "quizId": "adas-calibration", "eventType": "started",
		"metadata": map[string]any{"page": "/blog"},
	}, &tracked)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, tracked["tracked"])

	call(t, srv, http.MethodPost, "/api/lead-tracking", map[string]string{"quizId": "insurance-coverage", "location": "results"}, nil)

	require.Len(t, tracker.tracks, 1)
	assert.Equal(t, "started", tracker.tracks[0].EventType)
	require.Len(t, tracker.leads, 1)
	assert.Equal(t, "results", tracker.leads[0].Location)
}

func TestVisitorCookieIssued(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := srv.Client().Get(srv.URL + "/api/quizzes")
	require.NoError(t, err)
	defer resp.Body.Close()

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == visitorCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.NotEmpty(t, cookie.Value)
}
