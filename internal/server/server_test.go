package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravadigital/campus-awards-api/internal/config"
	"github.com/gravadigital/campus-awards-api/internal/domain/participant"
	"github.com/gravadigital/campus-awards-api/internal/middleware/auth"
	"github.com/gravadigital/campus-awards-api/internal/services"
	"github.com/gravadigital/campus-awards-api/internal/storage/memory"
	"github.com/gravadigital/campus-awards-api/internal/storage/photos"
	"github.com/gravadigital/campus-awards-api/internal/storage/repository"
)

const testSecret = "server-test-secret"

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    int             `json:"code"`
}

type harness struct {
	t       *testing.T
	handler http.Handler
	repos   *repository.Container
	admin   string
	student string
}

type photoStub struct{}

func (photoStub) Upload(_ context.Context, candidateID string, r io.Reader, size int64, contentType string) (string, error) {
	if err := photos.CheckImage(contentType, size, 1024); err != nil {
		return "", err
	}
	_, err := io.Copy(io.Discard, r)
	return "https://photos.test/" + candidateID, err
}

func newHarness(t *testing.T, health func(context.Context) error) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Load()
	cfg.Server.Environment = "test"
	cfg.Server.GinMode = gin.TestMode
	cfg.Auth.JWTSecret = testSecret
	cfg.Auth.Issuer = ""
	cfg.Auth.AllowedDomains = []string{"karunya.edu"}
	cfg.Auth.AdminEmails = []string{"dean@karunya.edu"}
	cfg.Photos.MaxFileSize = 1024

	repos := repository.NewContainer(memory.New(memory.WithMaxAttempts(500), memory.WithBackoff(0)))
	svc := services.New(repos, services.Options{
		Policy: participant.NewPolicy(cfg.Auth.AllowedDomains, cfg.Auth.AdminEmails),
		Photos: photoStub{},
	})
	if health == nil {
		health = repos.Health
	}

	h := &harness{t: t, handler: New(cfg, svc, health).Handler(), repos: repos}
	h.admin = h.token("admin-1", "dean@karunya.edu")
	h.student = h.token("student-1", "stu@karunya.edu")
	return h
}

func (h *harness) token(uid, email string) string {
	h.t.Helper()
	tok, err := auth.SignToken(testSecret, "", participant.Identity{UserID: uid, Email: email}, time.Hour)
	require.NoError(h.t, err)
	return tok
}

func (h *harness) do(method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func (h *harness) createBallot(categories int) (ids []string, candidates map[string][]string) {
	h.t.Helper()
	candidates = make(map[string][]string)
	for i := 1; i <= categories; i++ {
		w, env := h.do(http.MethodPost, "/api/admin/categories", h.admin, gin.H{"name": "Category " + string(rune('A'+i)), "order": i})
		require.Equal(h.t, http.StatusCreated, w.Code, w.Body.String())
		var cat struct{ ID string }
		require.NoError(h.t, json.Unmarshal(env.Data, &cat))
		ids = append(ids, cat.ID)

		for order := 1; order <= 3; order++ {
			w, env := h.do(http.MethodPost, "/api/admin/candidates", h.admin, gin.H{"name": "Nominee " + string(rune('0'+order)), "categoryId": cat.ID, "order": order})
			require.Equal(h.t, http.StatusCreated, w.Code, w.Body.String())
			var cand struct{ ID string }
			require.NoError(h.t, json.Unmarshal(env.Data, &cand))
			candidates[cat.ID] = append(candidates[cat.ID], cand.ID)
		}
	}
	return ids, candidates
}

func TestPingAndHealth(t *testing.T) {
	h := newHarness(t, nil)
	w, _ := h.do(http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = h.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	down := newHarness(t, func(context.Context) error { return errors.New("db down") })
	w, _ = down.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestVotingLifecycleOverHTTP(t *testing.T) {
	h := newHarness(t, nil)
	cats, cands := h.createBallot(2)
	cat := cats[0]

	vote := gin.H{"categoryId": cat, "candidateId": cands[cat][1]}

	w, env := h.do(http.MethodPost, "/api/votes", h.student, vote)
	assert.Equal(t, http.StatusLocked, w.Code)
	assert.Equal(t, "Voting is currently closed. Please check back later.", env.Error)

	w, _ = h.do(http.MethodPost, "/api/admin/voting/open", h.student, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = h.do(http.MethodPost, "/api/admin/voting/open", h.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env = h.do(http.MethodPost, "/api/votes", h.student, vote)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var submitted struct {
		CandidateName string `json:"candidateName"`
		Progress      struct {
			TotalVotes int  `json:"totalVotes"`
			IsComplete bool `json:"isComplete"`
		} `json:"progress"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &submitted))
	assert.Equal(t, "Nominee 2", submitted.CandidateName)
	assert.Equal(t, 1, submitted.Progress.TotalVotes)
	assert.False(t, submitted.Progress.IsComplete)

	w, env = h.do(http.MethodPost, "/api/votes", h.student, gin.H{"categoryId": cat, "candidateId": cands[cat][2]})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "You have already voted in this category", env.Error)

	w, env = h.do(http.MethodGet, "/api/me/votes/"+cat, h.student, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var mine struct {
		HasVoted bool `json:"hasVoted"`
		Vote     struct {
			CandidateID string `json:"candidateId"`
		} `json:"vote"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &mine))
	assert.True(t, mine.HasVoted)
	assert.Equal(t, cands[cat][1], mine.Vote.CandidateID)

	w, env = h.do(http.MethodGet, "/api/admin/results/"+cat, h.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var results struct {
		TotalVoters int64 `json:"totalVoters"`
		Candidates  []struct {
			Votes      int64   `json:"votes"`
			Percentage float64 `json:"percentage"`
		} `json:"candidates"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &results))
	assert.Equal(t, int64(1), results.TotalVoters)
	require.Len(t, results.Candidates, 3)
	assert.Equal(t, 100.0, results.Candidates[1].Percentage)

	w, _ = h.do(http.MethodPost, "/api/admin/voting/close", h.admin, gin.H{"message": "Thanks for voting"})
	require.Equal(t, http.StatusOK, w.Code)
	w, env = h.do(http.MethodPost, "/api/votes", h.student, gin.H{"categoryId": cats[1], "candidateId": cands[cats[1]][0]})
	assert.Equal(t, http.StatusLocked, w.Code)
	assert.Equal(t, "Thanks for voting", env.Error)
}

func TestVoteValidationOverHTTP(t *testing.T) {
	h := newHarness(t, nil)
	cats, cands := h.createBallot(2)
	w, _ := h.do(http.MethodPost, "/api/admin/voting/open", h.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = h.do(http.MethodPost, "/api/votes", h.student, gin.H{"categoryId": cats[0]})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = h.do(http.MethodPost, "/api/votes", h.student, gin.H{"categoryId": cats[0], "candidateId": cands[cats[1]][0]})
	assert.Equal(t, http.StatusBadRequest, w.Code, "candidate from another category")

	w, _ = h.do(http.MethodPost, "/api/votes", h.student, gin.H{"categoryId": cats[0], "candidateId": "missing"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = h.do(http.MethodPost, "/api/votes", h.student, gin.H{"categoryId": "missing", "candidateId": cands[cats[0]][0]})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = h.do(http.MethodPost, "/api/votes", h.student, gin.H{"categoryId": "a.b", "candidateId": "c"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = h.do(http.MethodPost, "/api/votes", "", gin.H{"categoryId": cats[0], "candidateId": cands[cats[0]][0]})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestConcurrentDuplicateVotesOverHTTP(t *testing.T) {
	h := newHarness(t, nil)
	cats, cands := h.createBallot(1)
	w, _ := h.do(http.MethodPost, "/api/admin/voting/open", h.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)

	const n = 10
	codes := make([]int, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w, _ := h.do(http.MethodPost, "/api/votes", h.student, gin.H{"categoryId": cats[0], "candidateId": cands[cats[0]][i%3]})
			codes[i] = w.Code
		}(i)
	}
	wg.Wait()

	created, conflicts := 0, 0
	for _, c := range codes {
		switch c {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
			conflicts++
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, n-1, conflicts)
}

func TestSessionAndProgress(t *testing.T) {
	h := newHarness(t, nil)

	w, _ := h.do(http.MethodGet, "/api/me", h.student, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env := h.do(http.MethodPost, "/api/session", h.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var user struct {
		Role string `json:"role"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &user))
	assert.Equal(t, participant.RoleAdmin, user.Role)

	w, env = h.do(http.MethodGet, "/api/me/progress", h.student, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"currentCategory":0,"completedCategories":[],"totalVotes":0,"isComplete":false}`, string(env.Data))

	w, env = h.do(http.MethodGet, "/api/me/votes", h.student, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, string(env.Data))

	foreign := h.token("x", "x@gmail.com")
	w, _ = h.do(http.MethodGet, "/api/me/progress", foreign, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminCatalogOverHTTP(t *testing.T) {
	h := newHarness(t, nil)
	cats, cands := h.createBallot(1)
	cat := cats[0]

	w, _ := h.do(http.MethodPost, "/api/admin/categories", h.admin, gin.H{"name": "Duplicate", "order": 1})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = h.do(http.MethodPost, "/api/admin/candidates", h.admin, gin.H{"name": "Fourth", "categoryId": cat, "order": 3})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = h.do(http.MethodDelete, "/api/admin/categories/"+cat, h.admin, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, env := h.do(http.MethodGet, "/api/admin/setup-status", h.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"status":"Ready"`)

	w, env = h.do(http.MethodGet, "/api/categories/"+cat+"/candidates", h.student, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []struct {
		Order int `json:"order"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 3)
	assert.Equal(t, 1, list[0].Order)

	w, _ = h.do(http.MethodPut, "/api/admin/candidates/"+cands[cat][0], h.admin, gin.H{"name": "Renamed", "order": 1, "totalVotes": 500})
	require.Equal(t, http.StatusOK, w.Code)

	for _, id := range cands[cat] {
		w, _ = h.do(http.MethodDelete, "/api/admin/candidates/"+id, h.admin, nil)
		require.Equal(t, http.StatusOK, w.Code)
	}
	w, _ = h.do(http.MethodDelete, "/api/admin/categories/"+cat, h.admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = h.do(http.MethodGet, "/api/admin/stats", h.admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = h.do(http.MethodGet, "/api/admin/stats/voting", h.admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUploadPhotoOverHTTP(t *testing.T) {
	h := newHarness(t, nil)
	cats, cands := h.createBallot(1)
	id := cands[cats[0]][0]

	upload := func(contentType string, data []byte) *httptest.ResponseRecorder {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", `form-data; name="photo"; filename="p.png"`)
		hdr.Set("Content-Type", contentType)
		part, err := mw.CreatePart(hdr)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/admin/candidates/"+id+"/photo", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+h.admin)
		w := httptest.NewRecorder()
		h.handler.ServeHTTP(w, req)
		return w
	}

	w := upload("image/png", []byte("png"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "https://photos.test/"+id)

	w = upload("application/pdf", []byte("pdf"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = upload("image/png", bytes.Repeat([]byte("x"), 2048))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPublicSettings(t *testing.T) {
	h := newHarness(t, nil)
	w, env := h.do(http.MethodGet, "/api/settings", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"isOpen":false`)

	w, _ = h.do(http.MethodPut, "/api/admin/voting/announcement", h.admin, gin.H{"message": "Results on Friday"})
	require.Equal(t, http.StatusOK, w.Code)
	_, env = h.do(http.MethodGet, "/api/settings", "", nil)
	assert.Contains(t, string(env.Data), "Results on Friday")
}
