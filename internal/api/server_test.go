package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/pbaille/mindspace/internal/api"
	"github.com/pbaille/mindspace/internal/classifier"
	"github.com/pbaille/mindspace/internal/domain"
	"github.com/pbaille/mindspace/internal/journal"
	"github.com/pbaille/mindspace/internal/store"
)

type failingSave struct{}

func (failingSave) Load(context.Context) ([]domain.MoodRecord, error) { return nil, nil }
func (failingSave) Save(context.Context, []domain.MoodRecord) error {
	return errors.New("disk full")
}

type loaded bool

func (l loaded) Loaded() bool { return bool(l) }

func newServer(t *testing.T, p store.Persister, c classifier.Classifier) (*api.Server, *store.History) {
	t.Helper()
	h := store.NewHistory(p)
	_, err := h.Load(context.Background())
	gt.NoError(t, err)
	at := time.Date(2024, time.December, 7, 20, 15, 0, 0, time.UTC)
	j := journal.New(c, h, journal.WithClock(func() time.Time { return at }))
	return api.New(j, ":0", api.WithModelStatus(loaded(true))), h
}

func do(t *testing.T, s *api.Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func filePersister(t *testing.T) store.Persister {
	return store.NewFilePersister(filepath.Join(t.TempDir(), store.FileName))
}

func TestAddEntry(t *testing.T) {
	s, h := newServer(t, filePersister(t), classifier.Static(domain.Normal, 0.92))

	rec := do(t, s, http.MethodPost, "/entries", `{"content":"I feel great today"}`)
	gt.Equal(t, rec.Code, http.StatusCreated)

	resp := decode[api.AddEntryResponse](t, rec)
	gt.True(t, resp.Persisted)
	gt.V(t, resp.Entry).NotNil()
	gt.Equal(t, resp.Entry.Mood, domain.Normal)
	gt.Equal(t, resp.Entry.Confidence, 0.92)
	gt.A(t, h.Records()).Length(1)
}

func TestAddEntryRejectsBadInput(t *testing.T) {
	s, h := newServer(t, filePersister(t), classifier.Static(domain.Normal, 0.92))

	gt.Equal(t, do(t, s, http.MethodPost, "/entries", `{"content":"  "}`).Code, http.StatusBadRequest)
	gt.Equal(t, do(t, s, http.MethodPost, "/entries", `not json`).Code, http.StatusBadRequest)
	gt.A(t, h.Records()).Length(0)
}

func TestAddEntryStoreWriteFailure(t *testing.T) {
	s, h := newServer(t, failingSave{}, classifier.Static(domain.Anxiety, 0.6))

	rec := do(t, s, http.MethodPost, "/entries", `{"content":"deadline tomorrow"}`)
	gt.Equal(t, rec.Code, http.StatusInternalServerError)

	resp := decode[api.AddEntryResponse](t, rec)
	gt.False(t, resp.Persisted)
	gt.V(t, resp.Entry).NotNil()
	gt.Equal(t, resp.Entry.Mood, domain.Anxiety)
	gt.S(t, resp.Error).Contains("store write failed")
	gt.A(t, h.Records()).Length(1)
}

func TestAddEntryPredictionFailure(t *testing.T) {
	c := classifier.Func(func(context.Context, string) (domain.Prediction, error) {
		return domain.Prediction{}, errors.New("model crashed")
	})
	s, h := newServer(t, filePersister(t), c)

	gt.Equal(t, do(t, s, http.MethodPost, "/entries", `{"content":"hello"}`).Code, http.StatusBadGateway)
	gt.A(t, h.Records()).Length(0)
}

func TestListAndGetEntries(t *testing.T) {
	s, h := newServer(t, filePersister(t), classifier.Static(domain.Normal, 0.5))
	for i := 0; i < 3; i++ {
		gt.Equal(t, do(t, s, http.MethodPost, "/entries", `{"content":"entry"}`).Code, http.StatusCreated)
	}

	list := decode[struct {
		Entries []domain.MoodRecord `json:"entries"`
		Total   int                 `json:"total"`
	}](t, do(t, s, http.MethodGet, "/entries?limit=2", ""))
	gt.Equal(t, list.Total, 3)
	gt.A(t, list.Entries).Length(2)
	// newest first
	gt.Equal(t, list.Entries[0].ID, h.Records()[2].ID)

	id := h.Records()[0].ID
	rec := do(t, s, http.MethodGet, "/entries/"+id[:8], "")
	gt.Equal(t, rec.Code, http.StatusOK)
	gt.Equal(t, decode[domain.MoodRecord](t, rec).ID, id)

	gt.Equal(t, do(t, s, http.MethodGet, "/entries/zzzz", "").Code, http.StatusNotFound)
}

func TestChartAndMoods(t *testing.T) {
	s, _ := newServer(t, filePersister(t), classifier.Static(domain.Depression, 0.8))
	gt.Equal(t, do(t, s, http.MethodPost, "/entries", `{"content":"tired"}`).Code, http.StatusCreated)

	chart := do(t, s, http.MethodGet, "/chart?tz=UTC", "")
	gt.Equal(t, chart.Code, http.StatusOK)
	gt.S(t, chart.Body.String()).Contains(`"Depression"`)

	gt.Equal(t, do(t, s, http.MethodGet, "/chart?tz=Nowhere/Land", "").Code, http.StatusBadRequest)

	moods := decode[struct {
		Moods []struct {
			Mood  string `json:"mood"`
			Count int    `json:"count"`
		} `json:"moods"`
	}](t, do(t, s, http.MethodGet, "/moods", ""))
	var depression int
	for _, m := range moods.Moods {
		if m.Mood == domain.Depression {
			depression = m.Count
		}
	}
	gt.Equal(t, depression, 1)
}

func TestChartEmptyHistory(t *testing.T) {
	s, _ := newServer(t, filePersister(t), classifier.Static(domain.Normal, 1))
	rec := do(t, s, http.MethodGet, "/chart", "")
	gt.Equal(t, rec.Code, http.StatusOK)
	gt.S(t, rec.Body.String()).Contains(`"days":[]`)
}

func TestHealthAndTip(t *testing.T) {
	s, _ := newServer(t, filePersister(t), classifier.Static(domain.Normal, 1))

	health := decode[map[string]any](t, do(t, s, http.MethodGet, "/health", ""))
	gt.Equal(t, health["status"], any("ok"))
	gt.Equal(t, health["history"], any("ready"))
	gt.Equal(t, health["classifier_loaded"], any(true))

	tip := decode[map[string]string](t, do(t, s, http.MethodGet, "/tips/random", ""))
	gt.True(t, tip["tip"] != "")
}

func TestHealthBeforeLoad(t *testing.T) {
	h := store.NewHistory(filePersister(t))
	s := api.New(journal.New(classifier.Static(domain.Normal, 1), h), ":0")

	health := decode[map[string]any](t, do(t, s, http.MethodGet, "/health", ""))
	gt.Equal(t, health["history"], any("uninitialized"))

	gt.Equal(t, do(t, s, http.MethodPost, "/entries", `{"content":"hi"}`).Code, http.StatusServiceUnavailable)
}
