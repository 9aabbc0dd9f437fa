package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plateserver/internal/config"
	"plateserver/internal/database"
	"plateserver/internal/dto"
	"plateserver/internal/handler"
	"plateserver/internal/logger"
	"plateserver/internal/metrics"
	"plateserver/internal/models"
	"plateserver/internal/repository"
	"plateserver/internal/repository/sqldb"
	"plateserver/internal/routes"
	"plateserver/internal/service/hub"
)

type testServer struct {
	*httptest.Server
	db *database.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := database.Open(context.Background(), config.DatabaseConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "plates.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)

	log := logger.Discard()
	live := hub.New(log, m.LiveViewers)
	ctx, cancel := context.WithCancel(context.Background())
	go live.Run(ctx)
	t.Cleanup(cancel)

	h := handler.New(handler.Deps{
		Detections: sqldb.NewDetectionRepository(db),
		Authorized: sqldb.NewAuthorizedPlateRepository(db),
		Store:      db,
		Live:       live,
		Metrics:    m,
		Logger:     log,
	})

	srv := httptest.NewServer(routes.SetupRoutes(h, m, log))
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, db: db}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, s.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func detail(t *testing.T, resp *http.Response) string {
	t.Helper()
	return decode[map[string]string](t, resp)["detail"]
}

func plateBody(trackID int64, plate string) map[string]any {
	return map[string]any{
		"date":        "2024-05-01",
		"time":        "10:15:00",
		"track_id":    trackID,
		"class_name":  "license_plate",
		"numberplate": plate,
	}
}

func TestCreateThenGetPlate(t *testing.T) {
	srv := newTestServer(t)

	resp := srv.do(t, http.MethodPost, "/plates", plateBody(11, "WX4821A"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[dto.PlateRead](t, resp)
	assert.Equal(t, int64(1), created.ID)

	resp = srv.do(t, http.MethodPost, "/plates", plateBody(12, "GD1122"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	second := decode[dto.PlateRead](t, resp)
	assert.NotEqual(t, created.ID, second.ID)

	resp = srv.do(t, http.MethodGet, "/plates/11", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[[]dto.PlateRead](t, resp)
	require.Len(t, got, 1)
	assert.Equal(t, created, got[0])
	require.NotNil(t, got[0].Date)
	assert.Equal(t, "2024-05-01", *got[0].Date)
	assert.Equal(t, "10:15:00", got[0].Time)
	assert.Equal(t, "license_plate", got[0].ClassName)
	assert.Equal(t, "WX4821A", got[0].Numberplate)

	resp = srv.do(t, http.MethodGet, "/plates", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	all := decode[[]dto.PlateRead](t, resp)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)
}

func TestGetPlatesByTrackID_NotFound(t *testing.T) {
	srv := newTestServer(t)

	resp := srv.do(t, http.MethodGet, "/plates/404", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "No plates found with track_id 404", detail(t, resp))
}

func TestGetPlatesByTrackID_NotInteger(t *testing.T) {
	srv := newTestServer(t)

	resp := srv.do(t, http.MethodGet, "/plates/abc", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestCreatePlate_InvalidBody(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		body any
		want string
	}{
		{"not json", "{", "Invalid request body"},
		{"wrong type", `{"date":"d","time":"t","track_id":"seven","class_name":"c","numberplate":"n"}`, "Invalid request body"},
		{"missing field", map[string]any{"date": "d", "time": "t", "class_name": "c", "numberplate": "n"}, "track_id is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := srv.do(t, http.MethodPost, "/plates", tt.body)
			assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
			assert.Contains(t, detail(t, resp), tt.want)
		})
	}
}

func TestClearPlates_ResetsSequence(t *testing.T) {
	srv := newTestServer(t)

	for i := 0; i < 3; i++ {
		resp := srv.do(t, http.MethodPost, "/plates", plateBody(int64(i), "AA"))
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp := srv.do(t, http.MethodDelete, "/number-plates", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = srv.do(t, http.MethodGet, "/plates", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]dto.PlateRead](t, resp))

	resp = srv.do(t, http.MethodPost, "/plates", plateBody(1, "BB"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, int64(1), decode[dto.PlateRead](t, resp).ID)
}

func TestListPlates_NeverExceedsCap(t *testing.T) {
	srv := newTestServer(t)
	repo := sqldb.NewDetectionRepository(srv.db)

	for i := 0; i < 105; i++ {
		det := (&dto.PlateCreate{Date: "2024-05-01", Time: "10:00", TrackID: ptr(int64(i)), ClassName: "plate", Numberplate: fmt.Sprintf("N%d", i)}).Model()
		_, err := repo.Insert(context.Background(), det)
		require.NoError(t, err)
	}

	for _, path := range []string{"/plates", "/plates?limit=500", "/plates?limit=-3", "/plates?limit=x"} {
		resp := srv.do(t, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Len(t, decode[[]dto.PlateRead](t, resp), config.MaxPlatesLimit, path)
	}

	resp := srv.do(t, http.MethodGet, "/plates?limit=10", nil)
	assert.Len(t, decode[[]dto.PlateRead](t, resp), 10)
}

func TestCreatePlate_Concurrent(t *testing.T) {
	srv := newTestServer(t)

	const n = 20
	ids := make([]int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			data, _ := json.Marshal(plateBody(int64(i), fmt.Sprintf("CC%02d", i)))
			resp, err := http.Post(srv.URL+"/plates", "application/json", bytes.NewReader(data))
			if err != nil {
				return
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusCreated {
				return
			}
			var read dto.PlateRead
			if json.NewDecoder(resp.Body).Decode(&read) == nil {
				ids[i] = read.ID
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[int64]bool)
	for _, id := range ids {
		require.NotZero(t, id)
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}

	resp := srv.do(t, http.MethodGet, "/plates", nil)
	assert.Len(t, decode[[]dto.PlateRead](t, resp), n)
}

func TestAuthorizedPlates_CreateListDuplicate(t *testing.T) {
	srv := newTestServer(t)

	resp := srv.do(t, http.MethodPost, "/authorized-plates", map[string]any{"plate_number": "PO5531", "owner_name": "Ewa"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[dto.AuthorizedPlateRead](t, resp)
	assert.Equal(t, "PO5531", created.PlateNumber)
	require.NotNil(t, created.OwnerName)
	assert.Equal(t, "Ewa", *created.OwnerName)
	assert.False(t, created.CreatedAt.IsZero())

	resp = srv.do(t, http.MethodPost, "/authorized-plates", map[string]any{"plate_number": "PO5531", "owner_name": "Someone else"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Plate already exists", detail(t, resp))

	resp = srv.do(t, http.MethodPost, "/authorized-plates", map[string]any{"plate_number": "KR0001"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Nil(t, decode[dto.AuthorizedPlateRead](t, resp).OwnerName)

	resp = srv.do(t, http.MethodGet, "/authorized-plates", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	plates := decode[[]dto.AuthorizedPlateRead](t, resp)
	require.Len(t, plates, 2)
	assert.Equal(t, "KR0001", plates[0].PlateNumber)
	assert.Equal(t, "PO5531", plates[1].PlateNumber)
	require.NotNil(t, plates[1].OwnerName)
	assert.Equal(t, "Ewa", *plates[1].OwnerName)
}

func TestAuthorizedPlates_MissingPlateNumber(t *testing.T) {
	srv := newTestServer(t)

	resp := srv.do(t, http.MethodPost, "/authorized-plates", map[string]any{"owner_name": "Ewa"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "plate_number is required", detail(t, resp))
}

func TestAuthorizedPlates_Clear(t *testing.T) {
	srv := newTestServer(t)

	resp := srv.do(t, http.MethodPost, "/authorized-plates", map[string]any{"plate_number": "A1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = srv.do(t, http.MethodDelete, "/authorized-plates", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = srv.do(t, http.MethodGet, "/authorized-plates", nil)
	assert.Empty(t, decode[[]dto.AuthorizedPlateRead](t, resp))
}

func TestMatchingPlates(t *testing.T) {
	srv := newTestServer(t)

	resp := srv.do(t, http.MethodPost, "/plates", plateBody(1, "PLATE-A"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = srv.do(t, http.MethodPost, "/plates", plateBody(2, "PLATE-B"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = srv.do(t, http.MethodPost, "/authorized-plates", map[string]any{"plate_number": "PLATE-A"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = srv.do(t, http.MethodGet, "/matching-plates", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	matches := decode[[]dto.PlateRead](t, resp)
	require.Len(t, matches, 1)
	assert.Equal(t, "PLATE-A", matches[0].Numberplate)
	assert.Equal(t, int64(1), matches[0].TrackID)
}

func TestLiveFeed_ReceivesCreatedPlate(t *testing.T) {
	srv := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/plates"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Registration happens asynchronously after the upgrade; keep posting
	// until the viewer receives a message.
	received := make(chan dto.PlateRead, 1)
	go func() {
		var read dto.PlateRead
		if err := conn.ReadJSON(&read); err == nil {
			received <- read
		}
	}()

	deadline := time.After(5 * time.Second)
	for {
		resp := srv.do(t, http.MethodPost, "/plates", plateBody(77, "LIVE1"))
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		select {
		case read := <-received:
			assert.Equal(t, "LIVE1", read.Numberplate)
			assert.Equal(t, int64(77), read.TrackID)
			return
		case <-time.After(100 * time.Millisecond):
		case <-deadline:
			t.Fatal("live feed did not deliver a detection")
		}
	}
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t)

	resp := srv.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = srv.do(t, http.MethodPost, "/plates", plateBody(1, "M1"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = srv.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "plates_detections_created_total 1")
	assert.Contains(t, buf.String(), `route="/plates"`)

	_ = srv.db.Close()
	resp = srv.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func ptr[T any](v T) *T { return &v }

// failingDetections fails every call with err.
type failingDetections struct{ err error }

func (f failingDetections) Insert(context.Context, *models.Detection) (*models.Detection, error) {
	return nil, f.err
}
func (f failingDetections) List(context.Context, int) ([]models.Detection, error) { return nil, f.err }
func (f failingDetections) ListByTrackID(context.Context, int64) ([]models.Detection, error) {
	return nil, f.err
}
func (f failingDetections) ListMatching(context.Context) ([]models.Detection, error) {
	return nil, f.err
}
func (f failingDetections) Count(context.Context) (int, error) { return 0, f.err }
func (f failingDetections) DeleteAll(context.Context) error   { return f.err }

type failingAuthorized struct{ err error }

func (f failingAuthorized) Insert(context.Context, *models.AuthorizedPlate) (*models.AuthorizedPlate, error) {
	return nil, f.err
}
func (f failingAuthorized) List(context.Context) ([]models.AuthorizedPlate, error) {
	return nil, f.err
}
func (f failingAuthorized) Count(context.Context) (int, error) { return 0, f.err }
func (f failingAuthorized) DeleteAll(context.Context) error   { return f.err }

func TestStoreFailures(t *testing.T) {
	rejected := &repository.StoreError{Op: "op", Kind: repository.KindRejected, Message: "value too long", Err: errors.New("22001")}
	down := &repository.StoreError{Op: "op", Kind: repository.KindUnavailable, Message: "connection refused", Err: errors.New("dial")}

	tests := []struct {
		name       string
		err        error
		method     string
		path       string
		body       any
		wantStatus int
		wantDetail string
	}{
		{"create plate rejected", rejected, http.MethodPost, "/plates", plateBody(1, "A"), http.StatusBadRequest, "Error creating plate: value too long"},
		{"clear plates", down, http.MethodDelete, "/number-plates", nil, http.StatusInternalServerError, "Error clearing table: connection refused"},
		{"clear authorized", down, http.MethodDelete, "/authorized-plates", nil, http.StatusInternalServerError, "Error clearing table: connection refused"},
		{"matching", down, http.MethodGet, "/matching-plates", nil, http.StatusInternalServerError, "Error fetching matching plates: connection refused"},
		{"authorized other failure", rejected, http.MethodPost, "/authorized-plates", map[string]any{"plate_number": "A"}, http.StatusBadRequest, "value too long"},
		{"list plates", down, http.MethodGet, "/plates", nil, http.StatusInternalServerError, "Error fetching plates: connection refused"},
		{"track lookup", down, http.MethodGet, "/plates/3", nil, http.StatusInternalServerError, "Error fetching plates: connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := metrics.New(prometheus.NewRegistry())
			require.NoError(t, err)

			h := handler.New(handler.Deps{
				Detections: failingDetections{err: tt.err},
				Authorized: failingAuthorized{err: tt.err},
				Metrics:    m,
			})
			srv := &testServer{Server: httptest.NewServer(routes.SetupRoutes(h, m, logger.Discard()))}
			defer srv.Close()

			resp := srv.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantDetail, detail(t, resp))
		})
	}
}

func TestLiveFeed_Disabled(t *testing.T) {
	h := handler.New(handler.Deps{
		Detections: failingDetections{},
		Authorized: failingAuthorized{},
	})

	rec := httptest.NewRecorder()
	h.LiveFeed(rec, httptest.NewRequest(http.MethodGet, "/ws/plates", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
