package patient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/patient-records/internal/model"
	"github.com/jwalitptl/patient-records/internal/repository/memory"
	"github.com/jwalitptl/patient-records/internal/service/patient"
	"github.com/jwalitptl/patient-records/pkg/messaging"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    int               `json:"code"`
		Kind    string            `json:"kind"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

type testServer struct {
	engine *gin.Engine
	events <-chan []byte
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	broker := messaging.NewLocalBroker()
	t.Cleanup(func() { broker.Close() })
	events, err := broker.Subscribe(ctx, "patients")
	require.NoError(t, err)

	svc := patient.NewService(memory.NewPatientTable(), nil, nil)
	engine := gin.New()
	NewHandler(svc, messaging.NewPublisher(broker, "patients", nil, nil), nil).
		RegisterRoutes(engine.Group("/api/v1"))

	return &testServer{engine: engine, events: events}
}

func (s *testServer) do(t *testing.T, method, path, body string) (int, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	s.engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w.Code, env
}

func (s *testServer) nextEvent(t *testing.T) string {
	t.Helper()
	select {
	case raw := <-s.events:
		var msg messaging.Message
		require.NoError(t, json.Unmarshal(raw, &msg))
		return msg.Type
	case <-time.After(time.Second):
		t.Fatal("no event published")
		return ""
	}
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestCreateMasksAndPublishes(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodPost, "/api/v1/patients",
		`{"id": 99, "nome_completo": "Maria Silva", "cpf": "52998224725", "celular": "81987654321", "cep": "50030230"}`)
	require.Equal(t, http.StatusCreated, code)

	p := decode[model.Patient](t, env.Data)
	assert.Equal(t, int64(1), p.ID, "client id ignored")
	assert.Equal(t, "529.982.247-25", p.CPF)
	assert.Equal(t, "(81) 98765-4321", p.MobilePhone)
	assert.Equal(t, "50030-230", p.PostalCode)
	assert.Equal(t, []string{}, p.Specialties)
	assert.Equal(t, messaging.EventPatientCreated, s.nextEvent(t))
}

func TestCreateValidation(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodPost, "/api/v1/patients", `{"nome_completo": " ", "cpf": "123.456.789-00", "email": "x@"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "validation_failed", env.Error.Kind)
	assert.Equal(t, "full name is required", env.Error.Fields["nome_completo"])
	assert.Equal(t, "invalid CPF", env.Error.Fields["cpf"])
	assert.Equal(t, "invalid email", env.Error.Fields["email"])

	code, _ = s.do(t, http.MethodPost, "/api/v1/patients", `{not json`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestOverlongDigitsAreRejected(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodPost, "/api/v1/patients",
		`{"nome_completo": "Maria Silva", "cpf": "52998224725999", "celular": "819876543219999"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "validation_failed", env.Error.Kind)
	assert.Equal(t, "invalid CPF", env.Error.Fields["cpf"])
	assert.Equal(t, "invalid phone number", env.Error.Fields["celular"])

	code, env = s.do(t, http.MethodGet, "/api/v1/patients", "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"total":0`)

	code, _ = s.do(t, http.MethodPost, "/api/v1/patients",
		`{"nome_completo": "Maria Silva", "cpf": "529.982.247-25", "cep": "50030-230"}`)
	require.Equal(t, http.StatusCreated, code)
	s.nextEvent(t)

	code, env = s.do(t, http.MethodPatch, "/api/v1/patients/1", `{"cep": "500302301"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "invalid CEP", env.Error.Fields["cep"])

	code, env = s.do(t, http.MethodPut, "/api/v1/patients/1", `{"nome_completo": "Maria Silva", "telefone_comercial": "813333444455"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "invalid phone number", env.Error.Fields["telefone_comercial"])

	code, env = s.do(t, http.MethodGet, "/api/v1/patients/1", "")
	require.Equal(t, http.StatusOK, code)
	p := decode[model.Patient](t, env.Data)
	assert.Equal(t, "50030-230", p.PostalCode)
	assert.Empty(t, p.WorkPhone)
}

func TestGetUpdateDelete(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(t, http.MethodPost, "/api/v1/patients", `{"nome_completo": "Ana", "cidade": "Recife"}`)
	require.Equal(t, http.StatusCreated, code)
	s.nextEvent(t)

	code, env := s.do(t, http.MethodPatch, "/api/v1/patients/1", `{"telefone_comercial": "8133334444"}`)
	require.Equal(t, http.StatusOK, code)
	p := decode[model.Patient](t, env.Data)
	assert.Equal(t, "(81) 3333-4444", p.WorkPhone)
	assert.Equal(t, "Recife", p.City)
	assert.Equal(t, messaging.EventPatientUpdated, s.nextEvent(t))

	code, env = s.do(t, http.MethodPut, "/api/v1/patients/1", `{"nome_completo": "Ana Lima"}`)
	require.Equal(t, http.StatusOK, code)
	p = decode[model.Patient](t, env.Data)
	assert.Equal(t, "Ana Lima", p.FullName)
	assert.Empty(t, p.City, "replace clears omitted fields")
	s.nextEvent(t)

	code, _ = s.do(t, http.MethodPatch, "/api/v1/patients/1", `{"nome_completo": ""}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodDelete, "/api/v1/patients/1", "")
	assert.Equal(t, http.StatusNoContent, code)
	assert.Equal(t, messaging.EventPatientDeleted, s.nextEvent(t))

	code, env = s.do(t, http.MethodGet, "/api/v1/patients/1", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", env.Error.Kind)

	code, _ = s.do(t, http.MethodPatch, "/api/v1/patients/1", `{"cidade": "Olinda"}`)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/patients/abc", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestListSearchAndPaging(t *testing.T) {
	s := newTestServer(t)
	for _, body := range []string{
		`{"nome_completo": "Maria Silva"}`,
		`{"nome_completo": "João", "email": "joao.silva@x.com"}`,
		`{"nome_completo": "Carla"}`,
	} {
		code, _ := s.do(t, http.MethodPost, "/api/v1/patients", body)
		require.Equal(t, http.StatusCreated, code)
	}

	code, env := s.do(t, http.MethodGet, "/api/v1/patients?search=SILVA&page_size=1", "")
	require.Equal(t, http.StatusOK, code)

	type page struct {
		Data       []model.Patient `json:"data"`
		Pagination struct {
			Page       int `json:"page"`
			PageSize   int `json:"page_size"`
			Total      int `json:"total"`
			TotalPages int `json:"total_pages"`
		} `json:"pagination"`
	}
	got := decode[page](t, env.Data)
	assert.Equal(t, 2, got.Pagination.Total)
	assert.Equal(t, 2, got.Pagination.TotalPages)
	require.Len(t, got.Data, 1)

	code, env = s.do(t, http.MethodGet, "/api/v1/patients", "")
	require.Equal(t, http.StatusOK, code)
	got = decode[page](t, env.Data)
	assert.Equal(t, 3, got.Pagination.Total)
	assert.Equal(t, model.DefaultPageSize, got.Pagination.PageSize)
}

func TestOptions(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodGet, "/api/v1/options", "")
	require.Equal(t, http.StatusOK, code)
	opts := decode[model.Options](t, env.Data)
	assert.Len(t, opts.States, 27)
	assert.Contains(t, opts.Specialties, "Ortodontia")
}
