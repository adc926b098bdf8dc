package actions

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/Ayash-Bera/clinical-trials-sorter/internal/patients"
	"github.com/Ayash-Bera/clinical-trials-sorter/internal/registry"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPatients struct {
	records []patients.Record
	calls   int
}

func (s *stubPatients) FindPatient(ctx context.Context, name, condition string) patients.Record {
	s.calls++
	for _, r := range s.records {
		if r.Matches(name, condition) {
			return r
		}
	}
	return patients.Record{}
}

type stubTrials struct {
	result        registry.SearchResult
	gotCondition  string
	gotMaxStudies int
	calls         int
}

func (s *stubTrials) SearchRecruitingTrials(ctx context.Context, condition string, maxStudies int) registry.SearchResult {
	s.calls++
	s.gotCondition = condition
	s.gotMaxStudies = maxStudies
	return s.result
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func params(kv ...string) []Parameter {
	var out []Parameter
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, Parameter{Name: kv[i], Type: "string", Value: kv[i+1]})
	}
	return out
}

func newTestRouter() (*Router, *stubPatients, *stubTrials) {
	p := &stubPatients{records: []patients.Record{
		{"patientName": "jane doe", "condition": "diabetes", "age": "54"},
	}}
	tr := &stubTrials{result: registry.SearchResult{
		EligibilityCriteria: []string{"Adults 18+", registry.Unknown},
		NCTIDs:              []string{"NCT001", "NCT002"},
	}}
	return NewRouter(p, tr, Options{}, testLogger()), p, tr
}

func TestRouter_PatientDetails(t *testing.T) {
	router, p, tr := newTestRouter()

	resp, err := router.Route(context.Background(), Event{
		ActionGroup: "ClinicalTrials",
		APIPath:     PatientDetailsPath,
		HTTPMethod:  "GET",
		Parameters:  params("patientName", "Jane Doe", "medicalCondition", "Diabetes"),
	})
	require.NoError(t, err)

	assert.Equal(t, "1.0", resp.MessageVersion)
	assert.Equal(t, "ClinicalTrials", resp.Response.ActionGroup)
	assert.Equal(t, PatientDetailsPath, resp.Response.APIPath)
	assert.Equal(t, "GET", resp.Response.HTTPMethod)
	assert.Equal(t, http.StatusOK, resp.Response.HTTPStatusCode)
	assert.JSONEq(t, `{"patientName":"jane doe","condition":"diabetes","age":"54"}`, resp.Body())
	assert.Equal(t, 1, p.calls)
	assert.Equal(t, 0, tr.calls)
}

type datasetLoader string

func (d datasetLoader) Load(ctx context.Context) ([]patients.Record, error) {
	return patients.DecodeRecords(strings.NewReader(string(d)))
}

func TestRouter_PatientDetailsKeepsNumbersExact(t *testing.T) {
	lookup := patients.NewLookup(datasetLoader(`[{"patientName":"jane doe","condition":"diabetes","mrn":12345678901234567,"weightKg":70.0}]`), testLogger())
	router := NewRouter(lookup, &stubTrials{}, Options{}, testLogger())

	resp, err := router.Route(context.Background(), Event{
		APIPath:    PatientDetailsPath,
		Parameters: params("patientName", "Jane Doe", "medicalCondition", "Diabetes"),
	})
	require.NoError(t, err)

	assert.Contains(t, resp.Body(), `"mrn":12345678901234567`)
	assert.Contains(t, resp.Body(), `"weightKg":70.0`)
}

func TestRouter_PatientDetailsNoMatch(t *testing.T) {
	router, _, _ := newTestRouter()

	result, err := router.Handle(context.Background(), Event{
		APIPath:    PatientDetailsPath,
		Parameters: params("patientName", "Jane Doe", "medicalCondition", "Asthma"),
	})
	require.NoError(t, err)

	assert.Equal(t, "{}", result.Response.Body())
	assert.Equal(t, OperationPatientDetails, result.Operation)
	assert.Equal(t, 0, result.ResultCount)
	assert.Equal(t, http.StatusOK, result.Response.Response.HTTPStatusCode)
}

func TestRouter_Trials(t *testing.T) {
	router, p, tr := newTestRouter()

	result, err := router.Handle(context.Background(), Event{
		ActionGroup: "ClinicalTrials",
		APIPath:     TrialsPath,
		HTTPMethod:  "GET",
		Parameters:  params("age", "54", "medicalCondition", "Diabetes", "gender", "F", "country", "Canada"),
	})
	require.NoError(t, err)

	assert.JSONEq(t, `[["Adults 18+","Unknown"],["NCT001","NCT002"]]`, result.Response.Body())
	assert.Equal(t, "Diabetes", tr.gotCondition)
	assert.Equal(t, DefaultTrialCap, tr.gotMaxStudies)
	assert.Equal(t, OperationTrials, result.Operation)
	assert.Equal(t, 2, result.ResultCount)
	assert.Equal(t, 0, p.calls)
}

func TestRouter_TrialsEmptyResult(t *testing.T) {
	tr := &stubTrials{result: registry.NewSearchResult()}
	router := NewRouter(&stubPatients{}, tr, Options{TrialCap: 5}, testLogger())

	resp, err := router.Route(context.Background(), Event{
		APIPath:    TrialsPath,
		Parameters: params("age", "1", "medicalCondition", "x", "gender", "M", "country", "US"),
	})
	require.NoError(t, err)

	assert.Equal(t, `[[],[]]`, resp.Body())
	assert.Equal(t, 5, tr.gotMaxStudies)
}

func TestRouter_InvalidPath(t *testing.T) {
	router, p, tr := newTestRouter()

	result, err := router.Handle(context.Background(), Event{
		ActionGroup: "ClinicalTrials",
		APIPath:     "/bogus/{x}",
		HTTPMethod:  "POST",
	})
	require.NoError(t, err)

	var body string
	require.NoError(t, json.Unmarshal([]byte(result.Response.Body()), &body))
	assert.Equal(t, "/bogus/{x} is not a valid api, try another one.", body)
	assert.Equal(t, OperationInvalid, result.Operation)
	assert.Equal(t, http.StatusOK, result.Response.Response.HTTPStatusCode)
	assert.Equal(t, "/bogus/{x}", result.Response.Response.APIPath)
	assert.Equal(t, 0, p.calls)
	assert.Equal(t, 0, tr.calls)
}

func TestRouter_MissingParameters(t *testing.T) {
	router, p, tr := newTestRouter()

	cases := []struct {
		name  string
		event Event
		param string
	}{
		{"patient name", Event{APIPath: PatientDetailsPath, Parameters: params("medicalCondition", "x")}, "patientName"},
		{"patient condition", Event{APIPath: PatientDetailsPath, Parameters: params("patientName", "x")}, "medicalCondition"},
		{"trial age", Event{APIPath: TrialsPath, Parameters: params("medicalCondition", "x", "gender", "F", "country", "US")}, "age"},
		{"trial country", Event{APIPath: TrialsPath, Parameters: params("age", "1", "medicalCondition", "x", "gender", "F")}, "country"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := router.Route(context.Background(), tc.event)
			require.Error(t, err)
			assert.Nil(t, resp)
			assert.True(t, errors.Is(err, ErrMissingParameter))
			assert.Contains(t, err.Error(), tc.param)
		})
	}

	assert.Equal(t, 0, p.calls)
	assert.Equal(t, 0, tr.calls)
}

func TestEvent_NamedProperty(t *testing.T) {
	event := Event{RequestBody: &RequestBody{Content: map[string]MediaContent{
		ContentTypeJSON: {Properties: params("note", "hello")},
	}}}

	v, err := event.NamedProperty("note")
	require.NoError(t, err)
	assert.Equal(t, "hello", v)

	_, err = event.NamedProperty("other")
	assert.ErrorIs(t, err, ErrMissingParameter)

	_, err = Event{}.NamedProperty("note")
	assert.ErrorIs(t, err, ErrMissingParameter)
}

func TestEvent_DecodeAgentPayload(t *testing.T) {
	payload := `{
		"messageVersion": "1.0",
		"actionGroup": "ClinicalTrials",
		"apiPath": "/getTrials/{age}/{medicalCondition}/{gender}/{country}",
		"httpMethod": "GET",
		"sessionId": "CLINSESSION115",
		"parameters": [
			{"name": "age", "type": "string", "value": "54"},
			{"name": "medicalCondition", "type": "string", "value": "Diabetes"},
			{"name": "gender", "type": "string", "value": "F"},
			{"name": "country", "type": "string", "value": "US"}
		]
	}`

	var event Event
	require.NoError(t, json.Unmarshal([]byte(payload), &event))

	v, err := event.NamedParameter("medicalCondition")
	require.NoError(t, err)
	assert.Equal(t, "Diabetes", v)
	assert.Equal(t, TrialsPath, event.APIPath)
}

func TestResponse_WireShape(t *testing.T) {
	router, _, _ := newTestRouter()
	resp, err := router.Route(context.Background(), Event{ActionGroup: "g", APIPath: "/x", HTTPMethod: "GET"})
	require.NoError(t, err)

	encoded, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"messageVersion": "1.0",
		"response": {
			"actionGroup": "g",
			"apiPath": "/x",
			"httpMethod": "GET",
			"httpStatusCode": 200,
			"responseBody": {"application/json": {"body": "\"/x is not a valid api, try another one.\""}}
		}
	}`, string(encoded))
}
