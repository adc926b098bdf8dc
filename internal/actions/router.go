package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Ayash-Bera/clinical-trials-sorter/internal/patients"
	"github.com/Ayash-Bera/clinical-trials-sorter/internal/registry"
	"github.com/sirupsen/logrus"
)

const (
	PatientDetailsPath = "/patientMedDetails/{patientName}/{topMedCondition}"
	TrialsPath         = "/getTrials/{age}/{medicalCondition}/{gender}/{country}"

	DefaultTrialCap = 3
)

type Operation string

const (
	OperationPatientDetails Operation = "patient_details"
	OperationTrials         Operation = "trials"
	OperationInvalid        Operation = "invalid"
)

type PatientFinder interface {
	FindPatient(ctx context.Context, name, condition string) patients.Record
}

type TrialSearcher interface {
	SearchRecruitingTrials(ctx context.Context, condition string, maxStudies int) registry.SearchResult
}

type Options struct {
	// TrialCap is the number of studies requested per trial search.
	TrialCap int
}

type Router struct {
	patients PatientFinder
	trials   TrialSearcher
	opts     Options
	logger   *logrus.Logger
}

func NewRouter(patients PatientFinder, trials TrialSearcher, opts Options, logger *logrus.Logger) *Router {
	if opts.TrialCap <= 0 {
		opts.TrialCap = DefaultTrialCap
	}
	return &Router{
		patients: patients,
		trials:   trials,
		opts:     opts,
		logger:   logger,
	}
}

// Result is a routed event together with what was done for it.
type Result struct {
	Response    *Response
	Operation   Operation
	ResultCount int
}

// Route dispatches event to its operation and wraps the outcome in the
// response envelope. Only a missing parameter produces an error; upstream
// failures surface as empty bodies.
func (r *Router) Route(ctx context.Context, event Event) (*Response, error) {
	result, err := r.Handle(ctx, event)
	if err != nil {
		return nil, err
	}
	return result.Response, nil
}

func (r *Router) Handle(ctx context.Context, event Event) (*Result, error) {
	r.logger.WithFields(logrus.Fields{
		"action_group": event.ActionGroup,
		"api_path":     event.APIPath,
		"http_method":  event.HTTPMethod,
	}).Info("Routing action")

	var (
		body  interface{}
		op    Operation
		count int
		err   error
	)

	switch event.APIPath {
	case PatientDetailsPath:
		op = OperationPatientDetails
		body, count, err = r.patientDetails(ctx, event)
	case TrialsPath:
		op = OperationTrials
		body, count, err = r.trialInfo(ctx, event)
	default:
		op = OperationInvalid
		body = fmt.Sprintf("%s is not a valid api, try another one.", event.APIPath)
	}
	if err != nil {
		r.logger.WithError(err).WithField("api_path", event.APIPath).Warn("Rejected action")
		return nil, err
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response body: %w", err)
	}

	return &Result{
		Response:    envelope(event, string(encoded)),
		Operation:   op,
		ResultCount: count,
	}, nil
}

func (r *Router) patientDetails(ctx context.Context, event Event) (interface{}, int, error) {
	name, err := event.NamedParameter("patientName")
	if err != nil {
		return nil, 0, err
	}
	condition, err := event.NamedParameter("medicalCondition")
	if err != nil {
		return nil, 0, err
	}

	record := r.patients.FindPatient(ctx, name, condition)
	if record == nil {
		record = patients.Record{}
	}

	count := 0
	if len(record) > 0 {
		count = 1
	}
	return record, count, nil
}

// trialInfo requires age, gender and country but only filters by condition.
func (r *Router) trialInfo(ctx context.Context, event Event) (interface{}, int, error) {
	for _, name := range []string{"age", "medicalCondition", "gender", "country"} {
		if _, err := event.NamedParameter(name); err != nil {
			return nil, 0, err
		}
	}
	condition, _ := event.NamedParameter("medicalCondition")

	result := r.trials.SearchRecruitingTrials(ctx, condition, r.opts.TrialCap)
	return result.Pair(), result.Len(), nil
}

func envelope(event Event, body string) *Response {
	return &Response{
		MessageVersion: MessageVersion,
		Response: ActionResponse{
			ActionGroup:    event.ActionGroup,
			APIPath:        event.APIPath,
			HTTPMethod:     event.HTTPMethod,
			HTTPStatusCode: http.StatusOK,
			ResponseBody: map[string]ResponseBody{
				ContentTypeJSON: {Body: body},
			},
		},
	}
}
