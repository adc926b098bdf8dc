package actions

import (
	"errors"
	"fmt"
)

const (
	MessageVersion  = "1.0"
	ContentTypeJSON = "application/json"
)

// ErrMissingParameter is returned when a route's required parameter is absent.
var ErrMissingParameter = errors.New("missing parameter")

// Event is the action-group invocation sent by the hosted agent.
type Event struct {
	MessageVersion string       `json:"messageVersion,omitempty"`
	ActionGroup    string       `json:"actionGroup"`
	APIPath        string       `json:"apiPath"`
	HTTPMethod     string       `json:"httpMethod"`
	Parameters     []Parameter  `json:"parameters"`
	RequestBody    *RequestBody `json:"requestBody,omitempty"`
	SessionID      string       `json:"sessionId,omitempty"`
	InputText      string       `json:"inputText,omitempty"`
}

type Parameter struct {
	Name  string `json:"name"`
	Type  string `json:"type,omitempty"`
	Value string `json:"value"`
}

type RequestBody struct {
	Content map[string]MediaContent `json:"content"`
}

type MediaContent struct {
	Properties []Parameter `json:"properties"`
}

// Response is the envelope returned to the agent for every routed event.
type Response struct {
	MessageVersion string         `json:"messageVersion"`
	Response       ActionResponse `json:"response"`
}

type ActionResponse struct {
	ActionGroup    string                  `json:"actionGroup"`
	APIPath        string                  `json:"apiPath"`
	HTTPMethod     string                  `json:"httpMethod"`
	HTTPStatusCode int                     `json:"httpStatusCode"`
	ResponseBody   map[string]ResponseBody `json:"responseBody"`
}

type ResponseBody struct {
	Body string `json:"body"`
}

// Body returns the JSON encoded body of the envelope.
func (r *Response) Body() string {
	return r.Response.ResponseBody[ContentTypeJSON].Body
}

// NamedParameter returns the value of the first parameter called name.
func (e Event) NamedParameter(name string) (string, error) {
	return findNamed(e.Parameters, name)
}

// NamedProperty returns the value of the first JSON request body property called name.
func (e Event) NamedProperty(name string) (string, error) {
	if e.RequestBody == nil {
		return "", fmt.Errorf("%w: %s (no request body)", ErrMissingParameter, name)
	}
	content, ok := e.RequestBody.Content[ContentTypeJSON]
	if !ok {
		return "", fmt.Errorf("%w: %s (no %s content)", ErrMissingParameter, name, ContentTypeJSON)
	}
	return findNamed(content.Properties, name)
}

func findNamed(params []Parameter, name string) (string, error) {
	for _, p := range params {
		if p.Name == name {
			return p.Value, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrMissingParameter, name)
}
