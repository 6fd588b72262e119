// Package graph is the transport for the Microsoft Graph API: one stateless
// client per logical operation bound to a just-acquired token, error
// classification into apierr kinds, and the two pagination styles.
package graph

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tonimelisma/msservices/internal/apierr"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// errorEnvelope is the Graph API error body.
type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// classifyStatus maps an HTTP status code to an apierr kind.
func classifyStatus(code int) error {
	if code == http.StatusNotFound {
		return apierr.ErrNotFound
	}

	return apierr.ErrUpstream
}

// responseError reads and closes a non-2xx response body and returns the
// classified error. The Graph error code and message are used when the body
// carries them; the raw body is the fallback message.
func responseError(resp *http.Response) *apierr.Error {
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()

	if readErr != nil {
		body = []byte("(failed to read response body)")
	}

	e := apierr.New(classifyStatus(resp.StatusCode), resp.StatusCode, strings.TrimSpace(string(body)), nil)
	e.RequestID = resp.Header.Get("request-id")

	var env errorEnvelope
	if json.Unmarshal(body, &env) == nil && (env.Error.Code != "" || env.Error.Message != "") {
		e.Code = env.Error.Code
		e.Message = env.Error.Message
	}

	return e
}

// transportError wraps a failure that produced no HTTP response.
func transportError(method, target string, err error) error {
	return apierr.New(apierr.ErrUpstream, 0, fmt.Sprintf("%s %s", method, target), err)
}
