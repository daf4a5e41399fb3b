package obsmock

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"obsctl/internal/types"
)

type apiError struct {
	status  int
	code    string
	summary string
}

func (e apiError) Error() string {
	return fmt.Sprintf("%d: %s: %s", e.status, e.code, e.summary)
}

func unknownProject(project string) apiError {
	return apiError{status: http.StatusNotFound, code: "unknown_project", summary: project}
}

func unknownPackage(pkg string) apiError {
	return apiError{status: http.StatusNotFound, code: "unknown_package", summary: pkg}
}

func unknownRepo(project string, repo string) apiError {
	return apiError{
		status:  http.StatusNotFound,
		code:    "404",
		summary: fmt.Sprintf("project '%s' has no repository '%s'", project, repo),
	}
}

func unknownArch(project string, repo string, arch string) apiError {
	return apiError{
		status:  http.StatusNotFound,
		code:    "404",
		summary: fmt.Sprintf("repository '%s/%s' has no architecture '%s'", project, repo, arch),
	}
}

func unknownParameter(name string) apiError {
	return apiError{status: http.StatusBadRequest, code: "400", summary: fmt.Sprintf("unknown parameter '%s'", name)}
}

func missingParameter(name string) apiError {
	return apiError{status: http.StatusBadRequest, code: "missing_parameter", summary: fmt.Sprintf("Missing parameter '%s'", name)}
}

func unsupported() apiError {
	return apiError{status: http.StatusMisdirectedRequest, code: "unsupported", summary: "Operation not supported by the OBS mock"}
}

func badRequest(summary string) apiError {
	return apiError{status: http.StatusBadRequest, code: "400", summary: summary}
}

func writeAPIError(w http.ResponseWriter, err apiError) {
	log.Debug().Int("status", err.status).Str("code", err.code).Msg("obsmock error")
	writeXML(w, err.status, types.APIStatus{Code: err.code, Summary: err.summary})
}

func writeXML(w http.ResponseWriter, status int, v any) {
	data, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeRaw(w http.ResponseWriter, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func writeStatusOK(w http.ResponseWriter, data ...types.StatusData) {
	writeXML(w, http.StatusOK, types.APIStatus{Code: "ok", Summary: "Ok", Data: data})
}

// handle runs fn and renders a returned apiError as an OBS status document.
func handle(w http.ResponseWriter, fn func() error) {
	err := fn()
	if err == nil {
		return
	}
	if apiErr, ok := err.(apiError); ok {
		writeAPIError(w, apiErr)
		return
	}
	writeAPIError(w, apiError{status: http.StatusInternalServerError, code: "500", summary: err.Error()})
}

func parseNumberParam(value string) (int, error) {
	if value == "" {
		return 0, badRequest("number is empty")
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, badRequest(fmt.Sprintf("not a number: '%s'", value))
	}
	return n, nil
}

func parseBoolParam(value string) (bool, error) {
	switch value {
	case "1":
		return true, nil
	case "0":
		return false, nil
	default:
		return false, badRequest("not a boolean")
	}
}

// queryPairs returns the query parameters in request order.
func queryPairs(r *http.Request) ([][2]string, error) {
	var pairs [][2]string
	raw := r.URL.RawQuery
	for raw != "" {
		var part string
		part, raw, _ = strings.Cut(raw, "&")
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		key, err := url.QueryUnescape(key)
		if err != nil {
			return nil, badRequest(err.Error())
		}
		value, err = url.QueryUnescape(value)
		if err != nil {
			return nil, badRequest(err.Error())
		}
		pairs = append(pairs, [2]string{key, value})
	}
	return pairs, nil
}
