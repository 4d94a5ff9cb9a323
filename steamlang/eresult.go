package steamlang

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

type EResult int

// Only the results the community web endpoints are known to send back in X-eresult are listed.
const (
	InvalidResult               EResult = 0
	OKResult                    EResult = 1
	FailResult                  EResult = 2
	InvalidPasswordResult       EResult = 5
	InvalidParamResult          EResult = 8
	BusyResult                  EResult = 10
	InvalidStateResult          EResult = 11
	AccessDeniedResult          EResult = 15
	TimeoutResult               EResult = 16
	ServiceUnavailableResult    EResult = 20
	NotLoggedOnResult           EResult = 21
	LimitExceededResult         EResult = 25
	RateLimitExceededResult     EResult = 84
	TwoFactorCodeMismatchResult EResult = 88
)

var resultNames = map[EResult]string{
	InvalidResult:               "Invalid",
	OKResult:                    "OK",
	FailResult:                  "Fail",
	InvalidPasswordResult:       "InvalidPassword",
	InvalidParamResult:          "InvalidParam",
	BusyResult:                  "Busy",
	InvalidStateResult:          "InvalidState",
	AccessDeniedResult:          "AccessDenied",
	TimeoutResult:               "Timeout",
	ServiceUnavailableResult:    "ServiceUnavailable",
	NotLoggedOnResult:           "NotLoggedOn",
	LimitExceededResult:         "LimitExceeded",
	RateLimitExceededResult:     "RateLimitExceeded",
	TwoFactorCodeMismatchResult: "TwoFactorCodeMismatch",
}

func (r EResult) String() string {
	if name, ok := resultNames[r]; ok {
		return name
	}
	return "EResult(" + strconv.Itoa(int(r)) + ")"
}

// StatusError is returned when Steam answers with a non-2xx status code.
type StatusError struct {
	StatusCode int
	Url        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request to %s failed with status %d", e.Url, e.StatusCode)
}

// ResultError is returned when Steam answers with a non-OK X-eresult header.
type ResultError struct {
	Result  EResult
	Message string
}

func (e *ResultError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("steam responded with non-OK result %v: %s", e.Result, e.Message)
	}
	return fmt.Sprintf("steam responded with non-OK result %v", e.Result)
}

func EnsureSuccessResponse(response *http.Response) error {
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		requestUrl := ""
		if response.Request != nil && response.Request.URL != nil {
			requestUrl = response.Request.URL.Redacted()
		}
		return &StatusError{StatusCode: response.StatusCode, Url: requestUrl}
	}

	return nil
}

// EnsureEResultResponse inspects the X-eresult header. A response without the header is treated as OK.
func EnsureEResultResponse(httpResponse *http.Response) error {
	eResults := httpResponse.Header.Values("X-Eresult")
	if len(eResults) == 0 {
		return nil
	}

	eResult := InvalidResult
	for _, result := range eResults {
		if parsedResult, parseErr := strconv.ParseInt(strings.TrimSpace(result), 10, 64); parseErr == nil {
			eResult = EResult(parsedResult)
			break
		}
	}

	if eResult == OKResult {
		return nil
	}

	return &ResultError{
		Result:  eResult,
		Message: strings.Join(httpResponse.Header.Values("X-Error_message"), "; "),
	}
}
