// Package gatewayhttp is the HTTP/WebSocket surface over the gateway
// core (spec §6.1, §6.2): content negotiation, batch requests, and the
// graphql-transport-ws subscription protocol, grounded on the teacher's
// server/gateway.go Run() (HTTP server bootstrap) and
// volaticloud/internal/graph/websocket.go (gorilla/websocket Upgrader +
// CheckOrigin + an auth-checking InitFunc run at connection_init).
package gatewayhttp

import "net/http"

// ErrorCode is one of spec §7's stable extensions.code values.
type ErrorCode string

const (
	CodeBadRequest                ErrorCode = "BAD_REQUEST"
	CodeOperationValidationError   ErrorCode = "OPERATION_VALIDATION_ERROR"
	CodeOperationLimitsExceeded    ErrorCode = "OPERATION_LIMITS_EXCEEDED"
	CodePersistedQueryNotFound     ErrorCode = "PERSISTED_QUERY_NOT_FOUND"
	CodeUnauthorized               ErrorCode = "UNAUTHORIZED"
	CodeSubgraphRequestError       ErrorCode = "SUBGRAPH_REQUEST_ERROR"
	CodeSubgraphInvalidResponse    ErrorCode = "SUBGRAPH_INVALID_RESPONSE_ERROR"
	CodeRateLimited                ErrorCode = "RATE_LIMITED"
	CodeExtensionError             ErrorCode = "EXTENSION_ERROR"
	CodeInternalServerError        ErrorCode = "INTERNAL_SERVER_ERROR"
)

// gatewayError is a request-level error produced before (or instead of)
// any plan execution — malformed request, failed auth, refused rate
// limit, parser/binder/solver failure. Field-level errors produced
// during execution travel as response.GraphQLError instead and never
// become a gatewayError.
type gatewayError struct {
	Code    ErrorCode
	Message string
	Status  int // HTTP status for the single-JSON response case
}

func (e *gatewayError) Error() string { return e.Message }

func badRequest(msg string) *gatewayError {
	return &gatewayError{Code: CodeBadRequest, Message: msg, Status: http.StatusBadRequest}
}

func operationValidationError(msg string) *gatewayError {
	return &gatewayError{Code: CodeOperationValidationError, Message: msg, Status: http.StatusOK}
}

func operationLimitsExceeded(msg string) *gatewayError {
	return &gatewayError{Code: CodeOperationLimitsExceeded, Message: msg, Status: http.StatusOK}
}

func persistedQueryNotFound() *gatewayError {
	return &gatewayError{Code: CodePersistedQueryNotFound, Message: "persisted query not found", Status: http.StatusOK}
}

func unauthorized(msg string, streaming bool) *gatewayError {
	status := http.StatusUnauthorized
	if streaming {
		status = http.StatusOK
	}
	return &gatewayError{Code: CodeUnauthorized, Message: msg, Status: status}
}

func rateLimited(refused bool) *gatewayError {
	status := http.StatusOK
	if refused {
		status = http.StatusTooManyRequests
	}
	return &gatewayError{Code: CodeRateLimited, Message: "rate limit exceeded", Status: status}
}

func internalServerError(msg string) *gatewayError {
	return &gatewayError{Code: CodeInternalServerError, Message: "internal server error", Status: http.StatusOK}
}

// responseStatusHeader is the value of X-Grafbase-GraphQL-Response-Status
// (spec §6.2).
type responseStatusHeader string

const (
	headerSuccess            responseStatusHeader = "SUCCESS"
	headerFieldError         responseStatusHeader = "FIELD_ERROR"
	headerFieldErrorNullData responseStatusHeader = "FIELD_ERROR_NULL_DATA"
	headerRequestError       responseStatusHeader = "REQUEST_ERROR"
	headerRefusedRequest     responseStatusHeader = "REFUSED_REQUEST"
)
