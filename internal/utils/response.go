package utils

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request id in and out of the admin API.
const RequestIDHeader = "X-Request-ID"

// Response is the admin API envelope.
type Response struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
	Meta    Meta       `json:"meta"`
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Meta struct {
	RequestID string    `json:"requestId"`
	Timestamp time.Time `json:"timestamp"`
}

// errorStatus maps pipeline sentinels to HTTP statuses. The sentinel text is
// the error code.
var errorStatus = []struct {
	err    error
	status int
}{
	{ErrCatalogNotFound, http.StatusNotFound},
	{ErrCatalogInactive, http.StatusConflict},
	{ErrCatalogUnbound, http.StatusConflict},
	{ErrAlreadySyncing, http.StatusConflict},
	{ErrInvalidMode, http.StatusBadRequest},
	{ErrInvalidRules, http.StatusUnprocessableEntity},
	{ErrInvalidToken, http.StatusUnauthorized},
}

func Success(c *gin.Context, code int, message string, data any) {
	c.JSON(code, Response{Success: true, Message: message, Data: data, Meta: meta(c)})
}

func Error(c *gin.Context, code int, errCode, message string) {
	c.JSON(code, Response{
		Message: message,
		Error:   &ErrorInfo{Code: errCode, Message: message},
		Meta:    meta(c),
	})
}

// FromError writes err using the sentinel table and reports whether it was a
// known sentinel. Unknown errors are left to the caller.
func FromError(c *gin.Context, err error) bool {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			Error(c, e.status, e.err.Error(), err.Error())
			return true
		}
	}
	return false
}

func meta(c *gin.Context) Meta {
	return Meta{RequestID: RequestID(c), Timestamp: time.Now().UTC()}
}

// RequestID returns the id stored by the logging middleware, minting one for
// routes mounted without it.
func RequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	id := uuid.NewString()
	c.Set("request_id", id)
	return id
}
