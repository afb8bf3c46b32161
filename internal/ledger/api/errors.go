package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/trigg3rX/cipherwork/internal/disclosure"
	"github.com/trigg3rX/cipherwork/internal/ledger"
	"github.com/trigg3rX/cipherwork/pkg/types"
)

var errorStatus = []struct {
	err    error
	status int
}{
	{ledger.ErrNotFound, http.StatusNotFound},
	{ledger.ErrDuplicateKey, http.StatusConflict},
	{ledger.ErrAlreadyRegistered, http.StatusConflict},
	{ledger.ErrNotActive, http.StatusConflict},
	{ledger.ErrAlreadyAssigned, http.StatusConflict},
	{ledger.ErrAlreadyCompleted, http.StatusConflict},
	{ledger.ErrWorkerNotRegistered, http.StatusUnprocessableEntity},
	{ledger.ErrNotAssignedWorker, http.StatusForbidden},
	{ledger.ErrDeadlineExceeded, http.StatusGone},
	{ledger.ErrInvalidCiphertext, http.StatusBadRequest},
	{ledger.ErrInvalidProof, http.StatusBadRequest},
	{ledger.ErrInvalidInput, http.StatusBadRequest},
	{ledger.ErrClosed, http.StatusServiceUnavailable},
}

// httpStatus maps a ledger error to a response status.
// A proof that could not be checked because the verifier was unreachable is 503, not 400.
func httpStatus(err error) int {
	var verr *disclosure.VerificationError
	if errors.As(err, &verr) && verr.Reason == disclosure.Unavailable {
		return http.StatusServiceUnavailable
	}
	for _, es := range errorStatus {
		if errors.Is(err, es.err) {
			return es.status
		}
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	resp := types.ErrorResponse{Error: err.Error(), Code: ledger.ErrorCode(err)}
	var verr *disclosure.VerificationError
	if errors.As(err, &verr) {
		resp.Details = string(verr.Reason)
	}
	status := httpStatus(err)
	if status >= http.StatusInternalServerError {
		GetLogger(c).Error("Request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, resp)
}

func respondBadRequest(c *gin.Context, code, message string) {
	c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: message, Code: code})
}
