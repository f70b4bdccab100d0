package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"

	"github.com/lib/pq"

	"github.com/jwalitptl/patient-records/internal/repository"
)

// translate maps driver failures onto repository errors.
func translate(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		code := repository.CodeQuery
		if pqErr.Code.Class() == "23" {
			code = repository.CodeConstraint
		}
		msg := pqErr.Message
		if pqErr.Detail != "" {
			msg += ": " + pqErr.Detail
		}
		return &repository.Error{Code: code, Message: msg, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &repository.Error{Code: repository.CodeUnavailable, Message: err.Error(), Err: err}
	}

	return &repository.Error{Code: repository.CodeQuery, Message: err.Error(), Err: err}
}
