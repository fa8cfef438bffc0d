package datasource

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"

	"github.com/desa-digital/portal-engine/pkg/apperrors"
)

// ErrHandleClosed is returned by handles used after Close.
var ErrHandleClosed = errors.New("handle is closed")

// ClassifyCommon applies the engine-independent rules: deadlines are timeouts,
// lost connections are unavailability, anything else is internal.
func ClassifyCommon(err error) apperrors.QueryErrorKind {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return apperrors.QueryTimeout
	case errors.Is(err, ErrHandleClosed),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone):
		return apperrors.QueryUnavailable
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return apperrors.QueryTimeout
		}
		return apperrors.QueryUnavailable
	}
	return apperrors.QueryInternal
}

// WrapQueryError turns err into an *apperrors.QueryError. classify may be nil;
// when it declines, ClassifyCommon decides.
func WrapQueryError(err error, classify func(error) (apperrors.QueryErrorKind, bool)) error {
	if err == nil {
		return nil
	}
	var qe *apperrors.QueryError
	if errors.As(err, &qe) {
		return err
	}
	if classify != nil {
		if kind, ok := classify(err); ok {
			return apperrors.NewQueryError(kind, err)
		}
	}
	return apperrors.NewQueryError(ClassifyCommon(err), err)
}
