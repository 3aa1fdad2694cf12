package errors

import (
	"go.uber.org/zap"
)

// LogError writes err with its code. Client side failures are logged at warn.
func LogError(logger *zap.Logger, err error, msg string, fields ...zap.Field) {
	if err == nil {
		return
	}

	allFields := make([]zap.Field, 0, len(fields)+2)
	allFields = append(allFields, zap.Error(err))

	code := CodeOf(err)
	allFields = append(allFields, zap.String("error_code", code))
	allFields = append(allFields, fields...)

	switch code {
	case ErrInvalidArgument, ErrNotFound, ErrUnauthenticated, ErrUnauthorized, ErrConflict:
		logger.Warn(msg, allFields...)
	default:
		logger.Error(msg, allFields...)
	}
}
