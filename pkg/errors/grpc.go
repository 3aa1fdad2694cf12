package errors

import (
	"google.golang.org/grpc/status"
)

// ToGRPCStatus converts err into a gRPC status error.
func ToGRPCStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	_, code := GetCodeMapping(CodeOf(err))
	var appErr *AppError
	if As(err, &appErr) {
		return status.Error(code, appErr.Message())
	}
	return status.Error(code, "internal error")
}
