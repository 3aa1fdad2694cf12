package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	domainErrors "github.com/wekeepgrowing/portal-billing/internal/domain/errors"
	apperrors "github.com/wekeepgrowing/portal-billing/pkg/errors"
)

// toStatus maps handler errors onto gRPC codes the same way the HTTP error
// handler maps them onto status codes. Status errors pass through untouched.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return apperrors.ToGRPCStatus(domainErrors.ToAppError(err))
}

func unaryErrorInterceptor(ctx context.Context, req interface{}, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	resp, err := handler(ctx, req)
	return resp, toStatus(err)
}

func streamErrorInterceptor(srv interface{}, ss grpc.ServerStream, _ *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	return toStatus(handler(srv, ss))
}
