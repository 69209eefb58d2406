package gcp

import (
	"context"
	"errors"
	"net/http"

	"cloud.google.com/go/storage"
	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ppiankov/gcsspectre/internal/models"
)

// ToFetchError classifies err by its structured status code. The message is
// kept verbatim. A *models.FetchError is returned unchanged.
func ToFetchError(err error) *models.FetchError {
	if err == nil {
		return nil
	}

	var fe *models.FetchError
	if errors.As(err, &fe) {
		return fe
	}

	return &models.FetchError{Kind: classify(err), Message: err.Error()}
}

func classify(err error) models.ErrorKind {
	if errors.Is(err, storage.ErrBucketNotExist) {
		return models.ErrorKindNotFound
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return models.ErrorKindTransient
	}

	if ae, ok := apierror.FromError(err); ok {
		if kind, ok := kindForHTTP(ae.HTTPCode()); ok {
			return kind
		}
		if st := ae.GRPCStatus(); st != nil {
			if kind, ok := kindForGRPC(st.Code()); ok {
				return kind
			}
		}
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if kind, ok := kindForHTTP(gerr.Code); ok {
			return kind
		}
	}

	if st, ok := status.FromError(err); ok {
		if kind, ok := kindForGRPC(st.Code()); ok {
			return kind
		}
	}

	return models.ErrorKindTransient
}

func kindForHTTP(code int) (models.ErrorKind, bool) {
	if code <= 0 {
		return "", false
	}
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return models.ErrorKindAccessDenied, true
	case http.StatusNotFound:
		return models.ErrorKindNotFound, true
	default:
		return models.ErrorKindTransient, true
	}
}

func kindForGRPC(code codes.Code) (models.ErrorKind, bool) {
	switch code {
	case codes.PermissionDenied, codes.Unauthenticated:
		return models.ErrorKindAccessDenied, true
	case codes.NotFound:
		return models.ErrorKindNotFound, true
	case codes.OK, codes.Unknown:
		return "", false
	default:
		return models.ErrorKindTransient, true
	}
}

// asError converts to the error interface without producing a typed nil.
func asError(fe *models.FetchError) error {
	if fe == nil {
		return nil
	}
	return fe
}
