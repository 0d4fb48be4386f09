package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/example/counseling-diary/internal/application"
	"github.com/example/counseling-diary/internal/logging"
)

const (
	codeUnauthorized       = "UNAUTHORIZED"
	codeInvalidCredentials = "INVALID_CREDENTIALS"
	codeForbidden          = "FORBIDDEN"
	codeRoomNotFound       = "ROOM_NOT_FOUND"
	codeClientNotFound     = "CLIENT_NOT_FOUND"
	codeUserNotFound       = "USER_NOT_FOUND"
	codeNotFound           = "NOT_FOUND"
	codeInvalidInviteCode  = "INVALID_INVITE_CODE"
	codeAlreadyJoined      = "ALREADY_JOINED"
	codeEmailExists        = "EMAIL_ALREADY_EXISTS"
	codeConflict           = "CONFLICT"
	codeValidation         = "VALIDATION_ERROR"
	codeInternal           = "INTERNAL_SERVER_ERROR"
)

const (
	msgUnauthorized       = "인증되지 않은 요청입니다."
	msgInvalidCredentials = "이메일 또는 비밀번호가 올바르지 않습니다."
	msgForbidden          = "권한이 없는 요청입니다."
	msgRoomNotFound       = "상담방을 찾을 수 없습니다."
	msgClientNotFound     = "내담자를 찾을 수 없습니다."
	msgUserNotFound       = "사용자를 찾을 수 없습니다."
	msgNotFound           = "요청한 리소스를 찾을 수 없습니다."
	msgInvalidInviteCode  = "유효하지 않은 초대코드입니다."
	msgAlreadyJoined      = "이미 참가한 상담방입니다."
	msgEmailExists        = "이미 존재하는 이메일입니다."
	msgConflict           = "요청이 현재 리소스 상태와 충돌합니다."
	msgValidation         = "입력값 검증에 실패했습니다."
	msgBadRequestBody     = "요청 본문 형식이 올바르지 않습니다."
	msgInternal           = "서버 내부 오류가 발생했습니다."
)

type responder struct {
	logger *zap.Logger
}

func newResponder(logger *zap.Logger) responder {
	return responder{logger: defaultLogger(logger)}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).Error("failed to encode response", zap.Error(err))
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string) {
	r.writeJSON(ctx, w, status, errorResponse{ErrorCode: code, Message: message})
}

func (r responder) writeBadBody(ctx context.Context, w http.ResponseWriter) {
	r.writeError(ctx, w, http.StatusBadRequest, codeValidation, msgBadRequestBody)
}

// handleServiceError maps service errors onto status codes and stable
// error codes. Unexpected errors never leak their detail.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	var vErr *application.ValidationError
	switch {
	case err == nil:
		r.writeError(ctx, w, http.StatusInternalServerError, codeInternal, msgInternal)
	case errors.Is(err, application.ErrUnauthorized):
		r.writeError(ctx, w, http.StatusUnauthorized, codeUnauthorized, msgUnauthorized)
	case errors.Is(err, application.ErrInvalidCredentials):
		r.writeError(ctx, w, http.StatusUnauthorized, codeInvalidCredentials, msgInvalidCredentials)
	case errors.Is(err, application.ErrForbidden):
		r.writeError(ctx, w, http.StatusForbidden, codeForbidden, msgForbidden)
	case errors.Is(err, application.ErrRoomNotFound):
		r.writeError(ctx, w, http.StatusNotFound, codeRoomNotFound, msgRoomNotFound)
	case errors.Is(err, application.ErrClientNotFound):
		r.writeError(ctx, w, http.StatusNotFound, codeClientNotFound, msgClientNotFound)
	case errors.Is(err, application.ErrUserNotFound):
		r.writeError(ctx, w, http.StatusNotFound, codeUserNotFound, msgUserNotFound)
	case errors.Is(err, application.ErrInvalidInviteCode):
		r.writeError(ctx, w, http.StatusNotFound, codeInvalidInviteCode, msgInvalidInviteCode)
	case errors.Is(err, application.ErrNotFound):
		r.writeError(ctx, w, http.StatusNotFound, codeNotFound, msgNotFound)
	case errors.Is(err, application.ErrAlreadyJoined):
		r.writeError(ctx, w, http.StatusConflict, codeAlreadyJoined, msgAlreadyJoined)
	case errors.Is(err, application.ErrEmailAlreadyExists):
		r.writeError(ctx, w, http.StatusConflict, codeEmailExists, msgEmailExists)
	case errors.Is(err, application.ErrConflict):
		r.writeError(ctx, w, http.StatusConflict, codeConflict, msgConflict)
	case errors.As(err, &vErr):
		details := localizeValidationErrors(vErr)
		message := msgValidation
		if len(details) == 1 && details["date"] != "" {
			message = details["date"]
		}
		r.writeJSON(ctx, w, http.StatusBadRequest, errorResponse{
			ErrorCode: codeValidation,
			Message:   message,
			Errors:    details,
		})
	default:
		r.loggerFor(ctx).Error("unexpected service error", zap.Error(err))
		r.writeError(ctx, w, http.StatusInternalServerError, codeInternal, msgInternal)
	}
}

func (r responder) loggerFor(ctx context.Context) *zap.Logger {
	if logger := logging.FromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func localizeValidationErrors(vErr *application.ValidationError) map[string]string {
	if vErr == nil || len(vErr.FieldErrors) == 0 {
		return nil
	}

	translated := make(map[string]string, len(vErr.FieldErrors))
	for field, msg := range vErr.FieldErrors {
		translated[field] = translateValidationMessage(msg)
	}
	return translated
}

func translateValidationMessage(message string) string {
	switch message {
	case "email must be a valid address":
		return "올바른 이메일 주소를 입력하세요."
	case "password must be at least 8 characters":
		return "비밀번호는 8자 이상이어야 합니다."
	case "name is required":
		return "이름을 입력하세요."
	case "name must be at most 50 characters":
		return "이름은 50자 이하여야 합니다."
	case "name must be at most 100 characters":
		return "상담방 이름은 100자 이하여야 합니다."
	case "role must be counselor or client":
		return "역할은 counselor 또는 client 중 하나여야 합니다."
	case "invite code is required":
		return "초대코드를 입력하세요."
	}
	if value, ok := strings.CutPrefix(message, "unsupported value "); ok {
		return "허용되지 않는 값입니다: " + value
	}
	return message
}

type errorResponse struct {
	ErrorCode string            `json:"error_code"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
