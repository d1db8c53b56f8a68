package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/bizdesk/internal/application"
	"github.com/example/bizdesk/internal/logging"
	"github.com/example/bizdesk/internal/scheduler"
)

var (
	errBadRequestBody      = errors.New("無効なリクエスト形式です。")
	errInvalidRecordID     = errors.New("無効な ID です。")
	errInvalidDate         = errors.New("日付は YYYY-MM-DD 形式で指定してください。")
	errInvalidTime         = errors.New("時刻は HH:MM 形式で指定してください。")
	errInvalidWeekday      = errors.New("曜日の指定が不正です。")
	errInvalidNumber       = errors.New("数値の指定が不正です。")
	errMissingSessionToken = errors.New("認証トークンを指定してください")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
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
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) notFound(ctx context.Context, w http.ResponseWriter) {
	r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{
		ErrorCode: "NOT_FOUND",
		Message:   "指定されたリソースが見つかりません。",
	})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	switch {
	case errors.Is(err, application.ErrUnauthorized):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_REQUIRED",
			Message:   "認証が必要です。",
		})
	case errors.Is(err, application.ErrNotFound):
		r.notFound(ctx, w)
	case errors.Is(err, application.ErrUnknownStage):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "STAGE_UNKNOWN",
			Message:   "指定されたステージは存在しません。",
		})
	case errors.Is(err, application.ErrStageInUse):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "STAGE_IN_USE",
			Message:   "このステージには割り当て済みの項目があり、移動先のステージもないため削除できません。",
		})
	case errors.Is(err, application.ErrInvalidStageOrder):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "STAGE_ORDER_INVALID",
			Message:   "ステージの並び順には既存のステージをすべて一度ずつ指定してください。",
		})
	case errors.Is(err, application.ErrWorkspaceOffline):
		r.writeJSON(ctx, w, http.StatusServiceUnavailable, errorResponse{
			ErrorCode: "WORKSPACE_OFFLINE",
			Message:   "現在予約を受け付けていません。しばらくしてから再度お試しください。",
		})
	case errors.Is(err, scheduler.ErrInvalidWindow):
		r.writeJSON(ctx, w, http.StatusBadRequest, errorResponse{
			Message: "表示期間は 1 日から 93 日の範囲で指定してください。",
		})
	default:
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			details := localizeValidationErrors(vErr)
			r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
				Message: "入力内容に誤りがあります。",
				Errors:  details,
			})
			return
		}

		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "サーバー内部でエラーが発生しました。"})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := logging.FromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "リクエスト内容が正しくありません。"
	case http.StatusUnauthorized:
		return "認証が必要です。"
	case http.StatusForbidden:
		return "この操作を実行する権限がありません。"
	case http.StatusNotFound:
		return "指定されたリソースが見つかりません。"
	case http.StatusConflict:
		return "要求はリソースの現在の状態と競合しています。"
	case http.StatusUnprocessableEntity:
		return "入力内容に誤りがあります。"
	case http.StatusServiceUnavailable:
		return "サービスを一時的に利用できません。"
	default:
		return "サーバー内部でエラーが発生しました。"
	}
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
	case "name is required":
		return "お名前は必須です。"
	case "email is required":
		return "メールアドレスは必須です。"
	case "email is invalid":
		return "メールアドレスの形式が不正です。"
	case "date is required":
		return "日付は必須です。"
	case "date must be YYYY-MM-DD":
		return "日付は YYYY-MM-DD 形式で指定してください。"
	case "time is required":
		return "時刻は必須です。"
	case "time must be HH:MM":
		return "時刻は HH:MM 形式で指定してください。"
	case "date is not available":
		return "指定された日は予約を受け付けていません。"
	case "slot is not available":
		return "指定された時間帯は予約できません。"
	default:
		return message
	}
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
