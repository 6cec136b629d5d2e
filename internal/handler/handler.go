// Package handler はHTTPハンドラーを提供する。
//
// 各ハンドラーはリクエストをサービス層の入力に変換し、結果をcamelCaseのJSONで返す。
// アクセス制御と入力検証はサービス層で行い、ハンドラーはエラーコードをHTTPステータスに写すだけにする。
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/railgallery/internal/middleware"
	"github.com/hitoshi/railgallery/internal/model"
)

// maxJSONBodySize はJSONリクエストボディの上限。
const maxJSONBodySize = 1 << 20

// idResponse は作成系エンドポイントのレスポンス。
type idResponse struct {
	ID int64 `json:"id"`
}

// successResponse は更新・削除系エンドポイントのレスポンス。
type successResponse struct {
	Success bool `json:"success"`
}

// writeJSON はステータスコードとJSONボディを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

func writeSuccess(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// handleServiceError はサービス層から返されたエラーをHTTPレスポンスに変換する。
// APIError以外は内部エラーとしてログに記録し、詳細は返さない。
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteAPIError(w, apiErr)
		return
	}

	slog.ErrorContext(r.Context(), "internal server error",
		slog.String("error", err.Error()),
		slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
	)
	middleware.WriteInternalServerError(w)
}

// pathID はURLパスパラメータ {id} を正のint64として取り出す。
// 数値でない場合はVALIDATION_ERRORを書き込み、falseを返す。
// 0以下の値はそのままサービス層に渡し、フィールド名付きの検証エラーにする。
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		middleware.WriteAPIError(w, model.NewValidationError("id", "整数で指定してください"))
		return 0, false
	}
	return id, true
}

// decodeBody はJSONボディをvに読み込む。失敗した場合はVALIDATION_ERRORを書き込み、falseを返す。
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodySize))
	if err := dec.Decode(v); err != nil {
		reason := "JSONの解析に失敗しました"
		if errors.Is(err, io.EOF) {
			reason = "リクエストボディが空です"
		}
		middleware.WriteAPIError(w, model.NewValidationError("body", reason))
		return false
	}
	return true
}
