package fetch

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// 错误响应体最多读取 64KB，防止异常服务拖垮内存。
const maxErrorBodyBytes = 64 * 1024

// ClassifyStatus 将最终响应的状态码翻译为错误：404 → NotFoundError，
// 其余 >=400 → ServerError（Message 来自响应体的尽力 JSON 解析，
// GitHub API 等服务会在 message 字段里给出可读原因）。
// 2xx/3xx 返回 nil，响应体保持未消费。
func ClassifyStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusNotFound {
		return &NotFoundError{URL: resp.Request.URL.String()}
	}
	if resp.StatusCode >= 400 {
		return &ServerError{
			URL:     resp.Request.URL.String(),
			Status:  resp.StatusCode,
			Message: extractErrorMessage(resp.Body),
		}
	}
	return nil
}

// extractErrorMessage 尽力从错误响应体里提取 JSON 的 message 字段，
// 解析失败一律退回空串，绝不让解析问题掩盖原始的 HTTP 错误。
func extractErrorMessage(body io.Reader) string {
	if body == nil {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(body, maxErrorBodyBytes))
	if err != nil {
		return ""
	}

	text := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(text, "{") || !strings.HasSuffix(text, "}") {
		return ""
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return ""
	}
	if msg, ok := parsed["message"]; ok && msg != nil {
		return fmt.Sprintf("%v", msg)
	}
	return ""
}
