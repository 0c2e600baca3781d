package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"rbac-admin/models"
)

const maxLoggedBody = 4096

var sensitiveFields = []string{"password", "old_password", "new_password"}

// OperationRecorder 记录失败不影响请求
type OperationRecorder interface {
	Record(ctx context.Context, entry *models.OperationLog)
}

type bodyCaptureWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *bodyCaptureWriter) Write(b []byte) (int, error) {
	if room := maxLoggedBody - w.body.Len(); room > 0 {
		if len(b) > room {
			w.body.Write(b[:room])
		} else {
			w.body.Write(b)
		}
	}
	return w.ResponseWriter.Write(b)
}

// OperationLog 在 Guard 之后挂载，只记录已认证的请求
func OperationLog(recorder OperationRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		var reqBody []byte
		if c.Request.Body != nil {
			reqBody, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(reqBody))
		}

		writer := &bodyCaptureWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = writer

		c.Next()

		user := CurrentUser(c)
		if user == nil {
			return
		}

		entry := &models.OperationLog{
			UserID:     user.ID,
			Method:     c.Request.Method,
			Path:       c.Request.URL.Path,
			Params:     buildParams(c, reqBody),
			Response:   writer.body.String(),
			StatusCode: c.Writer.Status(),
			IP:         c.ClientIP(),
			UserAgent:  c.Request.UserAgent(),
			Duration:   time.Since(start).Milliseconds(),
			CreatedAt:  start,
		}

		recorder.Record(context.WithoutCancel(c.Request.Context()), entry)
	}
}

// buildParams 合并 query、路径参数和 JSON 请求体，敏感字段脱敏
func buildParams(c *gin.Context, body []byte) string {
	params := map[string]interface{}{}

	if q := c.Request.URL.Query(); len(q) > 0 {
		params["query"] = q
	}
	if len(c.Params) > 0 {
		path := make(map[string]string, len(c.Params))
		for _, p := range c.Params {
			path[p.Key] = p.Value
		}
		params["params"] = path
	}
	if len(body) > 0 {
		var parsed map[string]interface{}
		if err := json.Unmarshal(body, &parsed); err == nil {
			for _, f := range sensitiveFields {
				if _, ok := parsed[f]; ok {
					parsed[f] = "******"
				}
			}
			params["body"] = parsed
		} else if len(body) <= maxLoggedBody {
			params["body"] = string(body)
		}
	}

	if len(params) == 0 {
		return ""
	}
	out, err := json.Marshal(params)
	if err != nil {
		return ""
	}
	if len(out) > maxLoggedBody {
		out = out[:maxLoggedBody]
	}
	return string(out)
}
