package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// SSEのコメント行で接続を保つ間隔
const sseKeepAlive = 25 * time.Second

// latestOnly は最新の値だけを残すチャネルと、待たずに積む関数を返す
func latestOnly[T any]() (<-chan T, func(T)) {
	ch := make(chan T, 1)
	return ch, func(v T) {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- v:
		default:
		}
	}
}

// streamSSE はupdatesをeventとして流す。lastがtrueを返した値を送ったら閉じる。
func streamSSE[T any](c echo.Context, event string, updates <-chan T, last func(T) bool) error {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	ticker := time.NewTicker(sseKeepAlive)
	defer ticker.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case v := <-updates:
			if err := writeSSE(res, event, v); err != nil {
				return nil
			}
			if last(v) {
				return nil
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(res, ": ping\n\n"); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}

func writeSSE(res *echo.Response, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	res.Flush()
	return nil
}
