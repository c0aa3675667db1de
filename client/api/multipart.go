package api

import (
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/url"
	"strconv"
)

// doMultipart streams fields and an optional file through a pipe so large
// uploads are not buffered twice.
func (c *Client) doMultipart(ctx context.Context, method, path string, fields url.Values, file *Upload, out any) error {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeMultipart(mw, fields, file))
	}()
	defer pr.Close()

	req := request{method: method, path: path, body: pr, contentType: mw.FormDataContentType()}
	return c.do(ctx, req, func(body io.Reader) error {
		if out == nil {
			_, err := io.Copy(io.Discard, body)
			return err
		}
		return json.NewDecoder(body).Decode(out)
	})
}

func writeMultipart(mw *multipart.Writer, fields url.Values, file *Upload) error {
	for key, values := range fields {
		for _, v := range values {
			if err := mw.WriteField(key, v); err != nil {
				return err
			}
		}
	}
	if file != nil && file.Content != nil {
		part, err := mw.CreateFormFile("file", file.Filename)
		if err != nil {
			return err
		}
		if _, err := io.Copy(part, file.Content); err != nil {
			return err
		}
	}
	return mw.Close()
}

func setIf(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

func setIntIf(q url.Values, key string, value int) {
	if value > 0 {
		q.Set(key, strconv.Itoa(value))
	}
}
