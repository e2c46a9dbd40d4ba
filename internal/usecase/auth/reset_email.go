package auth

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/url"
	"time"
)

const resetEmailSubject = "Reset your password"

var resetEmailTemplate = template.Must(template.New("reset").Parse(`<!DOCTYPE html>
<html>
  <body style="font-family: Arial, sans-serif; color: #222;">
    <p>Hi{{if .FirstName}} {{.FirstName}}{{end}},</p>
    <p>We received a request to reset the password of your account.</p>
    <p><a href="{{.Link}}" style="display:inline-block;padding:10px 18px;background:#4f46e5;color:#fff;text-decoration:none;border-radius:6px;">Reset password</a></p>
    <p>Or paste this link into your browser:<br>{{.Link}}</p>
    <p>The link expires at {{.ExpiresAt.Format "15:04 MST, 2 Jan 2006"}}. If you did not ask for a reset you can ignore this email.</p>
  </body>
</html>
`))

type resetEmailData struct {
	FirstName string
	Link      string
	ExpiresAt time.Time
}

func renderResetEmail(data resetEmailData) (string, error) {
	var buf bytes.Buffer
	if err := resetEmailTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render reset email: %w", err)
	}
	return buf.String(), nil
}

func buildResetLink(base, raw string) (string, error) {
	if base == "" {
		return "", errors.New("reset link base URL is not configured")
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse reset link base URL: %w", err)
	}
	q := u.Query()
	q.Set("token", raw)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
