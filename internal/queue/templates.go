package queue

import (
    "bytes"
    "fmt"
    "html/template"
    "time"
)

var emailTemplates = template.Must(template.New("emails").Funcs(template.FuncMap{
    "money": formatCents,
    "date":  func(t time.Time) string { return t.UTC().Format("Mon 02 Jan 2006") },
    "clock": func(t time.Time) string { return t.UTC().Format("15:04 MST") },
}).Parse(`
{{define "confirmed"}}<!DOCTYPE html>
<html><body style="font-family:Arial,sans-serif;color:#222">
<h2>Hi {{.UserName}}, your booking is confirmed</h2>
<p>Folio: <strong>{{.Folio}}</strong></p>
<table cellpadding="4">
<tr><td>Movie</td><td>{{.MovieTitle}}</td></tr>
<tr><td>Date</td><td>{{date .StartsAt}}</td></tr>
<tr><td>Time</td><td>{{clock .StartsAt}}</td></tr>
<tr><td>Room</td><td>{{.RoomName}}</td></tr>
<tr><td>Seats</td><td>{{range $i, $s := .SeatLabels}}{{if $i}}, {{end}}{{$s}}{{end}}</td></tr>
<tr><td>Total</td><td>{{money .TotalCents}}</td></tr>
</table>
<p style="color:#b00"><strong>{{.Message}}</strong></p>
<p>CineClic</p>
</body></html>{{end}}
{{define "cancelled"}}<!DOCTYPE html>
<html><body style="font-family:Arial,sans-serif;color:#222">
<h2>Hi {{.UserName}}, your booking was cancelled</h2>
<p>Folio: <strong>{{.Folio}}</strong></p>
{{if .SeatLabels}}<p>Released seats: {{range $i, $s := .SeatLabels}}{{if $i}}, {{end}}{{$s}}{{end}}</p>{{end}}
<p>{{.Message}}</p>
<p>CineClic</p>
</body></html>{{end}}
{{define "confirm_account"}}<!DOCTYPE html>
<html><body style="font-family:Arial,sans-serif;color:#222">
<h2>Thanks for signing up, {{.Name}}!</h2>
<p>Confirm your account by following this link:</p>
<p><a href="{{.Link}}" target="_blank">Confirm my account</a></p>
<p><small>The link expires in {{.ValidFor}}. If you did not sign up, ignore this message.</small></p>
<p>CineClic</p>
</body></html>{{end}}
{{define "reset_password"}}<!DOCTYPE html>
<html><body style="font-family:Arial,sans-serif;color:#222">
<p>Hi {{.Name}}, you asked to reset your password.</p>
<p><a href="{{.Link}}" target="_blank">Reset my password</a></p>
<p><small>The link expires in {{.ValidFor}}. If you did not ask for this, ignore this message.</small></p>
<p>CineClic</p>
</body></html>{{end}}
`))

func formatCents(c uint32) string {
    return fmt.Sprintf("$%d.%02d", c/100, c%100)
}

func render(name string, data any) (string, error) {
    var buf bytes.Buffer
    if err := emailTemplates.ExecuteTemplate(&buf, name, data); err != nil {
        return "", fmt.Errorf("render %s: %w", name, err)
    }
    return buf.String(), nil
}
