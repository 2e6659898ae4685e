package mail

import (
	"strings"
	"text/template"
)

const (
	SubjectRequest      = "Location Request"
	SubjectNotification = "Location Notification"
)

var requestBody = template.Must(template.New("request").Parse(
	`{{if .RecipientName}}Hi {{.RecipientName}},{{else}}Hello,{{end}}

{{.SenderName}} would like to know where you are.
Share your location: {{.URL}}

--
Sent with Beacon
{{.AppURL}}
`))

var notificationBody = template.Must(template.New("notification").Parse(
	`{{if .RecipientName}}Hi {{.RecipientName}},{{else}}Hello,{{end}}

{{.SenderName}} shared their location with you.
See where they are: {{.LocationURL}}

--
Sent with Beacon
{{.AppURL}}
`))

type RequestParams struct {
	SenderName    string
	RecipientName string
	URL           string
	AppURL        string
}

type NotificationParams struct {
	SenderName    string
	RecipientName string
	LocationURL   string
	AppURL        string
}

func RenderRequest(p RequestParams) (string, error) {
	var b strings.Builder
	if err := requestBody.Execute(&b, p); err != nil {
		return "", err
	}
	return b.String(), nil
}

func RenderNotification(p NotificationParams) (string, error) {
	var b strings.Builder
	if err := notificationBody.Execute(&b, p); err != nil {
		return "", err
	}
	return b.String(), nil
}
