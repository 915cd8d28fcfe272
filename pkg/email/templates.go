package email

import (
	"bytes"
	"html/template"
)

// TemplateManager holds the parsed email templates.
type TemplateManager struct {
	RouteStatusTmpl *template.Template
}

// NewTemplateManager parses all email templates at startup.
func NewTemplateManager() (*TemplateManager, error) {
	routeStatusTmpl, err := template.New("routeStatus").Parse(routeStatusTemplate)
	if err != nil {
		return nil, err
	}
	return &TemplateManager{RouteStatusTmpl: routeStatusTmpl}, nil
}

// RouteStatusData fills the route status template.
type RouteStatusData struct {
	RouteID       int64
	StreetName    string
	DriverName    string
	ScheduledTime string
	OldStatus     string
	NewStatus     string
}

func (tm *TemplateManager) GenerateRouteStatusEmailHTML(data RouteStatusData) (string, error) {
	var body bytes.Buffer
	if err := tm.RouteStatusTmpl.Execute(&body, data); err != nil {
		return "", err
	}
	return body.String(), nil
}

const routeStatusTemplate = `
<!DOCTYPE html>
<html>
<head>
	<title>Route {{.RouteID}} {{.NewStatus}}</title>
</head>
<body style="font-family: Arial, sans-serif;">
	<h2>Route {{.RouteID}} is now {{.NewStatus}}</h2>
	<p>Street: {{.StreetName}}</p>
	<p>Driver: {{.DriverName}}</p>
	<p>Scheduled for: {{.ScheduledTime}}</p>
	<p>Previous status: {{.OldStatus}}</p>
</body>
</html>
`
