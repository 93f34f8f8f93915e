package email

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

// TemplateManager holds the parsed notification templates.
type TemplateManager struct {
	ArrivedTmpl   *template.Template
	CancelledTmpl *template.Template
}

// NewTemplateManager parses all email templates at startup.
func NewTemplateManager() (*TemplateManager, error) {
	arrivedTmpl, err := template.New("arrived").Parse(arrivedTemplate)
	if err != nil {
		return nil, fmt.Errorf("email.NewTemplateManager arrived: %w", err)
	}

	cancelledTmpl, err := template.New("cancelled").Parse(cancelledTemplate)
	if err != nil {
		return nil, fmt.Errorf("email.NewTemplateManager cancelled: %w", err)
	}

	return &TemplateManager{
		ArrivedTmpl:   arrivedTmpl,
		CancelledTmpl: cancelledTmpl,
	}, nil
}

// TemplateData holds the dynamic data for a dispatch notification.
type TemplateData struct {
	SessionID    string
	VehicleID    string
	DriverName   string
	FacilityName string
	Latitude     float64
	Longitude    float64
	HasPosition  bool
	At           time.Time
}

// GenerateArrivedEmailHTML executes the arrival template.
func (tm *TemplateManager) GenerateArrivedEmailHTML(data TemplateData) (string, error) {
	var body bytes.Buffer
	if err := tm.ArrivedTmpl.Execute(&body, data); err != nil {
		return "", err
	}
	return body.String(), nil
}

// GenerateCancelledEmailHTML executes the cancellation template.
func (tm *TemplateManager) GenerateCancelledEmailHTML(data TemplateData) (string, error) {
	var body bytes.Buffer
	if err := tm.CancelledTmpl.Execute(&body, data); err != nil {
		return "", err
	}
	return body.String(), nil
}

// --- HTML Template Definitions ---

const arrivedTemplate = `
<!DOCTYPE html>
<html>
<head>
	<title>Ambulance Arrived</title>
</head>
<body style="font-family: Arial, sans-serif;">
	<h2>Ambulance {{.VehicleID}} has reached the patient</h2>
	<p>Driver: {{.DriverName}}</p>
	{{if .FacilityName}}<p>Returning to: {{.FacilityName}}</p>{{end}}
	{{if .HasPosition}}<p>Pickup location: {{printf "%.5f" .Latitude}}, {{printf "%.5f" .Longitude}}</p>{{end}}
	<p>Arrived at {{.At.Format "15:04:05 MST"}} (dispatch {{.SessionID}}).</p>
	<p>Please prepare to receive the patient.</p>
</body>
</html>
`

const cancelledTemplate = `
<!DOCTYPE html>
<html>
<head>
	<title>Dispatch Cancelled</title>
</head>
<body style="font-family: Arial, sans-serif;">
	<h2>Dispatch {{.SessionID}} was cancelled</h2>
	<p>The requester cancelled the emergency request for ambulance {{.VehicleID}} ({{.DriverName}}).</p>
	<p>Cancelled at {{.At.Format "15:04:05 MST"}}. The ambulance is available again.</p>
</body>
</html>
`
