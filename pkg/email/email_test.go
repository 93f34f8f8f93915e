package email

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/labstack/gommon/log"
)

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = params
	return &sesv2.SendEmailOutput{}, f.err
}

func quietLogger() *log.Logger {
	l := log.New("email")
	l.SetLevel(log.OFF)
	return l
}

func TestSESV2SenderBuildsMessage(t *testing.T) {
	client := &fakeSES{}
	s := &SESV2Sender{client: client, fromEmail: "dispatch@firstcall.example", logger: quietLogger()}

	if err := s.SendEmail(context.Background(), "er@apollo.example", "Ambulance arrived", "plain", "<p>html</p>"); err != nil {
		t.Fatalf("SendEmail = %v", err)
	}
	in := client.input
	if *in.FromEmailAddress != "dispatch@firstcall.example" {
		t.Errorf("from = %s", *in.FromEmailAddress)
	}
	if len(in.Destination.ToAddresses) != 1 || in.Destination.ToAddresses[0] != "er@apollo.example" {
		t.Errorf("to = %v", in.Destination.ToAddresses)
	}
	if *in.Content.Simple.Subject.Data != "Ambulance arrived" || *in.Content.Simple.Body.Html.Data != "<p>html</p>" {
		t.Errorf("content = %+v", in.Content.Simple)
	}
}

func TestSESV2SenderWrapsErrors(t *testing.T) {
	boom := errors.New("throttled")
	s := &SESV2Sender{client: &fakeSES{err: boom}, fromEmail: "a@b.example", logger: quietLogger()}
	if err := s.SendEmail(context.Background(), "c@d.example", "s", "p", "h"); !errors.Is(err, boom) {
		t.Errorf("SendEmail = %v, want the client error wrapped", err)
	}
}

func TestTemplates(t *testing.T) {
	tm, err := NewTemplateManager()
	if err != nil {
		t.Fatalf("NewTemplateManager = %v", err)
	}
	data := TemplateData{
		SessionID:    "session-1",
		VehicleID:    "TN-01-AB-1234",
		DriverName:   "Ravi <Kumar>",
		FacilityName: "Apollo Hospital",
		Latitude:     13.0827,
		Longitude:    80.2707,
		HasPosition:  true,
		At:           time.Date(2025, 1, 1, 8, 30, 0, 0, time.UTC),
	}

	arrived, err := tm.GenerateArrivedEmailHTML(data)
	if err != nil {
		t.Fatalf("arrived = %v", err)
	}
	for _, want := range []string{"TN-01-AB-1234", "Apollo Hospital", "13.08270, 80.27070", "08:30:00 UTC", "Ravi &lt;Kumar&gt;"} {
		if !strings.Contains(arrived, want) {
			t.Errorf("arrived email missing %q", want)
		}
	}

	cancelled, err := tm.GenerateCancelledEmailHTML(data)
	if err != nil {
		t.Fatalf("cancelled = %v", err)
	}
	if !strings.Contains(cancelled, "session-1 was cancelled") {
		t.Errorf("cancelled email = %s", cancelled)
	}
}
