package bootstrap

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"

	appconfig "github.com/wolfman30/clinic-booking-assistant/internal/config"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

func TestBuildEmailSender(t *testing.T) {
	logger := logging.New("error")
	awsCfg := aws.Config{Region: "us-east-1"}
	cases := []struct {
		name string
		cfg  *appconfig.Config
		want string
	}{
		{name: "nil config", want: "stub"},
		{name: "stub", cfg: &appconfig.Config{EmailProvider: "stub"}, want: "stub"},
		{name: "sendgrid", cfg: &appconfig.Config{EmailProvider: "sendgrid", SendGridAPIKey: "SG.test", EmailFromAddress: "desk@example.com"}, want: "sendgrid"},
		{name: "sendgrid without key", cfg: &appconfig.Config{EmailProvider: "sendgrid"}, want: "stub"},
		{name: "ses", cfg: &appconfig.Config{EmailProvider: "ses", EmailFromAddress: "desk@example.com"}, want: "ses"},
		{name: "ses without sender", cfg: &appconfig.Config{EmailProvider: "ses"}, want: "stub"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sender, provider := BuildEmailSender(tc.cfg, awsCfg, logger)
			if sender == nil {
				t.Fatalf("expected sender")
			}
			if provider != tc.want {
				t.Fatalf("expected provider %q, got %q", tc.want, provider)
			}
		})
	}
}

func TestBuildDocumentMirror(t *testing.T) {
	logger := logging.New("error")
	if BuildDocumentMirror(&appconfig.Config{}, aws.Config{}, logger).Enabled() {
		t.Fatalf("expected disabled mirror without bucket")
	}
	cfg := &appconfig.Config{DocumentsBucket: "clinic-docs", AWSEndpointOverride: "http://localhost:4566"}
	if !BuildDocumentMirror(cfg, aws.Config{Region: "us-east-1"}, logger).Enabled() {
		t.Fatalf("expected enabled mirror with bucket")
	}
}
