package bootstrap

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	appconfig "github.com/wolfman30/clinic-booking-assistant/internal/config"
	"github.com/wolfman30/clinic-booking-assistant/internal/ingest"
	"github.com/wolfman30/clinic-booking-assistant/internal/notify"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// BuildEmailSender selects the confirmation email provider. A provider that
// is not fully configured degrades to the stub sender, which only logs.
func BuildEmailSender(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) (notify.EmailSender, string) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil {
		return notify.NewStubEmailSender(logger), "stub"
	}

	switch cfg.EmailProvider {
	case "ses":
		if strings.TrimSpace(cfg.EmailFromAddress) == "" {
			logger.Warn("EMAIL_FROM_ADDRESS not set; confirmation emails are logged only")
			break
		}
		return notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		}, logger), "ses"
	case "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		}, logger)
		if sender != nil {
			return sender, "sendgrid"
		}
		logger.Warn("SENDGRID_API_KEY not set; confirmation emails are logged only")
	}
	return notify.NewStubEmailSender(logger), "stub"
}

// BuildDocumentMirror returns the S3 mirror for the upload directory. Without
// DOCUMENTS_BUCKET the mirror is disabled and every call is a no-op.
func BuildDocumentMirror(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) *ingest.S3Mirror {
	if cfg == nil || strings.TrimSpace(cfg.DocumentsBucket) == "" {
		return ingest.NewS3Mirror(nil, "", logger)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.AWSEndpointOverride != ""
	})
	return ingest.NewS3Mirror(client, cfg.DocumentsBucket, logger)
}
